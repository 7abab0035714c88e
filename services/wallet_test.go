package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"vaulty/ledger"
	"vaulty/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db") + "?_pragma=busy_timeout(10000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
		&models.PromoCode{},
		&models.QuestProgress{},
		&models.Transfer{},
		&models.Referral{},
		&models.Payment{},
		&models.Companion{},
		&models.CompanionMemory{},
		&models.ChatMessage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, points int) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Password: "x",
		Points:   points,
		Plan:     ledger.PlanFree,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func userPoints(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("load user %d: %v", id, err)
	}
	return user.Points
}

func TestTransferMovesPointsAndAppendsRecord(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	alice := createTestUser(t, db, "alice", 1000)
	bob := createTestUser(t, db, "bob", 0)

	tr, err := wallet.Tip(alice.ID, bob.ID, 250)
	if err != nil {
		t.Fatalf("Tip: %v", err)
	}
	if tr.Kind != models.TransferTip || tr.Amount != 250 {
		t.Fatalf("transfer record = %+v", tr)
	}

	if got := userPoints(t, db, alice.ID); got != 750 {
		t.Fatalf("sender balance=%d, want 750", got)
	}
	if got := userPoints(t, db, bob.ID); got != 250 {
		t.Fatalf("recipient balance=%d, want 250", got)
	}

	var count int64
	db.Model(&models.Transfer{}).Count(&count)
	if count != 1 {
		t.Fatalf("transfer rows=%d, want 1", count)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	alice := createTestUser(t, db, "alice", 100)
	bob := createTestUser(t, db, "bob", 0)

	if _, err := wallet.Transfer(alice.ID, bob.ID, 101, models.TransferTip, ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err=%v, want ErrInsufficientBalance", err)
	}

	// Denied transfer leaves no partial state behind.
	if got := userPoints(t, db, alice.ID); got != 100 {
		t.Fatalf("sender balance=%d, want 100", got)
	}
	if got := userPoints(t, db, bob.ID); got != 0 {
		t.Fatalf("recipient balance=%d, want 0", got)
	}
	var count int64
	db.Model(&models.Transfer{}).Count(&count)
	if count != 0 {
		t.Fatalf("transfer rows=%d, want 0", count)
	}
}

func TestTipBounds(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	alice := createTestUser(t, db, "alice", 100000)
	bob := createTestUser(t, db, "bob", 0)

	if _, err := wallet.Tip(alice.ID, bob.ID, 9); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("tip below minimum: err=%v", err)
	}
	if _, err := wallet.Tip(alice.ID, bob.ID, 50001); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("tip above maximum: err=%v", err)
	}
	if _, err := wallet.Tip(alice.ID, alice.ID, 100); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("self tip: err=%v", err)
	}
}

// The sender's balance must never go negative even when transfers race: the
// conditional decrement re-checks the balance at write time instead of
// trusting an earlier read.
func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	alice := createTestUser(t, db, "alice", 500)
	bob := createTestUser(t, db, "bob", 0)

	const workers = 8
	const amount = 100 // only 5 of the 8 can succeed

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := wallet.Transfer(alice.ID, bob.ID, amount, models.TransferTip, ""); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins != 5 {
		t.Fatalf("successful transfers=%d, want 5", wins)
	}

	if got := userPoints(t, db, alice.ID); got != 0 {
		t.Fatalf("sender balance=%d, want 0", got)
	}
	if got := userPoints(t, db, bob.ID); got != 500 {
		t.Fatalf("recipient balance=%d, want 500", got)
	}
}

func TestGiftCardRedeem(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	alice := createTestUser(t, db, "alice", 1200)

	if _, err := wallet.RedeemGiftCard(alice.ID, 777); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("odd denomination: err=%v", err)
	}

	if _, err := wallet.RedeemGiftCard(alice.ID, 1000); err != nil {
		t.Fatalf("RedeemGiftCard: %v", err)
	}
	if got := userPoints(t, db, alice.ID); got != 200 {
		t.Fatalf("balance=%d, want 200", got)
	}

	if _, err := wallet.RedeemGiftCard(alice.ID, 500); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw redeem: err=%v", err)
	}
}

func seedChannelMessage(t *testing.T, db *gorm.DB, channel string, senderID uint) {
	t.Helper()
	msg := models.ChatMessage{
		ChannelID: channel,
		SenderID:  &senderID,
		Role:      models.RoleUser,
		Content:   "hi",
	}
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}
}

func TestGiveawayWinnerSelection(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db, NewEventBroker())

	host := createTestUser(t, db, "host", 10000)
	carol := createTestUser(t, db, "carol", 0)

	// Nobody has spoken: denied, no transfer.
	if _, _, err := wallet.Giveaway("lounge", host.ID, 100); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("empty channel: err=%v", err)
	}

	// Only the initiator and system bot have spoken: still denied.
	seedChannelMessage(t, db, "lounge", host.ID)
	seedChannelMessage(t, db, "lounge", SystemBotUserID)
	if _, _, err := wallet.Giveaway("lounge", host.ID, 100); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("ineligible senders only: err=%v", err)
	}

	seedChannelMessage(t, db, "lounge", carol.ID)
	winner, tr, err := wallet.Giveaway("lounge", host.ID, 100)
	if err != nil {
		t.Fatalf("Giveaway: %v", err)
	}
	if winner != carol.ID {
		t.Fatalf("winner=%d, want %d", winner, carol.ID)
	}
	if tr.Kind != models.TransferGiveaway {
		t.Fatalf("kind=%s, want giveaway", tr.Kind)
	}
	if got := userPoints(t, db, carol.ID); got != 100 {
		t.Fatalf("winner balance=%d, want 100", got)
	}
}

func TestAwardXPPublishesRankUp(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)

	alice := createTestUser(t, db, "alice", 0)
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	// 4999 -> 5000 crosses the Ruby threshold.
	db.Model(&models.User{}).Where("id = ?", alice.ID).Update("xp", 4999)
	if err := wallet.AwardXP(alice.ID, 1); err != nil {
		t.Fatalf("AwardXP: %v", err)
	}

	select {
	case ev := <-sub:
		if ev.Type != "rank_up" {
			t.Fatalf("event type=%s, want rank_up", ev.Type)
		}
		if ev.Payload["rank"] != "ruby" {
			t.Fatalf("rank=%v, want ruby", ev.Payload["rank"])
		}
	default:
		t.Fatal("no rank_up event published")
	}
}
