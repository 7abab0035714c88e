package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"vaulty/ledger"
	"vaulty/models"
)

func TestClaimEnforcesDailyCap(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	quests := NewQuestService(db, wallet)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		grant, err := quests.Claim(alice.ID, ledger.QuestWatchVideo, now)
		if err != nil {
			t.Fatalf("claim %d: %v", i+1, err)
		}
		if grant.Count != i+1 {
			t.Fatalf("claim %d count=%d", i+1, grant.Count)
		}
		if grant.Points < 5 || grant.Points > 15 {
			t.Fatalf("claim %d points=%d, want within [5,15]", i+1, grant.Points)
		}
	}

	// The eleventh claim within the same day is denied.
	if _, err := quests.Claim(alice.ID, ledger.QuestWatchVideo, now.Add(time.Minute)); !errors.Is(err, ErrQuestCapReached) {
		t.Fatalf("11th claim err=%v, want cap reached", err)
	}
}

func TestClaimDayRolloverResetsCount(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	quests := NewQuestService(db, wallet)

	alice := createTestUser(t, db, "alice", 0)
	day1 := time.Date(2025, 4, 1, 23, 50, 0, 0, time.UTC)

	if _, err := quests.Claim(alice.ID, ledger.QuestDailyLogin, day1); err != nil {
		t.Fatalf("day1 claim: %v", err)
	}
	if _, err := quests.Claim(alice.ID, ledger.QuestDailyLogin, day1.Add(time.Minute)); !errors.Is(err, ErrQuestCapReached) {
		t.Fatalf("second same-day claim err=%v, want cap reached", err)
	}

	// Crossing midnight UTC opens a fresh bucket.
	day2 := day1.Add(20 * time.Minute)
	grant, err := quests.Claim(alice.ID, ledger.QuestDailyLogin, day2)
	if err != nil {
		t.Fatalf("day2 claim: %v", err)
	}
	if grant.Count != 1 {
		t.Fatalf("day2 count=%d, want 1", grant.Count)
	}
	if got := userPoints(t, db, alice.ID); got != 100 {
		t.Fatalf("points after two logins=%d, want 100", got)
	}
}

func TestClaimRejectsInviteAction(t *testing.T) {
	db := newTestDB(t)
	quests := NewQuestService(db, NewWalletService(db, NewEventBroker()))
	alice := createTestUser(t, db, "alice", 0)

	if _, err := quests.Claim(alice.ID, ledger.QuestInvite, time.Now().UTC()); !errors.Is(err, ErrUnknownQuest) {
		t.Fatalf("invite claim err=%v, want rejection", err)
	}
}

func TestReferralSettlementCreditsBothSides(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	quests := NewQuestService(db, wallet)

	referrer := createTestUser(t, db, "referrer", 0)
	invitee := createTestUser(t, db, "invitee", 0)
	now := time.Now().UTC()

	ref, err := quests.IssueReferral(referrer.ID)
	if err != nil {
		t.Fatalf("IssueReferral: %v", err)
	}
	if ref.Code == "" || ref.Status != models.ReferralPending {
		t.Fatalf("issued referral %+v", ref)
	}

	if err := quests.SettleReferral(ref.Code, invitee.ID, now); err != nil {
		t.Fatalf("SettleReferral: %v", err)
	}

	if got := userPoints(t, db, referrer.ID); got != ledger.ReferralRewardPoints {
		t.Fatalf("referrer points=%d, want %d", got, ledger.ReferralRewardPoints)
	}
	if got := userPoints(t, db, invitee.ID); got != ledger.ReferralRewardPoints {
		t.Fatalf("invitee points=%d, want %d", got, ledger.ReferralRewardPoints)
	}

	var settled models.Referral
	db.First(&settled, ref.ID)
	if settled.Status != models.ReferralSettled || settled.ReferredID == nil || *settled.ReferredID != invitee.ID {
		t.Fatalf("settled record %+v", settled)
	}

	// The code is single-use per pending record.
	if err := quests.SettleReferral(ref.Code, invitee.ID, now); !errors.Is(err, ErrReferralNotFound) {
		t.Fatalf("re-settle err=%v, want not found", err)
	}
}

func TestReferralRejectsOwnCode(t *testing.T) {
	db := newTestDB(t)
	quests := NewQuestService(db, NewWalletService(db, NewEventBroker()))
	alice := createTestUser(t, db, "alice", 0)

	ref, err := quests.IssueReferral(alice.ID)
	if err != nil {
		t.Fatalf("IssueReferral: %v", err)
	}
	if err := quests.SettleReferral(ref.Code, alice.ID, time.Now().UTC()); !errors.Is(err, ErrOwnReferralCode) {
		t.Fatalf("self-settle err=%v, want own-code rejection", err)
	}
	if got := userPoints(t, db, alice.ID); got != 0 {
		t.Fatalf("points=%d, want 0", got)
	}
}

func TestConcurrentClaimsRespectDailyCap(t *testing.T) {
	db := newTestDB(t)
	quests := NewQuestService(db, NewWalletService(db, NewEventBroker()))
	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	// Seed the progress row so every worker races the same counter.
	if _, err := quests.Claim(alice.ID, ledger.QuestWatchVideo, now); err != nil {
		t.Fatalf("initial claim: %v", err)
	}

	const workers = 12 // only 9 more claims fit under the cap of 10
	var wg sync.WaitGroup
	granted := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := quests.Claim(alice.ID, ledger.QuestWatchVideo, now); err == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	wins := 1
	for range granted {
		wins++
	}
	if wins != 10 {
		t.Fatalf("granted claims=%d, want 10", wins)
	}

	var progress models.QuestProgress
	if err := db.Where("user_id = ? AND action = ?", alice.ID, ledger.QuestWatchVideo).
		First(&progress).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.Count != 10 {
		t.Fatalf("count=%d, want 10", progress.Count)
	}
}

func TestExpireStaleReferrals(t *testing.T) {
	db := newTestDB(t)
	quests := NewQuestService(db, NewWalletService(db, NewEventBroker()))
	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	stale := models.Referral{
		ReferrerID: alice.ID,
		Code:       "STALE001",
		Status:     models.ReferralPending,
		CreatedAt:  now.Add(-31 * 24 * time.Hour),
	}
	fresh := models.Referral{
		ReferrerID: alice.ID,
		Code:       "FRESH001",
		Status:     models.ReferralPending,
		CreatedAt:  now.Add(-time.Hour),
	}
	db.Create(&stale)
	db.Create(&fresh)

	n, err := quests.ExpireStaleReferrals(now)
	if err != nil {
		t.Fatalf("ExpireStaleReferrals: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired=%d, want 1", n)
	}

	var gotStale models.Referral
	if err := db.First(&gotStale, stale.ID).Error; err != nil {
		t.Fatalf("load stale referral: %v", err)
	}
	if gotStale.Status != models.ReferralExpired {
		t.Fatalf("stale status=%s", gotStale.Status)
	}

	var gotFresh models.Referral
	if err := db.First(&gotFresh, fresh.ID).Error; err != nil {
		t.Fatalf("load fresh referral: %v", err)
	}
	if gotFresh.Status != models.ReferralPending {
		t.Fatalf("fresh status=%s", gotFresh.Status)
	}
}
