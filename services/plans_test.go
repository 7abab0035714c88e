package services

import (
	"testing"
	"time"

	"vaulty/ledger"
	"vaulty/models"
)

func premiumBadges(u *models.User) []string {
	out := []string{}
	for _, b := range u.Badges {
		if ledger.IsPremiumBadge(b.BadgeID) {
			out = append(out, b.BadgeID)
		}
	}
	return out
}

func TestChangePlanBadgeExclusivity(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	// Give alice a pro badge plus an unrelated badge.
	db.Create(&models.UserBadge{UserID: alice.ID, BadgeID: ledger.BadgePremiumPro, AwardedAt: now})
	db.Create(&models.UserBadge{UserID: alice.ID, BadgeID: "early-adopter", AwardedAt: now})

	user, err := plans.ChangePlan(alice.ID, ledger.PlanMax, now)
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}

	got := premiumBadges(user)
	if len(got) != 1 || got[0] != ledger.BadgePremiumMax {
		t.Fatalf("premium badges=%v, want [premium-max]", got)
	}

	// Unrelated badges survive.
	found := false
	for _, b := range user.Badges {
		if b.BadgeID == "early-adopter" {
			found = true
		}
	}
	if !found {
		t.Fatal("early-adopter badge was stripped by the plan change")
	}

	// Expiry lands exactly 30 days out.
	if user.PlanExpiry == nil {
		t.Fatal("plan expiry not set")
	}
	if want := now.Add(30 * 24 * time.Hour); !user.PlanExpiry.Equal(want) {
		t.Fatalf("expiry=%v, want %v", user.PlanExpiry, want)
	}
}

func TestChangePlanDowngradeToFree(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	if _, err := plans.ChangePlan(alice.ID, ledger.PlanUltra, now); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	user, err := plans.ChangePlan(alice.ID, ledger.PlanFree, now)
	if err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	if got := premiumBadges(user); len(got) != 0 {
		t.Fatalf("premium badges after downgrade=%v, want none", got)
	}
	if user.PlanExpiry != nil {
		t.Fatalf("expiry=%v, want nil", user.PlanExpiry)
	}
	if user.Plan != ledger.PlanFree {
		t.Fatalf("plan=%s, want free", user.Plan)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	first, err := plans.ConfirmPayment("pi_123", alice.ID, ledger.PlanPro, 9.99, "", now)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if got := userPoints(t, db, alice.ID); got != 500 {
		t.Fatalf("bonus points=%d, want 500", got)
	}

	// Duplicate success callback: no second bonus, no error.
	second, err := plans.ConfirmPayment("pi_123", alice.ID, ledger.PlanPro, 9.99, "", now)
	if err != nil {
		t.Fatalf("duplicate confirm: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate created a new payment row: %d != %d", second.ID, first.ID)
	}
	if got := userPoints(t, db, alice.ID); got != 500 {
		t.Fatalf("points after duplicate=%d, want 500", got)
	}
	if second.Status != models.PaymentConfirmed {
		t.Fatalf("status=%s, want confirmed", second.Status)
	}
}

func TestConfirmPaymentResumesPendingRow(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	// An earlier callback recorded the payment but died before the upgrade
	// applied.
	stuck := models.Payment{
		ProviderRef: "pi_456",
		UserID:      alice.ID,
		Plan:        ledger.PlanPro,
		AmountUSD:   9.99,
		Status:      models.PaymentPending,
	}
	if err := db.Create(&stuck).Error; err != nil {
		t.Fatalf("create pending payment: %v", err)
	}

	resumed, err := plans.ConfirmPayment("pi_456", alice.ID, ledger.PlanPro, 9.99, "", now)
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if resumed.ID != stuck.ID {
		t.Fatalf("retry created a new payment row: %d != %d", resumed.ID, stuck.ID)
	}
	if resumed.Status != models.PaymentConfirmed {
		t.Fatalf("status=%s, want confirmed", resumed.Status)
	}

	var user models.User
	if err := db.First(&user, alice.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Plan != ledger.PlanPro {
		t.Fatalf("plan=%s, want pro", user.Plan)
	}
	if got := userPoints(t, db, alice.ID); got != 500 {
		t.Fatalf("bonus points=%d, want 500", got)
	}
}

func TestQuotePlanRevalidatesScope(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)
	now := time.Now().UTC()

	db.Create(&models.PromoCode{
		Code:            "PROONLY",
		DiscountPercent: 50,
		ScopePlan:       "PRO",
		Active:          true,
	})

	// Applies to pro.
	price, res, reason, err := plans.QuotePlan(ledger.PlanPro, "proonly", now)
	if err != nil || reason != "" {
		t.Fatalf("pro quote: err=%v reason=%q", err, reason)
	}
	if res == nil || price != ledger.Round2(9.99*0.5) {
		t.Fatalf("pro price=%v", price)
	}

	// Switching the selected plan invalidates the discount; the code must be
	// re-validated against the new target.
	price, res, reason, err = plans.QuotePlan(ledger.PlanUltra, "proonly", now)
	if err != nil {
		t.Fatalf("ultra quote: %v", err)
	}
	if reason != ledger.PromoWrongPlan || res != nil {
		t.Fatalf("ultra quote reason=%q res=%v, want wrong-plan rejection", reason, res)
	}
	if price != 19.99 {
		t.Fatalf("ultra price=%v, want undiscounted 19.99", price)
	}
}

func TestRevertExpiredPlans(t *testing.T) {
	db := newTestDB(t)
	events := NewEventBroker()
	wallet := NewWalletService(db, events)
	plans := NewPlanService(db, wallet, events)

	now := time.Now().UTC()
	alice := createTestUser(t, db, "alice", 0)
	bob := createTestUser(t, db, "bob", 0)

	if _, err := plans.ChangePlan(alice.ID, ledger.PlanUltra, now.Add(-31*24*time.Hour)); err != nil {
		t.Fatalf("setup alice: %v", err)
	}
	if _, err := plans.ChangePlan(bob.ID, ledger.PlanPro, now); err != nil {
		t.Fatalf("setup bob: %v", err)
	}

	reverted, err := plans.RevertExpiredPlans(now)
	if err != nil {
		t.Fatalf("RevertExpiredPlans: %v", err)
	}
	if reverted != 1 {
		t.Fatalf("reverted=%d, want 1", reverted)
	}

	var aliceNow, bobNow models.User
	db.Preload("Badges").First(&aliceNow, alice.ID)
	db.Preload("Badges").First(&bobNow, bob.ID)

	if aliceNow.Plan != ledger.PlanFree || len(premiumBadges(&aliceNow)) != 0 {
		t.Fatalf("alice not reverted: plan=%s badges=%v", aliceNow.Plan, premiumBadges(&aliceNow))
	}
	if bobNow.Plan != ledger.PlanPro {
		t.Fatalf("bob should keep pro, got %s", bobNow.Plan)
	}
}
