package ledger

import (
	"testing"
	"time"
)

func fixturePromo(scope string, expiresAt *time.Time) PromoInput {
	return PromoInput{
		Code:            "SUMMER24",
		DiscountPercent: 20,
		ScopePlan:       scope,
		ExpiresAt:       expiresAt,
		Active:          true,
	}
}

func TestApplyPromoExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	if _, reason := ApplyPromo(fixturePromo(ScopeAll, &past), 19.99, PlanUltra, now); reason != PromoExpired {
		t.Fatalf("past expiry: reason=%q, want %q", reason, PromoExpired)
	}

	future := now.Add(time.Hour)
	if res, reason := ApplyPromo(fixturePromo(ScopeAll, &future), 19.99, PlanUltra, now); reason != "" || res == nil {
		t.Fatalf("future expiry: rejected with %q", reason)
	}

	// No expiry set means the code never expires.
	if _, reason := ApplyPromo(fixturePromo(ScopeAll, nil), 19.99, PlanUltra, now); reason != "" {
		t.Fatalf("nil expiry: rejected with %q", reason)
	}
}

func TestApplyPromoScope(t *testing.T) {
	now := time.Now()

	if _, reason := ApplyPromo(fixturePromo("PRO", nil), 9.99, PlanUltra, now); reason != PromoWrongPlan {
		t.Fatalf("pro code on ultra: reason=%q, want %q", reason, PromoWrongPlan)
	}
	if _, reason := ApplyPromo(fixturePromo("PRO", nil), 9.99, PlanPro, now); reason != "" {
		t.Fatalf("pro code on pro: rejected with %q", reason)
	}
	if _, reason := ApplyPromo(fixturePromo(ScopeAll, nil), 9.99, PlanUltra, now); reason != "" {
		t.Fatalf("All-scoped code: rejected with %q", reason)
	}
}

func TestApplyPromoRounding(t *testing.T) {
	promo := fixturePromo(ScopeAll, nil)
	promo.DiscountPercent = 25

	res, reason := ApplyPromo(promo, 19.99, PlanUltra, time.Now())
	if reason != "" {
		t.Fatalf("rejected with %q", reason)
	}
	// 19.99 * 0.75 = 14.9925 -> half-up on the scaled integer -> 14.99
	if res.DiscountedPrice != 14.99 {
		t.Fatalf("DiscountedPrice=%v, want 14.99", res.DiscountedPrice)
	}
}

func TestApplyPromoInactiveAndBadPercent(t *testing.T) {
	now := time.Now()

	promo := fixturePromo(ScopeAll, nil)
	promo.Active = false
	if _, reason := ApplyPromo(promo, 9.99, PlanPro, now); reason != PromoInactive {
		t.Fatalf("inactive: reason=%q, want %q", reason, PromoInactive)
	}

	promo = fixturePromo(ScopeAll, nil)
	promo.DiscountPercent = 120
	if _, reason := ApplyPromo(promo, 9.99, PlanPro, now); reason != PromoBadDiscount {
		t.Fatalf("120%%: reason=%q, want %q", reason, PromoBadDiscount)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  summer24 "); got != "SUMMER24" {
		t.Fatalf("NormalizeCode=%q, want SUMMER24", got)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{14.9925, 14.99},
		{14.995, 15.00},
		{0, 0},
		{9.999, 10.00},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v)=%v, want %v", c.in, got, c.want)
		}
	}
}
