// ledger/plans.go - Subscription tiers and resource limits
package ledger

import (
	"strings"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanUltra Plan = "ultra"
	PlanMax   Plan = "max"
)

// PlanDuration is how long a paid plan lasts after purchase.
const PlanDuration = 30 * 24 * time.Hour

// UnlimitedCredits marks a tier with no daily message credit cap.
const UnlimitedCredits = -1

// PlanLimits is the per-tier resource limit table.
type PlanLimits struct {
	DailyMessageCredits int     `json:"daily_message_credits"` // -1 = unlimited
	MemoryQuotaGB       float64 `json:"memory_quota_gb"`
	CompanionSlots      int     `json:"companion_slots"`
	PriceUSD            float64 `json:"price_usd"`
	BonusPoints         int     `json:"bonus_points"` // granted once on purchase
}

// Plans lists every tier in ascending order.
var Plans = []Plan{PlanFree, PlanPro, PlanUltra, PlanMax}

var planLimits = map[Plan]PlanLimits{
	PlanFree:  {DailyMessageCredits: 20, MemoryQuotaGB: 0.5, CompanionSlots: 1, PriceUSD: 0, BonusPoints: 0},
	PlanPro:   {DailyMessageCredits: 200, MemoryQuotaGB: 2, CompanionSlots: 3, PriceUSD: 9.99, BonusPoints: 500},
	PlanUltra: {DailyMessageCredits: 1000, MemoryQuotaGB: 8, CompanionSlots: 10, PriceUSD: 19.99, BonusPoints: 1500},
	PlanMax:   {DailyMessageCredits: UnlimitedCredits, MemoryQuotaGB: 32, CompanionSlots: 25, PriceUSD: 49.99, BonusPoints: 5000},
}

// ParsePlan normalizes a tier name. Unknown names are not valid.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlanFree, PlanPro, PlanUltra, PlanMax:
		return p, true
	}
	return "", false
}

// IsPaid reports whether the plan is a paid tier.
func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanUltra || p == PlanMax
}

// LimitsFor returns the limit table entry for a plan. Unknown plans get the
// free tier limits.
func LimitsFor(p Plan) PlanLimits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// EffectivePlan combines the stored plan with its expiry. A paid plan whose
// expiry has passed (or was never set) counts as free for every limit check,
// even if a cleanup sweep has not reset the stored field yet.
func EffectivePlan(p Plan, expiry *time.Time, now time.Time) Plan {
	if !p.IsPaid() {
		return PlanFree
	}
	if expiry == nil || !expiry.After(now) {
		return PlanFree
	}
	return p
}

// CanSpendCredits reports whether spending cost more message credits stays
// within the effective plan's daily allowance.
func CanSpendCredits(p Plan, expiry *time.Time, now time.Time, used, cost int) bool {
	limits := LimitsFor(EffectivePlan(p, expiry, now))
	if limits.DailyMessageCredits == UnlimitedCredits {
		return true
	}
	return used+cost <= limits.DailyMessageCredits
}

// CanUseMemory reports whether totalMB stays within the effective plan's
// memory quota.
func CanUseMemory(p Plan, expiry *time.Time, now time.Time, totalMB float64) bool {
	limits := LimitsFor(EffectivePlan(p, expiry, now))
	return totalMB <= limits.MemoryQuotaGB*1024
}
