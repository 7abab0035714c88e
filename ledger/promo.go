// ledger/promo.go - Promo-code validation and discount math
package ledger

import (
	"math"
	"strings"
	"time"
)

// ScopeAll makes a promo code valid for every paid plan.
const ScopeAll = "All"

// PromoRejectReason explains why a promo application was refused.
type PromoRejectReason string

const (
	PromoNotFound    PromoRejectReason = "code not found"
	PromoInactive    PromoRejectReason = "code is not active"
	PromoExpired     PromoRejectReason = "code has expired"
	PromoWrongPlan   PromoRejectReason = "code does not apply to this plan"
	PromoBadDiscount PromoRejectReason = "invalid discount percentage"
)

// PromoInput is the stored promo record as seen by the discount engine.
type PromoInput struct {
	Code            string
	DiscountPercent float64
	ScopePlan       string // specific plan name or ScopeAll
	ExpiresAt       *time.Time
	Active          bool
}

// PromoResult is a successfully applied discount.
type PromoResult struct {
	DiscountedPrice float64 `json:"discounted_price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// NormalizeCode upper-cases and trims a promo code for case-insensitive
// exact matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidDiscountPercent checks the closed interval [0,100]. Enforced at
// creation time and again, defensively, at application time.
func ValidDiscountPercent(pct float64) bool {
	return pct >= 0 && pct <= 100
}

// Round2 rounds a currency amount to 2 decimals, half-up on the scaled
// integer.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ApplyPromo validates a promo record against the target plan and computes
// the discounted price. A nil reason means the discount was granted.
func ApplyPromo(promo PromoInput, basePrice float64, targetPlan Plan, now time.Time) (*PromoResult, PromoRejectReason) {
	if !promo.Active {
		return nil, PromoInactive
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return nil, PromoExpired
	}
	if !ValidDiscountPercent(promo.DiscountPercent) {
		return nil, PromoBadDiscount
	}
	scope := strings.TrimSpace(promo.ScopePlan)
	if scope != "" && !strings.EqualFold(scope, ScopeAll) && !strings.EqualFold(scope, string(targetPlan)) {
		return nil, PromoWrongPlan
	}

	return &PromoResult{
		DiscountedPrice: Round2(basePrice * (1 - promo.DiscountPercent/100)),
		DiscountPercent: promo.DiscountPercent,
	}, ""
}
