// ledger/badges.go - Premium badge family rules
package ledger

import "strings"

// Premium badge ids. Exactly one may be held at a time; holding one implies
// an active paid plan of the matching tier.
const (
	BadgePremiumPro   = "premium-pro"
	BadgePremiumUltra = "premium-ultra"
	BadgePremiumMax   = "premium-max"
)

// IsPremiumBadge reports whether a badge id belongs to the mutually
// exclusive premium family.
func IsPremiumBadge(id string) bool {
	return strings.Contains(strings.ToLower(id), "premium")
}

// PremiumBadgeForPlan returns the badge id granted by a paid plan, or ""
// for the free tier.
func PremiumBadgeForPlan(p Plan) string {
	switch p {
	case PlanPro:
		return BadgePremiumPro
	case PlanUltra:
		return BadgePremiumUltra
	case PlanMax:
		return BadgePremiumMax
	}
	return ""
}

// BadgesAfterPlanChange recomputes the full badge set for a plan change:
// every premium-family badge is stripped, then the badge for the new plan
// (if paid) is added. Recomputing from the target plan instead of toggling
// incrementally makes retries idempotent.
func BadgesAfterPlanChange(current []string, newPlan Plan) []string {
	out := make([]string, 0, len(current)+1)
	for _, id := range current {
		if !IsPremiumBadge(id) {
			out = append(out, id)
		}
	}
	if b := PremiumBadgeForPlan(newPlan); b != "" {
		out = append(out, b)
	}
	return out
}
