// handlers/plans.go
package handlers

import (
	"time"

	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

// GetPlanTiers lists every subscription tier with its limits and price.
func GetPlanTiers(c *fiber.Ctx) error {
	tiers := make([]fiber.Map, 0, len(ledger.Plans))
	for _, p := range ledger.Plans {
		tiers = append(tiers, fiber.Map{
			"plan":   p,
			"limits": ledger.LimitsFor(p),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"tiers":   tiers,
	})
}

type QuotePlanRequest struct {
	Plan      string `json:"plan"`
	PromoCode string `json:"promo_code,omitempty"`
}

// QuotePlan prices a tier with an optional promo code. The code is validated
// against the requested tier on every call; switching tiers re-runs the
// validation rather than carrying an earlier discount over.
func QuotePlan(c *fiber.Ctx) error {
	if _, err := middleware.GetUserID(c); err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req QuotePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	plan, ok := ledger.ParsePlan(req.Plan)
	if !ok || !plan.IsPaid() {
		return c.Status(400).JSON(fiber.Map{"error": "Unknown plan"})
	}

	price, promo, reason, err := services.GetPlanService().QuotePlan(plan, req.PromoCode, time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to quote plan"})
	}

	resp := fiber.Map{
		"success": true,
		"plan":    plan,
		"price":   price,
	}
	if promo != nil {
		resp["promo"] = promo
	}
	if reason != "" {
		resp["promo_rejected"] = string(reason)
	}
	return c.JSON(resp)
}

type ConfirmPaymentRequest struct {
	ProviderRef string  `json:"provider_ref"`
	Plan        string  `json:"plan"`
	AmountUSD   float64 `json:"amount_usd"`
	PromoCode   string  `json:"promo_code,omitempty"`
}

// ConfirmPayment applies a successful payment callback: the plan is
// upgraded, the purchase bonus granted and the payment recorded. Replays of
// the same provider reference are acknowledged without double-crediting.
func ConfirmPayment(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ProviderRef == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Provider reference required"})
	}

	plan, ok := ledger.ParsePlan(req.Plan)
	if !ok || !plan.IsPaid() {
		return c.Status(400).JSON(fiber.Map{"error": "Unknown plan"})
	}

	payment, err := services.GetPlanService().ConfirmPayment(
		req.ProviderRef, userID, plan, req.AmountUSD, req.PromoCode, time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to confirm payment"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": payment,
	})
}

type ChangePlanRequest struct {
	Plan string `json:"plan"`
}

// DowngradePlan lets a user drop to the free tier immediately. Paid
// upgrades go through the payment flow instead.
func DowngradePlan(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req ChangePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	plan, ok := ledger.ParsePlan(req.Plan)
	if !ok || plan.IsPaid() {
		return c.Status(400).JSON(fiber.Map{"error": "Only downgrades to free are allowed here"})
	}

	user, err := services.GetPlanService().ChangePlan(userID, plan, time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to change plan"})
	}
	user.Password = ""

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
