package admin

import (
	"time"

	"vaulty/database"
	"vaulty/ledger"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

type PromoRequest struct {
	Code            string     `json:"code"`
	DiscountPercent *float64   `json:"discount_percent"`
	ScopePlan       string     `json:"scope_plan"`
	ExpiresAt       *time.Time `json:"expires_at"`
	Active          *bool      `json:"active"`
}

// promoScope validates a scope value the way quoting applies it: a paid plan
// name or "All".
func promoScope(raw string) (string, bool) {
	if raw == "" || raw == ledger.ScopeAll {
		return ledger.ScopeAll, true
	}
	plan, ok := ledger.ParsePlan(raw)
	if !ok || !plan.IsPaid() {
		return "", false
	}
	return string(plan), true
}

// GetPromos lists all promo codes
func GetPromos(c *fiber.Ctx) error {
	db := database.GetDB()

	var promos []models.PromoCode
	if err := db.Order("created_at DESC").Find(&promos).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch promo codes",
		})
	}

	return c.JSON(fiber.Map{
		"promos": promos,
		"total":  len(promos),
	})
}

// CreatePromo adds a promo code. The discount must be a valid percentage
// and the scope either a known plan or "All".
func CreatePromo(c *fiber.Ctx) error {
	var req PromoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	code := ledger.NormalizeCode(req.Code)
	if code == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Code required",
		})
	}
	discount := 0.0
	if req.DiscountPercent != nil {
		discount = *req.DiscountPercent
	}
	if !ledger.ValidDiscountPercent(discount) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Discount must be between 0 and 100",
		})
	}

	scope, ok := promoScope(req.ScopePlan)
	if !ok {
		return c.Status(400).JSON(fiber.Map{
			"error": "Scope must be a paid plan name or All",
		})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var adminID *uint
	if id, ok := c.Locals("userId").(float64); ok {
		v := uint(id)
		adminID = &v
	}

	promo := models.PromoCode{
		Code:            code,
		DiscountPercent: discount,
		ScopePlan:       scope,
		ExpiresAt:       req.ExpiresAt,
		Active:          active,
		CreatedBy:       adminID,
	}

	db := database.GetDB()
	if err := db.Create(&promo).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Code already exists",
		})
	}

	return c.Status(201).JSON(promo)
}

// UpdatePromo edits an existing promo code
func UpdatePromo(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var promo models.PromoCode
	if err := db.First(&promo, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Promo code not found",
		})
	}

	var req PromoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Code != "" {
		promo.Code = ledger.NormalizeCode(req.Code)
	}
	if req.DiscountPercent != nil {
		if !ledger.ValidDiscountPercent(*req.DiscountPercent) {
			return c.Status(400).JSON(fiber.Map{
				"error": "Discount must be between 0 and 100",
			})
		}
		promo.DiscountPercent = *req.DiscountPercent
	}
	if req.ScopePlan != "" {
		scope, ok := promoScope(req.ScopePlan)
		if !ok {
			return c.Status(400).JSON(fiber.Map{
				"error": "Scope must be a paid plan name or All",
			})
		}
		promo.ScopePlan = scope
	}
	if req.ExpiresAt != nil {
		promo.ExpiresAt = req.ExpiresAt
	}
	if req.Active != nil {
		promo.Active = *req.Active
	}

	if err := db.Save(&promo).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to update promo code",
		})
	}

	return c.JSON(promo)
}

// DeletePromo removes a promo code. Past payments that used it are
// unaffected.
func DeletePromo(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	res := db.Delete(&models.PromoCode{}, id)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete promo code",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{
			"error": "Promo code not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Promo code deleted successfully",
	})
}
