package admin

import (
	"time"

	"vaulty/database"
	"vaulty/ledger"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

// GetBadges lists the badge catalog with per-badge holder counts
func GetBadges(c *fiber.Ctx) error {
	db := database.GetDB()

	var badges []models.Badge
	if err := db.Order("id ASC").Find(&badges).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch badges",
		})
	}

	counts := map[string]int64{}
	rows := []struct {
		BadgeID string
		Count   int64
	}{}
	db.Model(&models.UserBadge{}).
		Select("badge_id, COUNT(*) as count").
		Group("badge_id").
		Scan(&rows)
	for _, r := range rows {
		counts[r.BadgeID] = r.Count
	}

	out := make([]fiber.Map, 0, len(badges))
	for _, b := range badges {
		out = append(out, fiber.Map{
			"badge":   b,
			"holders": counts[b.ID],
			"premium": ledger.IsPremiumBadge(b.ID),
		})
	}

	return c.JSON(fiber.Map{
		"badges": out,
		"total":  len(badges),
	})
}

type AwardBadgeRequest struct {
	UserID  uint   `json:"user_id"`
	BadgeID string `json:"badge_id"`
}

// AwardBadge manually grants a catalog badge. Premium-family badges cannot
// be granted here; they are derived from the user's plan.
func AwardBadge(c *fiber.Ctx) error {
	var req AwardBadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if ledger.IsPremiumBadge(req.BadgeID) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Premium badges follow the subscription plan",
		})
	}

	db := database.GetDB()
	var badge models.Badge
	if err := db.First(&badge, "id = ?", req.BadgeID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Badge not found",
		})
	}
	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	award := models.UserBadge{
		UserID:    req.UserID,
		BadgeID:   req.BadgeID,
		AwardedAt: time.Now().UTC(),
	}
	if err := db.Create(&award).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "User already holds this badge",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"award":   award,
	})
}

// RevokeBadge removes a manually granted badge
func RevokeBadge(c *fiber.Ctx) error {
	var req AwardBadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if ledger.IsPremiumBadge(req.BadgeID) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Premium badges follow the subscription plan",
		})
	}

	db := database.GetDB()
	res := db.Where("user_id = ? AND badge_id = ?", req.UserID, req.BadgeID).
		Delete(&models.UserBadge{})
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to revoke badge",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{
			"error": "User does not hold this badge",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Badge revoked successfully",
	})
}
