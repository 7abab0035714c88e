// handlers/progression.go
package handlers

import (
	"vaulty/database"
	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

// GetProgression returns the user's rank, progress toward the next rank and
// earned badges.
func GetProgression(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()
	var user models.User
	if err := db.Preload("Badges.Badge").First(&user, userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	rank := user.Rank()
	next := ledger.NextRank(user.XP)

	resp := fiber.Map{
		"success":        true,
		"xp":             user.XP,
		"rank":           rank,
		"show_rank_icon": ledger.ShowRankIcon(user.XP),
		"badges":         user.Badges,
	}
	if next != nil {
		resp["next_rank"] = next
		resp["xp_to_next"] = next.MinXP - user.XP
	}

	return c.JSON(resp)
}

// GetRanks returns the full rank table so clients can render the ladder.
func GetRanks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":                true,
		"ranks":                  ledger.Ranks,
		"rank_icon_threshold_xp": ledger.RankIconThresholdXP,
	})
}

// GetBadgeCatalog lists every badge that can be earned.
func GetBadgeCatalog(c *fiber.Ctx) error {
	db := database.GetDB()
	var badges []models.Badge
	if err := db.Order("id ASC").Find(&badges).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"badges":  badges,
	})
}
