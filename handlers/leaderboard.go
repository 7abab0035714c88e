// handlers/leaderboard.go
package handlers

import (
	"vaulty/database"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns the global ranking. Ghost-mode accounts and guests
// are excluded.
// GET /api/leaderboard?category=points&limit=100&offset=0
func GetLeaderboard(c *fiber.Ctx) error {
	category := c.Query("category", "points")
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 100 {
		limit = 100
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var orderBy string
	switch category {
	case "xp":
		orderBy = "xp DESC, points DESC"
	case "points":
		orderBy = "points DESC, xp DESC"
	default:
		category = "points"
		orderBy = "points DESC, xp DESC"
	}

	db := database.GetDB()
	var users []models.User
	if err := db.Where("is_guest = ? AND is_ghost = ? AND is_banned = ?", false, false, false).
		Order(orderBy).
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	entries := make([]fiber.Map, 0, len(users))
	for i, u := range users {
		entries = append(entries, fiber.Map{
			"position":     offset + i + 1,
			"user_id":      u.ID,
			"username":     u.Username,
			"display_name": u.DisplayName,
			"avatar":       u.Avatar,
			"points":       u.Points,
			"xp":           u.XP,
			"rank":         u.Rank().Name,
		})
	}

	var total int64
	db.Model(&models.User{}).
		Where("is_guest = ? AND is_ghost = ? AND is_banned = ?", false, false, false).
		Count(&total)

	return c.JSON(fiber.Map{
		"success":  true,
		"entries":  entries,
		"category": category,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
