// handlers/users.go
package handlers

import (
	"time"

	"vaulty/database"
	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe returns the authenticated user's full profile, ledger state and
// plan limits.
func GetMe(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()
	var user models.User
	if err := db.Preload("Badges.Badge").First(&user, userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	now := time.Now().UTC()
	plan := user.EffectivePlan(now)
	limits := ledger.LimitsFor(plan)

	used := user.MessageCreditsUsed
	if user.CreditsDay != ledger.DayKey(now) {
		used = 0
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"rank":    user.Rank(),
		"plan": fiber.Map{
			"tier":         plan,
			"expiry":       user.PlanExpiry,
			"limits":       limits,
			"credits_used": used,
			"memory_quota": limits.MemoryQuotaGB,
			"memory_used":  user.MemoryUsedMB / 1024.0,
		},
	})
}

// GetProfile returns another user's public profile
func GetProfile(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid user id"})
	}

	db := database.GetDB()
	var user models.User
	if err := db.Preload("Badges.Badge").First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	if user.IsGhost {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	user.Password = ""
	user.Email = nil

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"rank":    user.Rank(),
	})
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
	Bio         *string `json:"bio"`
	IsGhost     *bool   `json:"is_ghost"`
}

// UpdateProfile applies partial profile edits. Ghost mode hides the account
// from leaderboards and public lookups without touching the ledger.
func UpdateProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.IsGhost != nil {
		updates["is_ghost"] = *req.IsGhost
	}
	if len(updates) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Nothing to update"})
	}

	db := database.GetDB()
	if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	var user models.User
	db.First(&user, userID)
	user.Password = ""

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
