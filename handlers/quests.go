// handlers/quests.go
package handlers

import (
	"errors"
	"time"

	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

// GetQuests returns the quest catalog with the user's progress for today.
func GetQuests(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	progress, err := services.GetQuestService().Progress(userID, time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch quests"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"quests":  progress,
	})
}

type ClaimQuestRequest struct {
	Action string `json:"action"`
}

// ClaimQuest grants one quest reward if today's cap allows.
func ClaimQuest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req ClaimQuestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	action, ok := ledger.ParseQuestAction(req.Action)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Unknown quest action"})
	}

	grant, err := services.GetQuestService().Claim(userID, action, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestCapReached):
			return c.Status(429).JSON(fiber.Map{"error": "Daily cap reached"})
		case errors.Is(err, services.ErrUnknownQuest):
			return c.Status(400).JSON(fiber.Map{"error": "Quest cannot be claimed directly"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": "Failed to claim quest"})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"grant":   grant,
	})
}

// GetReferralCode returns (creating if needed) the user's invite code.
func GetReferralCode(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	referral, err := services.GetQuestService().IssueReferral(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to issue referral"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"code":    referral.Code,
		"status":  referral.Status,
		"reward": fiber.Map{
			"points": ledger.ReferralRewardPoints,
			"xp":     ledger.ReferralRewardXP,
		},
	})
}
