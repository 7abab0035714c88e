// handlers/chat.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"vaulty/database"
	"vaulty/middleware"
	"vaulty/models"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

type CreateCompanionRequest struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

// CreateCompanion adds an AI persona, subject to the caller's plan slot
// limit.
func CreateCompanion(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req CreateCompanionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name required"})
	}

	companion, err := services.GetCompanionService().CreateCompanion(userID, req.Name, req.Persona, time.Now().UTC())
	if err != nil {
		if errors.Is(err, services.ErrSlotLimitReached) {
			return c.Status(403).JSON(fiber.Map{"error": "Companion slot limit reached for your plan"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create companion"})
	}

	return c.Status(201).JSON(fiber.Map{
		"success":   true,
		"companion": companion,
	})
}

// GetCompanions lists the caller's personas.
func GetCompanions(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()
	var companions []models.Companion
	if err := db.Where("owner_id = ?", userID).Order("created_at ASC").Find(&companions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch companions"})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"companions": companions,
	})
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendChatMessage runs one companion chat turn. A credit is consumed before
// the AI call; an exhausted quota is refused up front.
func SendChatMessage(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	companionID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid companion id"})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Content == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Message content required"})
	}

	reply, err := services.GetCompanionService().SendMessage(userID, uint(companionID), req.Content, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuotaExceeded):
			return c.Status(429).JSON(fiber.Map{"error": "Daily message credits exhausted"})
		case errors.Is(err, services.ErrAIUnavailable):
			return c.Status(503).JSON(fiber.Map{"error": "AI service unavailable, try again later"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": reply,
	})
}

// GetChatMessages returns a companion conversation, oldest first.
func GetChatMessages(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	companionID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid companion id"})
	}

	db := database.GetDB()
	var companion models.Companion
	if err := db.First(&companion, companionID).Error; err != nil || companion.OwnerID != userID {
		return c.Status(404).JSON(fiber.Map{"error": "Companion not found"})
	}

	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var messages []models.ChatMessage
	if err := db.Where("companion_id = ?", companionID).
		Order("created_at ASC").Limit(limit).Find(&messages).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}

	out := make([]fiber.Map, 0, len(messages))
	for _, m := range messages {
		out = append(out, fiber.Map{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"reactions":  m.ReactionMap(),
			"created_at": m.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"messages": out,
	})
}

type SaveMemoryRequest struct {
	Content string `json:"content"`
}

// SaveCompanionMemory stores a persona note, charged against the caller's
// plan memory quota.
func SaveCompanionMemory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	companionID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid companion id"})
	}

	var req SaveMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Content == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Memory content required"})
	}

	memory, err := services.GetCompanionService().SaveMemory(userID, uint(companionID), req.Content, time.Now().UTC())
	if err != nil {
		if errors.Is(err, services.ErrMemoryQuotaExceeded) {
			return c.Status(403).JSON(fiber.Map{"error": "Memory quota exceeded for your plan"})
		}
		return c.Status(404).JSON(fiber.Map{"error": "Companion not found"})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"memory":  memory,
	})
}

// GetCompanionMemories lists a companion's stored notes.
func GetCompanionMemories(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	companionID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid companion id"})
	}

	memories, err := services.GetCompanionService().Memories(userID, uint(companionID))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Companion not found"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"memories": memories,
	})
}

// DeleteCompanionMemory removes a stored note and frees its metered size.
func DeleteCompanionMemory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	memoryID, err := c.ParamsInt("memoryId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid memory id"})
	}

	if err := services.GetCompanionService().DeleteMemory(userID, uint(memoryID)); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Memory not found"})
	}

	return c.JSON(fiber.Map{"success": true})
}

type ReactRequest struct {
	Emoji string `json:"emoji"`
}

// ReactToMessage sets or clears the caller's reaction on a message. One
// reaction per user per message, last write wins; an empty emoji removes it.
func ReactToMessage(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid message id"})
	}

	var req ReactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	db := database.GetDB()
	var message models.ChatMessage
	if err := db.First(&message, messageID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Message not found"})
	}

	// Companion conversations are private to their owner.
	if message.CompanionID != nil {
		var companion models.Companion
		if err := db.First(&companion, *message.CompanionID).Error; err != nil || companion.OwnerID != userID {
			return c.Status(404).JSON(fiber.Map{"error": "Message not found"})
		}
	}

	message.SetReaction(strconv.FormatUint(uint64(userID), 10), req.Emoji)
	if err := db.Model(&message).Update("reactions", message.Reactions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update reaction"})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"reactions": message.ReactionMap(),
	})
}
