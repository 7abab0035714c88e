// services/companion.go - Conversational AI collaborator
package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"vaulty/ledger"
	"vaulty/models"

	"gorm.io/gorm"
)

var (
	ErrQuotaExceeded       = errors.New("daily message credits exhausted")
	ErrSlotLimitReached    = errors.New("companion slot limit reached")
	ErrMemoryQuotaExceeded = errors.New("memory quota exceeded")
	ErrAIUnavailable       = errors.New("AI service unavailable")
)

// MessageCreditCost is how many daily credits one chat turn consumes.
const MessageCreditCost = 1

// ChatTurn is one entry of the rolling context window sent to the AI API.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIClient calls the generative-AI HTTP API. Transient failures are retried
// with exponential backoff up to MaxAttempts, then surfaced as a hard error.
type AIClient struct {
	BaseURL     string
	APIKey      string
	Client      *http.Client
	MaxAttempts int
	Backoff     time.Duration // initial delay, doubled per attempt
}

func NewAIClient() *AIClient {
	baseURL := os.Getenv("AI_API_URL")
	if baseURL == "" {
		baseURL = "https://api.generative.example/v1/chat"
	}
	return &AIClient{
		BaseURL: baseURL,
		APIKey:  os.Getenv("AI_API_KEY"),
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

type aiRequest struct {
	System   string     `json:"system"`
	Messages []ChatTurn `json:"messages"`
}

type aiResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Complete sends the system instruction plus the rolling window of prior
// turns and returns the generated text.
func (c *AIClient) Complete(system string, turns []ChatTurn) (string, error) {
	payload, err := json.Marshal(aiRequest{System: system, Messages: turns})
	if err != nil {
		return "", err
	}

	backoff := c.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	var lastErr error

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		req, err := http.NewRequest("POST", c.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				var out aiResponse
				if err := json.Unmarshal(body, &out); err != nil {
					return "", err
				}
				return out.Content, nil
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("AI API returned %d", resp.StatusCode)
			default:
				// Client errors are not retryable.
				return "", fmt.Errorf("AI API returned %d: %s", resp.StatusCode, string(body))
			}
		}

		if attempt < c.MaxAttempts {
			log.Printf("AI call attempt %d/%d failed: %v (retrying in %s)", attempt, c.MaxAttempts, lastErr, backoff)
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return "", fmt.Errorf("%w: %v", ErrAIUnavailable, lastErr)
}

// ContextWindow is how many prior turns ride along with each AI call.
const ContextWindow = 20

type CompanionService struct {
	DB *gorm.DB
	AI *AIClient
}

func NewCompanionService(db *gorm.DB, ai *AIClient) *CompanionService {
	return &CompanionService{DB: db, AI: ai}
}

// CreateCompanion adds a persona, gated on the owner's effective plan slot
// limit.
func (s *CompanionService) CreateCompanion(ownerID uint, name, persona string, now time.Time) (*models.Companion, error) {
	var user models.User
	if err := s.DB.First(&user, ownerID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	limits := ledger.LimitsFor(user.EffectivePlan(now))
	var count int64
	s.DB.Model(&models.Companion{}).Where("owner_id = ?", ownerID).Count(&count)
	if count >= int64(limits.CompanionSlots) {
		return nil, ErrSlotLimitReached
	}

	companion := models.Companion{
		OwnerID: ownerID,
		Name:    name,
		Persona: persona,
	}
	if err := s.DB.Create(&companion).Error; err != nil {
		return nil, err
	}
	return &companion, nil
}

// SendMessage runs one chat turn: the quota is checked and consumed before
// the external AI call is made, so an exhausted user never triggers
// unmetered spend. On AI failure the user turn stays recorded and the
// credit is not refunded.
func (s *CompanionService) SendMessage(userID, companionID uint, content string, now time.Time) (*models.ChatMessage, error) {
	var companion models.Companion
	if err := s.DB.First(&companion, companionID).Error; err != nil {
		return nil, errors.New("companion not found")
	}
	if companion.OwnerID != userID {
		return nil, errors.New("companion not found")
	}

	if err := s.consumeCredit(userID, now); err != nil {
		return nil, err
	}

	userMsg := models.ChatMessage{
		CompanionID: &companion.ID,
		SenderID:    &userID,
		Role:        models.RoleUser,
		Content:     content,
	}
	if err := s.DB.Create(&userMsg).Error; err != nil {
		return nil, err
	}

	turns, err := s.recentTurns(companion.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.AI.Complete(companion.Persona, turns)
	if err != nil {
		return nil, err
	}

	assistantMsg := models.ChatMessage{
		CompanionID: &companion.ID,
		Role:        models.RoleAssistant,
		Content:     reply,
	}
	if err := s.DB.Create(&assistantMsg).Error; err != nil {
		return nil, err
	}
	return &assistantMsg, nil
}

// consumeCredit spends one daily message credit, resetting the accumulator
// at the UTC day boundary. The limit check always combines plan AND expiry;
// the stored plan field alone is never trusted. The cap itself is enforced
// by conditional updates so two concurrent spends cannot both pass against
// a stale counter.
func (s *CompanionService) consumeCredit(userID uint, now time.Time) error {
	day := ledger.DayKey(now)

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return ErrUserNotFound
		}
		limits := ledger.LimitsFor(user.EffectivePlan(now))

		// First spend of the day: the stale-day guard keeps a concurrent
		// spend from resetting the counter twice.
		roll := tx.Model(&models.User{}).
			Where("id = ? AND credits_day <> ?", userID, day).
			Updates(map[string]interface{}{
				"message_credits_used": MessageCreditCost,
				"credits_day":          day,
			})
		if roll.Error != nil {
			return roll.Error
		}
		if roll.RowsAffected == 1 {
			return nil
		}

		// Same-day spend: the cap rides in the statement itself.
		q := tx.Model(&models.User{}).Where("id = ? AND credits_day = ?", userID, day)
		if limits.DailyMessageCredits != ledger.UnlimitedCredits {
			q = q.Where("message_credits_used + ? <= ?", MessageCreditCost, limits.DailyMessageCredits)
		}
		res := q.UpdateColumn("message_credits_used", gorm.Expr("message_credits_used + ?", MessageCreditCost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExceeded
		}
		return nil
	})
}

// SaveMemory persists a note the persona carries across sessions. The note's
// size is charged against the owner's memory quota before anything is
// written, so a full quota never admits new memory. The check combines plan
// AND expiry like every other limit.
func (s *CompanionService) SaveMemory(userID, companionID uint, content string, now time.Time) (*models.CompanionMemory, error) {
	var companion models.Companion
	if err := s.DB.First(&companion, companionID).Error; err != nil {
		return nil, errors.New("companion not found")
	}
	if companion.OwnerID != userID {
		return nil, errors.New("companion not found")
	}

	memory := models.CompanionMemory{
		CompanionID: companion.ID,
		OwnerID:     userID,
		Content:     content,
		SizeMB:      float64(len(content)) / (1024 * 1024),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return ErrUserNotFound
		}
		if !ledger.CanUseMemory(user.Plan, user.PlanExpiry, now, user.MemoryUsedMB+memory.SizeMB) {
			return ErrMemoryQuotaExceeded
		}
		if err := tx.Create(&memory).Error; err != nil {
			return err
		}
		return tx.Model(&user).
			UpdateColumn("memory_used_mb", gorm.Expr("memory_used_mb + ?", memory.SizeMB)).Error
	})
	if err != nil {
		return nil, err
	}
	return &memory, nil
}

// Memories lists a companion's stored notes, oldest first.
func (s *CompanionService) Memories(userID, companionID uint) ([]models.CompanionMemory, error) {
	var companion models.Companion
	if err := s.DB.First(&companion, companionID).Error; err != nil {
		return nil, errors.New("companion not found")
	}
	if companion.OwnerID != userID {
		return nil, errors.New("companion not found")
	}

	var memories []models.CompanionMemory
	if err := s.DB.Where("companion_id = ?", companion.ID).
		Order("created_at ASC").
		Find(&memories).Error; err != nil {
		return nil, err
	}
	return memories, nil
}

// DeleteMemory removes a stored note and releases its metered size, clamped
// at zero.
func (s *CompanionService) DeleteMemory(userID, memoryID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var memory models.CompanionMemory
		if err := tx.First(&memory, memoryID).Error; err != nil {
			return errors.New("memory not found")
		}
		if memory.OwnerID != userID {
			return errors.New("memory not found")
		}
		if err := tx.Delete(&memory).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return ErrUserNotFound
		}
		remaining := user.MemoryUsedMB - memory.SizeMB
		if remaining < 0 {
			remaining = 0
		}
		return tx.Model(&user).UpdateColumn("memory_used_mb", remaining).Error
	})
}

func (s *CompanionService) recentTurns(companionID uint) ([]ChatTurn, error) {
	var messages []models.ChatMessage
	if err := s.DB.Where("companion_id = ?", companionID).
		Order("created_at DESC").
		Limit(ContextWindow).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	turns := make([]ChatTurn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		turns = append(turns, ChatTurn{Role: string(messages[i].Role), Content: messages[i].Content})
	}
	return turns, nil
}
