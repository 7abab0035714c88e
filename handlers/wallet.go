// handlers/wallet.go
package handlers

import (
	"errors"

	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

type TipRequest struct {
	ToUserID uint `json:"to_user_id"`
	Amount   int  `json:"amount"`
}

// Tip moves points from the caller to another user. The debit is conditional
// on sufficient balance; there is no partial state on failure.
func Tip(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req TipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	transfer, err := services.GetWalletService().Tip(userID, req.ToUserID, req.Amount)
	if err != nil {
		return c.Status(walletErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"transfer": transfer,
	})
}

type GiveawayRequest struct {
	ChannelID string `json:"channel_id"`
	Amount    int    `json:"amount"`
}

// Giveaway picks a random recent participant in the channel and pays them
// from the caller's balance.
func Giveaway(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req GiveawayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ChannelID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Channel required"})
	}

	winnerID, transfer, err := services.GetWalletService().Giveaway(req.ChannelID, userID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrNoCandidates) {
			return c.Status(400).JSON(fiber.Map{"error": "No eligible participants"})
		}
		return c.Status(walletErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"winner_id": winnerID,
		"transfer":  transfer,
	})
}

type RedeemGiftCardRequest struct {
	Amount int `json:"amount"`
}

// RedeemGiftCard converts points into a gift card at a fixed denomination.
func RedeemGiftCard(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req RedeemGiftCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	transfer, err := services.GetWalletService().RedeemGiftCard(userID, req.Amount)
	if err != nil {
		return c.Status(walletErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"transfer":      transfer,
		"denominations": ledger.GiftCardDenominations,
	})
}

// GetTransferHistory returns the caller's recent ledger entries, newest
// first.
func GetTransferHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	transfers, err := services.GetWalletService().History(userID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch history"})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"transfers": transfers,
	})
}

func walletErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		return 402
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrSelfTransfer):
		return 400
	case errors.Is(err, services.ErrUserNotFound):
		return 404
	default:
		return 500
	}
}
