// services/wallet.go - Point balance ledger
package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"vaulty/ledger"
	"vaulty/models"

	"gorm.io/gorm"
)

// SystemBotUserID is the reserved feed-bot account, never eligible to win a
// giveaway.
const SystemBotUserID uint = 1

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount out of bounds")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrNoCandidates        = errors.New("no eligible giveaway participants")
)

type WalletService struct {
	DB     *gorm.DB
	Events *EventBroker
}

func NewWalletService(db *gorm.DB, events *EventBroker) *WalletService {
	return &WalletService{DB: db, Events: events}
}

// Transfer atomically moves points between two users and appends the ledger
// row. The debit is a conditional decrement: it re-checks the balance at
// write time inside the transaction, so two concurrent transfers can never
// jointly overdraw the sender.
func (s *WalletService) Transfer(fromID, toID uint, amount int, kind models.TransferKind, note string) (*models.Transfer, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, ErrSelfTransfer
	}

	transfer := models.Transfer{
		FromUserID: &fromID,
		ToUserID:   &toID,
		Amount:     amount,
		Kind:       kind,
		Note:       note,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= ?", fromID, amount).
			UpdateColumn("points", gorm.Expr("points - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		res = tx.Model(&models.User{}).
			Where("id = ?", toID).
			UpdateColumn("points", gorm.Expr("points + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("recipient %d not found", toID)
		}

		return tx.Create(&transfer).Error
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(LedgerEvent{Type: "transfer", UserID: toID, Payload: map[string]interface{}{
		"from": fromID, "amount": amount, "kind": kind,
	}})

	return &transfer, nil
}

// Tip validates the tip bounds then transfers.
func (s *WalletService) Tip(fromID, toID uint, amount int) (*models.Transfer, error) {
	if !ledger.ValidTipAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.Transfer(fromID, toID, amount, models.TransferTip, "tip")
}

// Grant credits points with no sender (admin grant, quest reward, purchase
// bonus). Amount may not be negative; debits go through Transfer or Redeem.
func (s *WalletService) Grant(toID uint, amount int, kind models.TransferKind, note string) (*models.Transfer, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	transfer := models.Transfer{
		ToUserID: &toID,
		Amount:   amount,
		Kind:     kind,
		Note:     note,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", toID).
			UpdateColumn("points", gorm.Expr("points + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d not found", toID)
		}
		return tx.Create(&transfer).Error
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(LedgerEvent{Type: "grant", UserID: toID, Payload: map[string]interface{}{
		"amount": amount, "kind": kind,
	}})

	return &transfer, nil
}

// RedeemGiftCard debits a gift-card denomination with the same conditional
// decrement guard as Transfer.
func (s *WalletService) RedeemGiftCard(userID uint, amount int) (*models.Transfer, error) {
	if !ledger.ValidGiftCardAmount(amount) {
		return nil, ErrInvalidAmount
	}

	transfer := models.Transfer{
		FromUserID: &userID,
		Amount:     amount,
		Kind:       models.TransferRedeem,
		Note:       fmt.Sprintf("gift card %d", amount),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= ?", userID, amount).
			UpdateColumn("points", gorm.Expr("points - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return tx.Create(&transfer).Error
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(LedgerEvent{Type: "transfer", UserID: userID, Payload: map[string]interface{}{
		"amount": -amount, "kind": models.TransferRedeem,
	}})

	return &transfer, nil
}

// PickGiveawayWinner selects a uniform-random distinct sender among the most
// recent messages in a channel, excluding the initiator and the system bot.
func (s *WalletService) PickGiveawayWinner(channelID string, initiatorID uint) (uint, error) {
	var messages []models.ChatMessage
	if err := s.DB.Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(ledger.GiveawayWindow).
		Find(&messages).Error; err != nil {
		return 0, err
	}

	seen := map[uint]bool{}
	candidates := []uint{}
	for _, m := range messages {
		if m.SenderID == nil {
			continue
		}
		id := *m.SenderID
		if id == initiatorID || id == SystemBotUserID || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// Giveaway picks a winner and transfers the prize in one flow. An empty
// candidate set denies the action with no transfer.
func (s *WalletService) Giveaway(channelID string, initiatorID uint, amount int) (uint, *models.Transfer, error) {
	winner, err := s.PickGiveawayWinner(channelID, initiatorID)
	if err != nil {
		return 0, nil, err
	}

	transfer, err := s.Transfer(initiatorID, winner, amount, models.TransferGiveaway, fmt.Sprintf("giveaway in %s", channelID))
	if err != nil {
		return 0, nil, err
	}
	return winner, transfer, nil
}

// History returns a user's ledger rows, newest first.
func (s *WalletService) History(userID uint, limit int) ([]models.Transfer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var transfers []models.Transfer
	err := s.DB.Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transfers).Error
	return transfers, err
}

// AwardXP adds experience and publishes a rank_up event when the addition
// crosses a threshold.
func (s *WalletService) AwardXP(userID uint, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	var before models.User
	if err := s.DB.Select("id", "xp").First(&before, userID).Error; err != nil {
		return err
	}

	if err := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("xp", gorm.Expr("xp + ?", amount)).Error; err != nil {
		return err
	}

	oldRank := ledger.RankForXP(before.XP)
	newRank := ledger.RankForXP(before.XP + amount)
	if newRank.MinXP > oldRank.MinXP {
		s.Events.Publish(LedgerEvent{Type: "rank_up", UserID: userID, Payload: map[string]interface{}{
			"rank": newRank.ID, "rank_name": newRank.Name,
		}, Timestamp: time.Now().UTC()})
	}
	return nil
}
