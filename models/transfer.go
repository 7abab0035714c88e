// models/transfer.go
package models

import "time"

type TransferKind string

const (
	TransferTip      TransferKind = "tip"
	TransferGiveaway TransferKind = "giveaway"
	TransferGrant    TransferKind = "grant"  // admin credit, no sender
	TransferRedeem   TransferKind = "redeem" // gift-card debit, no recipient
	TransferBonus    TransferKind = "bonus"  // plan purchase / quest / referral
)

// Transfer is an immutable ledger record. Rows are append-only; balances are
// mutated only inside the same transaction that creates the row.
type Transfer struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	FromUserID *uint        `gorm:"index" json:"from_user_id,omitempty"`
	ToUserID   *uint        `gorm:"index" json:"to_user_id,omitempty"`
	Amount     int          `gorm:"not null" json:"amount"`
	Kind       TransferKind `gorm:"not null;size:20;index" json:"kind"`
	Note       string       `gorm:"size:200" json:"note"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (Transfer) TableName() string {
	return "transfers"
}
