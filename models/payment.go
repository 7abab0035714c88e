// models/payment.go
package models

import (
	"time"

	"vaulty/ledger"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// Payment records a purchase. ProviderRef is the processor's idempotency
// key: a duplicate success callback finds the existing row and performs no
// second upgrade. A row stays pending until the upgrade has applied, so a
// retry of a half-finished confirmation resumes instead of short-circuiting.
type Payment struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ProviderRef string        `gorm:"uniqueIndex;not null;size:100" json:"provider_ref"`
	UserID      uint          `gorm:"not null;index" json:"user_id"`
	Plan        ledger.Plan   `gorm:"not null;size:20" json:"plan"`
	AmountUSD   float64       `json:"amount_usd"`
	PromoCode   string        `gorm:"size:50" json:"promo_code,omitempty"`
	Status      PaymentStatus `gorm:"not null;size:20" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
