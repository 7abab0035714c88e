// models/promo.go
package models

import (
	"time"

	"vaulty/ledger"
)

// PromoCode is a time- and plan-scoped percentage discount token. Codes are
// stored upper-cased so lookups are case-insensitive exact matches.
type PromoCode struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Code            string     `gorm:"uniqueIndex;not null;size:50" json:"code"`
	DiscountPercent float64    `gorm:"not null" json:"discount_percent"`
	ScopePlan       string     `gorm:"default:'All';size:20" json:"scope_plan"` // plan name or "All"
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          bool       `gorm:"default:true" json:"active"`
	CreatedBy       *uint      `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

// PromoInput adapts the stored record for the discount engine.
func (p *PromoCode) PromoInput() ledger.PromoInput {
	return ledger.PromoInput{
		Code:            p.Code,
		DiscountPercent: p.DiscountPercent,
		ScopePlan:       p.ScopePlan,
		ExpiresAt:       p.ExpiresAt,
		Active:          p.Active,
	}
}
