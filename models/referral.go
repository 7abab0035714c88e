// models/referral.go
package models

import "time"

type ReferralStatus string

const (
	ReferralPending ReferralStatus = "pending"
	ReferralSettled ReferralStatus = "settled"
	ReferralExpired ReferralStatus = "expired"
)

// Referral models the two-phase invite reward: issued as pending when the
// inviter shares a code, settled (crediting both parties) when the invitee
// registers with it, expired by the sweeper after the pending TTL.
type Referral struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ReferrerID uint           `gorm:"not null;index" json:"referrer_id"`
	ReferredID *uint          `gorm:"uniqueIndex" json:"referred_id,omitempty"`
	Code       string         `gorm:"not null;index;size:16" json:"code"`
	Status     ReferralStatus `gorm:"default:'pending';size:10;index" json:"status"`
	SettledAt  *time.Time     `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
