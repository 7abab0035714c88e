// models/user.go
package models

import (
	"time"

	"vaulty/ledger"
)

type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password    string  `gorm:"not null" json:"-"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	Bio         string  `json:"bio"`
	IsGuest     bool    `gorm:"default:false" json:"is_guest"`
	IsAdmin     bool    `gorm:"default:false" json:"is_admin"`
	IsBanned    bool    `gorm:"default:false" json:"is_banned"`
	IsGhost     bool    `gorm:"default:false" json:"is_ghost"`

	// Ledger
	Points int `gorm:"default:0" json:"points"`
	XP     int `gorm:"default:0" json:"xp"`

	// Subscription
	Plan       ledger.Plan `gorm:"default:'free';size:20" json:"plan"`
	PlanExpiry *time.Time  `json:"plan_expiry,omitempty"`

	// Usage accumulators, reset per UTC day
	MessageCreditsUsed int     `gorm:"default:0" json:"message_credits_used"`
	CreditsDay         string  `gorm:"size:10" json:"-"`
	MemoryUsedMB       float64 `gorm:"default:0" json:"memory_used_mb"`

	// Referral
	ReferralCode string `gorm:"index;size:16" json:"referral_code"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`

	// Relationships
	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`
}

type UserBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_user_badge,unique" json:"user_id"`
	BadgeID   string    `gorm:"not null;size:50;index:idx_user_badge,unique" json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`

	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Badge Badge `gorm:"foreignKey:BadgeID;references:ID" json:"badge,omitempty"`
}

// Rank derives the cosmetic tier from accumulated XP.
func (u *User) Rank() ledger.Rank {
	return ledger.RankForXP(u.XP)
}

// EffectivePlan combines the stored plan with its expiry; an expired paid
// plan counts as free even before the sweeper resets it.
func (u *User) EffectivePlan(now time.Time) ledger.Plan {
	return ledger.EffectivePlan(u.Plan, u.PlanExpiry, now)
}

// BadgeIDs flattens the loaded badge relation.
func (u *User) BadgeIDs() []string {
	ids := make([]string, 0, len(u.Badges))
	for _, b := range u.Badges {
		ids = append(ids, b.BadgeID)
	}
	return ids
}
