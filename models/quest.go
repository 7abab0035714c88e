// models/quest.go
package models

import (
	"time"

	"vaulty/ledger"
)

// QuestProgress tracks per-user, per-action claim counts. Daily actions
// reset when Day (a UTC calendar-day key) rolls over; lifetime actions keep
// counting.
type QuestProgress struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        uint               `gorm:"not null;index:idx_quest_user_action,unique" json:"user_id"`
	Action        ledger.QuestAction `gorm:"not null;size:30;index:idx_quest_user_action,unique" json:"action"`
	Count         int                `gorm:"default:0" json:"count"`
	LifetimeCount int                `gorm:"default:0" json:"lifetime_count"`
	Day           string             `gorm:"size:10" json:"day"`
	LastClaimedAt *time.Time         `json:"last_claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuestProgress) TableName() string {
	return "quest_progress"
}
