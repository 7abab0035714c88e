// models/badge.go
package models

import "time"

// Badge is one entry of the static, global badge catalog. The catalog is
// seeded at startup; premium-pro/ultra/max form a mutually exclusive family.
type Badge struct {
	ID          string `gorm:"primaryKey;size:50" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"not null" json:"description"`
	Image       string `json:"image"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Badge) TableName() string {
	return "badges"
}
