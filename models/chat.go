// models/chat.go
package models

import (
	"encoding/json"
	"time"
)

// Companion is an AI chat persona owned by a user. Slot counts are gated by
// the owner's effective plan.
type Companion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Name      string    `gorm:"not null;size:60" json:"name"`
	Persona   string    `gorm:"type:text" json:"persona"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanionMemory is a persisted note a persona carries across sessions.
// Stored size counts against the owner's plan memory quota.
type CompanionMemory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanionID uint      `gorm:"not null;index" json:"companion_id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	SizeMB      float64   `gorm:"not null" json:"size_mb"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CompanionMemory) TableName() string {
	return "companion_memories"
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is a conversational turn. Messages are append-only once
// created; only the Reactions map may be updated, last-write-wins per
// reacting user.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanionID *uint     `gorm:"index" json:"companion_id,omitempty"`
	ChannelID   string    `gorm:"index;size:60" json:"channel_id"`
	SenderID    *uint     `gorm:"index" json:"sender_id,omitempty"`
	Role        ChatRole  `gorm:"not null;size:10" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Reactions   string    `gorm:"type:text;default:'{}'" json:"-"` // user id -> emoji
	CreatedAt   time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ReactionMap decodes the stored reactions. A corrupt blob decodes to an
// empty map rather than failing the read path.
func (m *ChatMessage) ReactionMap() map[string]string {
	out := map[string]string{}
	if m.Reactions != "" {
		_ = json.Unmarshal([]byte(m.Reactions), &out)
	}
	return out
}

// SetReaction applies one user's reaction, last write wins. An empty emoji
// removes the user's reaction.
func (m *ChatMessage) SetReaction(userID string, emoji string) {
	reactions := m.ReactionMap()
	if emoji == "" {
		delete(reactions, userID)
	} else {
		reactions[userID] = emoji
	}
	raw, _ := json.Marshal(reactions)
	m.Reactions = string(raw)
}
