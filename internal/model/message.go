// Package model defines records that are persisted or published by the bot.
package model

import (
	"time"
)

// Role represents the role of a conversation turn author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one logged message of a conversation. Turns are append-only.
type Turn struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Conversation identity
	Platform string `gorm:"size:32;not null;index:idx_turns_conversation,priority:1" json:"platform"`
	UserID   string `gorm:"size:64;not null;index:idx_turns_conversation,priority:2" json:"user_id"`
	ChatID   string `gorm:"size:64;not null;index:idx_turns_conversation,priority:3" json:"chat_id"`

	// Content
	Role Role   `gorm:"size:16;not null" json:"role"`
	Text string `gorm:"type:text" json:"text"`

	CreatedAt time.Time `gorm:"not null;index:idx_turns_conversation,priority:4" json:"created_at"`
}

// TableName overrides the gorm table name.
func (Turn) TableName() string {
	return "conversation_turns"
}
