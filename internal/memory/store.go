// Package memory records conversation turns for AI context and supports
// erasing a conversation's history.
package memory

import (
	"context"
	"unicode/utf8"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
)

// MaxTurnChars is the hard cap on stored turn text, in characters.
const MaxTurnChars = 4000

// Store is an append-only per-conversation turn log.
type Store interface {
	Append(ctx context.Context, turn model.Turn) error
	// Recent returns up to limit most recent turns, oldest first.
	Recent(ctx context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error)
	Clear(ctx context.Context, key chat.ConversationKey) error
	Close() error
}

// Clamp truncates text to MaxTurnChars characters.
func Clamp(text string) string {
	if utf8.RuneCountInString(text) <= MaxTurnChars {
		return text
	}
	return string([]rune(text)[:MaxTurnChars])
}

func reverse(turns []model.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
