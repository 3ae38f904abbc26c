package memory

import (
	"context"
	"sync"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
)

// MemoryStore keeps the last few turns per conversation in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	max   int
	turns map[string][]model.Turn
}

// NewMemoryStore keeps at most maxTurns per conversation.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &MemoryStore{
		max:   maxTurns,
		turns: make(map[string][]model.Turn),
	}
}

func (s *MemoryStore) Append(_ context.Context, turn model.Turn) error {
	k := chat.ConversationKey{Platform: turn.Platform, UserID: turn.UserID, ChatID: turn.ChatID}.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.turns[k], turn)
	if over := len(list) - s.max; over > 0 {
		list = append([]model.Turn(nil), list[over:]...)
	}
	s.turns[k] = list
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.turns[key.String()]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]model.Turn, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, key chat.ConversationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, key.String())
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
