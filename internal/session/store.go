package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/docbot/docbot/internal/chat"
)

// Store maps conversations to their Session. Sessions idle for longer than
// the configured TTL are evicted and recreated on next contact.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewStore creates a store. An idleTTL of zero keeps sessions forever.
func NewStore(idleTTL time.Duration) *Store {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if idleTTL > 0 {
		expiration = idleTTL
		cleanup = idleTTL / 2
		if cleanup < time.Minute {
			cleanup = time.Minute
		}
	}

	return &Store{
		cache: cache.New(expiration, cleanup),
	}
}

// Get returns the session for key, creating a default one if absent.
// Every call refreshes the idle timer.
func (s *Store) Get(key chat.ConversationKey) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.String()
	if x, found := s.cache.Get(id); found {
		sess := x.(*Session)
		s.cache.Set(id, sess, cache.DefaultExpiration)
		return sess
	}

	sess := &Session{}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

// Delete drops the session for key.
func (s *Store) Delete(key chat.ConversationKey) {
	s.cache.Delete(key.String())
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
