package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
)

// Dialer opens the persistent store.
type Dialer func(ctx context.Context) (Store, error)

// DialerFor picks a store implementation from a database URL. An empty URL
// returns a nil Dialer, which keeps the Adapter on its in-memory fallback.
func DialerFor(databaseURL string) (Dialer, error) {
	switch {
	case databaseURL == "":
		return nil, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return func(ctx context.Context) (Store, error) {
			return OpenGorm(ctx, databaseURL)
		}, nil
	case strings.HasPrefix(databaseURL, "sqlite:"), strings.HasPrefix(databaseURL, "file:"):
		path := sqlitePath(databaseURL)
		return func(ctx context.Context) (Store, error) {
			return OpenSQLite(ctx, path)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", schemeOf(databaseURL))
	}
}

func schemeOf(u string) string {
	if i := strings.Index(u, ":"); i > 0 {
		return u[:i]
	}
	return u
}

// Adapter is the conversation memory used by the bot. It connects to the
// persistent store lazily and reuses that connection for the process
// lifetime. While the store is unavailable it serves a bounded in-memory
// fallback and logs the degradation once.
type Adapter struct {
	dial     Dialer
	fallback *MemoryStore
	log      *logger.Logger

	// RetryEvery throttles reconnect attempts after a failed dial.
	RetryEvery time.Duration

	mu       sync.Mutex
	store    Store
	dialing  bool
	lastDial time.Time
	warnOnce sync.Once

	now func() time.Time
}

// NewAdapter creates an adapter. fallbackTurns bounds the in-memory fallback
// per conversation.
func NewAdapter(dial Dialer, fallbackTurns int, log *logger.Logger) *Adapter {
	return &Adapter{
		dial:       dial,
		fallback:   NewMemoryStore(fallbackTurns),
		log:        log,
		RetryEvery: time.Minute,
		now:        time.Now,
	}
}

// backend returns the persistent store, or nil while degraded. Only one
// caller dials at a time and the dial runs without holding a.mu, so other
// conversations keep using the fallback while a connect attempt hangs.
func (a *Adapter) backend(ctx context.Context) Store {
	a.mu.Lock()
	if a.store != nil || a.dial == nil || a.dialing {
		store := a.store
		a.mu.Unlock()
		return store
	}
	now := a.now()
	if !a.lastDial.IsZero() && now.Sub(a.lastDial) < a.RetryEvery {
		a.mu.Unlock()
		return nil
	}
	a.lastDial = now
	a.dialing = true
	a.mu.Unlock()

	store, err := a.dial(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dialing = false
	if err != nil {
		a.log.Error("Failed to connect conversation store", zap.Error(err))
		return nil
	}

	a.store = store
	metrics.SetMemoryFallback(false)
	a.log.Info("Conversation store connected")
	return store
}

func (a *Adapter) degraded(reason string) {
	a.warnOnce.Do(func() {
		a.log.Warn("Conversation store unavailable, using in-memory fallback",
			zap.String("reason", reason),
			zap.Int("turns_per_conversation", a.fallback.max),
		)
	})
	metrics.SetMemoryFallback(true)
}

// Append records a turn. Text is clamped to MaxTurnChars.
func (a *Adapter) Append(ctx context.Context, key chat.ConversationKey, role model.Role, text string) error {
	turn := model.Turn{
		Platform:  key.Platform,
		UserID:    key.UserID,
		ChatID:    key.ChatID,
		Role:      role,
		Text:      Clamp(text),
		CreatedAt: a.now().UTC(),
	}

	if store := a.backend(ctx); store != nil {
		err := store.Append(ctx, turn)
		if err == nil {
			return nil
		}
		a.log.Error("Failed to append turn", zap.Error(err), zap.String("conversation", key.String()))
		a.degraded("append failed")
	} else {
		a.degraded("not connected")
	}

	return a.fallback.Append(ctx, turn)
}

// Recent returns up to limit most recent turns, oldest first.
func (a *Adapter) Recent(ctx context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error) {
	if store := a.backend(ctx); store != nil {
		turns, err := store.Recent(ctx, key, limit)
		if err == nil {
			return turns, nil
		}
		a.log.Error("Failed to read recent turns", zap.Error(err), zap.String("conversation", key.String()))
		a.degraded("read failed")
	} else {
		a.degraded("not connected")
	}

	return a.fallback.Recent(ctx, key, limit)
}

// Clear erases every turn of the conversation from both the persistent
// store and the fallback.
func (a *Adapter) Clear(ctx context.Context, key chat.ConversationKey) error {
	var errs []error
	if store := a.backend(ctx); store != nil {
		if err := store.Clear(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear persistent turns: %w", err))
		}
	}
	if err := a.fallback.Clear(ctx, key); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the persistent connection if one was opened.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
