package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
)

func TestGormStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := OpenGorm(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	key := chat.ConversationKey{Platform: "test", UserID: uuid.NewString(), ChatID: "1"}
	defer store.Clear(ctx, key)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Append(ctx, turnAt(key, model.RoleUser, "first", base)))
	require.NoError(t, store.Append(ctx, turnAt(key, model.RoleAssistant, "second", base.Add(time.Second))))

	turns, err := store.Recent(ctx, key, 16)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Text)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)

	require.NoError(t, store.Clear(ctx, key))
	turns, err = store.Recent(ctx, key, 16)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
