package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/pkg/logger"
)

// fakeBotAPI serves the Bot API methods Run uses. getUpdates returns one
// backlog message, then cancels the run.
type fakeBotAPI struct {
	mu            sync.Mutex
	deleteWebhook url.Values
	polls         int
	cancel        context.CancelFunc
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Doc","username":"docbot"}}`))
	case "deleteWebhook":
		f.deleteWebhook = r.PostForm
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case "getUpdates":
		f.polls++
		if f.polls > 1 {
			f.cancel()
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":10,"message":{"message_id":5,"date":0,` +
			`"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":7,"type":"private"},"text":"merge pdfs"}}]}`))
	default:
		http.NotFound(w, r)
	}
}

func TestRunKeepsBacklogFromDowntime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeBotAPI{cancel: cancel}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	b := newBot(api, logger.NewNop())

	var got []chat.Event
	require.NoError(t, b.Run(ctx, func(_ context.Context, ev chat.Event) error {
		got = append(got, ev)
		return nil
	}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotNil(t, fake.deleteWebhook)
	assert.NotEqual(t, "true", fake.deleteWebhook.Get("drop_pending_updates"))
	require.Len(t, got, 1)
	assert.Equal(t, "merge pdfs", got[0].Text)
	assert.False(t, b.Ready())
}
