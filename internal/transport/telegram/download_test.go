package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/chat"
)

func TestFetch(t *testing.T) {
	body := strings.Repeat("a", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chunked":
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte(body))
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte(body))
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, err := fetch(ctx, srv.Client(), srv.URL+"/file", 100)
	require.NoError(t, err)
	assert.Len(t, data, 100)

	_, err = fetch(ctx, srv.Client(), srv.URL+"/file", 99)
	assert.ErrorIs(t, err, chat.ErrFileTooLarge)

	_, err = fetch(ctx, srv.Client(), srv.URL+"/chunked", 99)
	assert.ErrorIs(t, err, chat.ErrFileTooLarge, "limit holds without Content-Length")

	data, err = fetch(ctx, srv.Client(), srv.URL+"/chunked", 0)
	require.NoError(t, err)
	assert.Len(t, data, 100)

	_, err = fetch(ctx, srv.Client(), srv.URL+"/missing", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
