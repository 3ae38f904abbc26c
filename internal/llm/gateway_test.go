package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientComplete(t *testing.T) {
	var got gatewayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"content":"hello there"}}`))
	}))
	defer srv.Close()

	c, err := NewGatewayClient(srv.URL+"/api/ai/", "secret", "")
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "system", Content: "be brief"}, {Role: "user", Content: "hi"}},
		Meta:     map[string]string{"platform": "telegram", "feature": "intent"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Content)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "intent", got.Meta["feature"])
}

func TestGatewayClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-success status carries gateway message",
			status: http.StatusBadGateway,
			body:   `{"error":"upstream down"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.Code)
				assert.Equal(t, "upstream down", se.Message)
			},
		},
		{
			name:   "missing output content",
			status: http.StatusOK,
			body:   `{"output":{}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingContent)
			},
		},
		{
			name:   "non-json body",
			status: http.StatusOK,
			body:   `<html>oops</html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingContent)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewGatewayClient(srv.URL, "k", "")
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), &CompletionRequest{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGatewayClientRequiresKey(t *testing.T) {
	_, err := NewGatewayClient("", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
