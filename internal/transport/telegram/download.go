package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/docbot/docbot/internal/chat"
)

// fetch GETs url and returns the body, failing with chat.ErrFileTooLarge as
// soon as more than maxBytes arrive. A maxBytes of zero disables the limit.
func fetch(ctx context.Context, client tgbotapi.HTTPClient, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, chat.ErrFileTooLarge
	}

	body := io.Reader(resp.Body)
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, chat.ErrFileTooLarge
	}
	return data, nil
}
