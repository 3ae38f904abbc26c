package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/docbot/docbot/internal/chat"
)

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}

func markup(kb chat.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	rows := kb.Rows()
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &m
}

// Send posts a text message.
func (b *Bot) Send(_ context.Context, chatID, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return chat.MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(id, text)
	if m := markup(kb); m != nil {
		msg.ReplyMarkup = m
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit replaces the text of a previously sent message.
func (b *Bot) Edit(_ context.Context, ref chat.MessageRef, text string) error {
	id, err := parseChatID(ref.ChatID)
	if err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewEditMessageText(id, ref.MessageID, text)); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// SendDocument uploads data as a file named name.
func (b *Bot) SendDocument(_ context.Context, chatID, name string, data []byte) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Download resolves fileRef and streams the file, stopping past maxBytes.
func (b *Bot) Download(ctx context.Context, fileRef string, maxBytes int64) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileRef)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return fetch(ctx, b.api.Client, url, maxBytes)
}

// AnswerCallback acknowledges a button press.
func (b *Bot) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
