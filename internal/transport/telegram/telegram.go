// Package telegram adapts the Telegram Bot API to the chat package.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/pkg/logger"
)

// Platform is the conversation platform tag for Telegram.
const Platform = "telegram"

// pollTimeout is the long-polling timeout in seconds.
const pollTimeout = 50

// Submit hands a normalized event to the application.
type Submit func(ctx context.Context, ev chat.Event) error

// Bot is a long-polling Telegram client. It also implements chat.Messenger.
type Bot struct {
	api     *tgbotapi.BotAPI
	log     *logger.Logger
	running atomic.Bool

	// RetryInitial, RetryMultiplier and RetryMax shape the backoff between
	// failed polls.
	RetryInitial    time.Duration
	RetryMultiplier float64
	RetryMax        time.Duration
}

var _ chat.Messenger = (*Bot)(nil)

// New authenticates with the Bot API.
func New(token string, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	log.Info("Telegram bot authenticated", zap.String("username", api.Self.UserName))
	return newBot(api, log), nil
}

func newBot(api *tgbotapi.BotAPI, log *logger.Logger) *Bot {
	return &Bot{
		api:             api,
		log:             log,
		RetryInitial:    2 * time.Second,
		RetryMultiplier: 2.5,
		RetryMax:        20 * time.Second,
	}
}

// Username returns the bot's @username without the @.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Ready reports whether the poll loop is running.
func (b *Bot) Ready() bool {
	return b.running.Load()
}

// CommandInfo is one entry of the bot's command menu.
type CommandInfo struct {
	Name        string
	Description string
}

// SetCommands publishes the command menu. Entries without a description are
// left out of the menu but still work.
func (b *Bot) SetCommands(cmds []CommandInfo) error {
	var menu []tgbotapi.BotCommand
	for _, c := range cmds {
		if c.Description == "" {
			continue
		}
		menu = append(menu, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(menu...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Run removes any webhook, then long-polls until ctx ends. Updates that
// arrived while the bot was down are kept and delivered first. Failed polls
// are retried with capped exponential backoff.
func (b *Bot) Run(ctx context.Context, submit Submit) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	b.running.Store(true)
	defer b.running.Store(false)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = b.RetryInitial
	retry.Multiplier = b.RetryMultiplier
	retry.MaxInterval = b.RetryMax
	retry.RandomizationFactor = 0
	retry.MaxElapsedTime = 0
	retry.Reset()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout

	b.log.Info("Polling started", zap.String("username", b.Username()))
	for {
		if ctx.Err() != nil {
			b.log.Info("Polling stopped")
			return nil
		}

		updates, err := b.api.GetUpdates(cfg)
		if err != nil {
			wait := retry.NextBackOff()
			b.log.Warn("Polling failed, backing off", zap.Error(err), zap.Duration("backoff", wait))
			if !sleep(ctx, wait) {
				b.log.Info("Polling stopped")
				return nil
			}
			continue
		}
		retry.Reset()

		for _, u := range updates {
			if u.UpdateID >= cfg.Offset {
				cfg.Offset = u.UpdateID + 1
			}
			ev, ok := toEvent(u, b.Username())
			if !ok {
				continue
			}
			if err := submit(ctx, ev); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				b.log.Warn("Dropped update", zap.Int("update_id", u.UpdateID), zap.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
