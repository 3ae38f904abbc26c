// Package workflow implements the document jobs: single-file conversion and
// multi-file PDF merge, with progress reporting and failure recovery.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/pkg/logger"
)

// Recorder stores conversation turns.
type Recorder interface {
	Append(ctx context.Context, key chat.ConversationKey, role model.Role, text string) error
}

// JobPublisher receives terminal job outcomes. Implementations must not block
// the caller for long and must not fail it.
type JobPublisher interface {
	PublishJob(ctx context.Context, event *model.JobEvent)
}

// NopPublisher drops job events.
type NopPublisher struct{}

func (NopPublisher) PublishJob(context.Context, *model.JobEvent) {}

// Options shared by the workflows.
type Options struct {
	// MaxFileBytes is the per-file limit. A file exactly this size is accepted.
	MaxFileBytes int64
	// ConfirmTTL expires an armed merge confirmation. Zero never expires.
	ConfirmTTL time.Duration
}

// Responder sends replies and records them as assistant turns.
type Responder struct {
	messenger chat.Messenger
	memory    Recorder
	log       *logger.Logger
}

// NewResponder creates a responder.
func NewResponder(messenger chat.Messenger, memory Recorder, log *logger.Logger) *Responder {
	return &Responder{messenger: messenger, memory: memory, log: log}
}

// Messenger returns the underlying transport.
func (r *Responder) Messenger() chat.Messenger {
	return r.messenger
}

// Reply sends text and logs it as an assistant turn.
func (r *Responder) Reply(ctx context.Context, key chat.ConversationKey, text string, kb chat.Keyboard) error {
	if err := r.ReplyUnrecorded(ctx, key, text, kb); err != nil {
		return err
	}
	r.remember(ctx, key, model.RoleAssistant, text)
	return nil
}

// ReplyUnrecorded sends text without logging it.
func (r *Responder) ReplyUnrecorded(ctx context.Context, key chat.ConversationKey, text string, kb chat.Keyboard) error {
	if _, err := r.messenger.Send(ctx, key.ChatID, text, kb); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// RecordUser logs a user turn.
func (r *Responder) RecordUser(ctx context.Context, key chat.ConversationKey, text string) {
	r.remember(ctx, key, model.RoleUser, text)
}

func (r *Responder) remember(ctx context.Context, key chat.ConversationKey, role model.Role, text string) {
	if r.memory == nil {
		return
	}
	if err := r.memory.Append(ctx, key, role, text); err != nil {
		r.log.Warn("Failed to record turn", zap.Error(err), zap.String("role", string(role)))
	}
}

// StartProgress posts a progress message that later steps edit in place.
func (r *Responder) StartProgress(ctx context.Context, key chat.ConversationKey, text string) *Progress {
	ref, err := r.messenger.Send(ctx, key.ChatID, text, chat.KeyboardNone)
	if err != nil {
		r.log.Warn("Failed to post progress message", zap.Error(err))
		return &Progress{messenger: r.messenger, log: r.log}
	}
	return &Progress{messenger: r.messenger, ref: ref, posted: true, log: r.log}
}

// Progress is an editable status message. Edits are best-effort.
type Progress struct {
	messenger chat.Messenger
	ref       chat.MessageRef
	posted    bool
	log       *logger.Logger
}

// Update rewrites the progress message. Failures are logged and swallowed.
func (p *Progress) Update(ctx context.Context, text string) {
	if !p.posted {
		return
	}
	if err := p.messenger.Edit(ctx, p.ref, text); err != nil {
		p.log.Debug("Progress edit failed", zap.Error(err), zap.String("text", text))
	}
}
