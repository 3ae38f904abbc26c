// Package bot routes inbound chat events to commands, workflows and the
// intent classifier.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/intent"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/internal/workflow"
	"github.com/docbot/docbot/pkg/logger"
)

// Memory is the conversation history used for classification.
type Memory interface {
	Recent(ctx context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error)
	Clear(ctx context.Context, key chat.ConversationKey) error
}

// Classifier interprets free text.
type Classifier interface {
	Classify(ctx context.Context, text string, history []model.Turn) intent.Classified
}

// Options configure the router.
type Options struct {
	AdminUserID  string
	MaxFileMB    int
	HistoryTurns int
}

// Router is the single entry point for inbound events. Handle must not be
// called concurrently for the same conversation.
type Router struct {
	sessions   *session.Store
	memory     Memory
	classifier Classifier
	resp       *workflow.Responder
	conversion *workflow.Conversion
	merge      *workflow.Merge
	counters   *stats.Counters
	opts       Options
	log        *logger.Logger

	commands []Command
	byName   map[string]commandFunc
}

// Deps bundles the collaborators of a Router.
type Deps struct {
	Sessions   *session.Store
	Memory     Memory
	Classifier Classifier
	Responder  *workflow.Responder
	Conversion *workflow.Conversion
	Merge      *workflow.Merge
	Counters   *stats.Counters
}

// NewRouter creates a router.
func NewRouter(deps Deps, opts Options, log *logger.Logger) *Router {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 16
	}
	r := &Router{
		sessions:   deps.Sessions,
		memory:     deps.Memory,
		classifier: deps.Classifier,
		resp:       deps.Responder,
		conversion: deps.Conversion,
		merge:      deps.Merge,
		counters:   deps.Counters,
		opts:       opts,
		log:        log,
	}
	r.registerCommands()
	return r
}

// Admit reports whether an event reaches the router at all. In groups the
// bot only listens when replied to or mentioned; button presses always pass.
func Admit(ev chat.Event) bool {
	if ev.Private || ev.IsCallback() {
		return true
	}
	return ev.ReplyToBot || ev.MentionsBot
}

// Handle processes one event. Errors and panics are logged and answered with
// a generic apology; they never reach the caller.
func (r *Router) Handle(ctx context.Context, ev chat.Event) {
	if !Admit(ev) {
		return
	}

	log := r.log.WithConversation(ev.Key.Platform, ev.Key.UserID, ev.Key.ChatID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Handler panic",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			r.apologize(ctx, ev.Key, log)
		}
	}()

	if err := r.route(ctx, ev); err != nil {
		log.Error("Handler error", zap.Error(err))
		r.apologize(ctx, ev.Key, log)
	}
}

func (r *Router) apologize(ctx context.Context, key chat.ConversationKey, log *logger.Logger) {
	if err := r.resp.ReplyUnrecorded(ctx, key, msgInternal, chat.KeyboardNone); err != nil {
		log.Warn("Failed to send apology", zap.Error(err))
	}
}

func (r *Router) route(ctx context.Context, ev chat.Event) error {
	sess := r.sessions.Get(ev.Key)

	switch {
	case ev.IsCallback():
		return r.handleCallback(ctx, ev, sess)
	case ev.Command != "":
		run, ok := r.byName[ev.Command]
		if !ok {
			return nil
		}
		return run(ctx, ev, sess)
	case ev.Document != nil:
		r.resp.RecordUser(ctx, ev.Key, "[document] "+fileLabel(ev.Document.FileName))
		return r.handleDocument(ctx, ev.Key, sess, *ev.Document)
	case ev.Media != chat.MediaNone:
		return r.resp.Reply(ctx, ev.Key, msgSendAsFile, chat.KeyboardNone)
	case strings.TrimSpace(ev.Text) != "":
		return r.handleText(ctx, ev.Key, sess, ev.Text)
	}
	return nil
}

func fileLabel(name string) string {
	if name == "" {
		return "file"
	}
	return name
}

// inferMode guesses the workflow from a file name.
func inferMode(name string) session.Mode {
	switch chat.Extension(name) {
	case ".pdf":
		return session.ModePDFToWord
	case ".doc", ".docx":
		return session.ModeWordToPDF
	}
	return session.ModeNone
}

func (r *Router) handleDocument(ctx context.Context, key chat.ConversationKey, sess *session.Session, doc chat.Document) error {
	mode := sess.Mode
	if mode == session.ModeNone {
		mode = inferMode(doc.FileName)
	}

	switch mode {
	case session.ModeNone:
		sess.LastAction = "asked_for_mode"
		return r.resp.Reply(ctx, key, msgAskForMode, chat.KeyboardMain)
	case session.ModeMergePDFs:
		return r.merge.Enqueue(ctx, key, sess, doc)
	default:
		sess.Mode = mode
		return r.conversion.Handle(ctx, key, sess, doc)
	}
}

type mergeAction int

const (
	mergeNone mergeAction = iota
	mergeNow
	mergeForce
	mergeRemoveLast
	mergeClear
)

// mergeKeyword matches the fixed merge vocabulary.
func mergeKeyword(text string) mergeAction {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "done", "merge", "merge now":
		return mergeNow
	case "yes":
		return mergeForce
	case "remove last":
		return mergeRemoveLast
	case "clear":
		return mergeClear
	}
	return mergeNone
}

func (r *Router) handleText(ctx context.Context, key chat.ConversationKey, sess *session.Session, text string) error {
	if sess.Mode == session.ModeMergePDFs {
		if action := mergeKeyword(text); action != mergeNone {
			r.resp.RecordUser(ctx, key, text)
			switch action {
			case mergeNow:
				return r.merge.Execute(ctx, key, sess, true)
			case mergeForce:
				return r.merge.Execute(ctx, key, sess, false)
			case mergeRemoveLast:
				return r.merge.RemoveLast(ctx, key, sess)
			default:
				return r.merge.Clear(ctx, key, sess)
			}
		}
	}

	// History is read before text is recorded so the classifier sees it once.
	history, err := r.memory.Recent(ctx, key, r.opts.HistoryTurns)
	if err != nil {
		r.log.Warn("Failed to load history", zap.Error(err), zap.String("conversation", key.String()))
	}
	r.resp.RecordUser(ctx, key, text)

	return r.applyIntent(ctx, key, sess, r.classifier.Classify(ctx, text, history))
}

func (r *Router) applyIntent(ctx context.Context, key chat.ConversationKey, sess *session.Session, c intent.Classified) error {
	switch c.Intent {
	case intent.SetModePDFToWord:
		return r.setMode(ctx, key, sess, session.ModePDFToWord, or(c.Reply, msgModePDFToWord))
	case intent.SetModeWordToPDF:
		return r.setMode(ctx, key, sess, session.ModeWordToPDF, or(c.Reply, msgModeWordToPDF))
	case intent.SetModeMergePDFs:
		return r.setMode(ctx, key, sess, session.ModeMergePDFs, or(c.Reply, msgModeMerge))
	case intent.MergeDone:
		sess.Mode = session.ModeMergePDFs
		return r.merge.Execute(ctx, key, sess, true)
	case intent.MergeRemoveLast:
		sess.Mode = session.ModeMergePDFs
		return r.merge.RemoveLast(ctx, key, sess)
	case intent.MergeClear:
		sess.Mode = session.ModeMergePDFs
		return r.merge.Clear(ctx, key, sess)
	case intent.Status:
		return r.resp.Reply(ctx, key, statusMessage(sess), chat.KeyboardNone)
	case intent.Reset:
		return r.reset(ctx, key, sess, msgResetIntent)
	case intent.Help:
		return r.resp.Reply(ctx, key, msgHelpShort, chat.KeyboardMain)
	default:
		return r.resp.Reply(ctx, key, or(c.Reply, msgGeneric), chat.KeyboardMain)
	}
}

func (r *Router) setMode(ctx context.Context, key chat.ConversationKey, sess *session.Session, mode session.Mode, reply string) error {
	sess.Mode = mode
	sess.LastAction = "mode_" + string(mode)

	kb := chat.KeyboardMain
	if mode == session.ModeMergePDFs {
		sess.DisarmConfirm()
		kb = chat.KeyboardMerge
	}
	return r.resp.Reply(ctx, key, reply, kb)
}

// reset returns the conversation to its initial state and erases its history.
// The acknowledgement is not recorded so history stays empty.
func (r *Router) reset(ctx context.Context, key chat.ConversationKey, sess *session.Session, reply string) error {
	sess.Reset()
	sess.LastAction = "reset"

	if err := r.memory.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return r.resp.ReplyUnrecorded(ctx, key, reply, chat.KeyboardMain)
}

func (r *Router) handleCallback(ctx context.Context, ev chat.Event, sess *session.Session) error {
	if ev.CallbackID != "" {
		if err := r.resp.Messenger().AnswerCallback(ctx, ev.CallbackID); err != nil {
			r.log.Debug("Failed to answer callback", zap.Error(err))
		}
	}

	key := ev.Key
	switch ev.Callback {
	case chat.CallbackModePDFToWord:
		return r.setMode(ctx, key, sess, session.ModePDFToWord, msgButtonPDFToWord)
	case chat.CallbackModeWordToPDF:
		return r.setMode(ctx, key, sess, session.ModeWordToPDF, msgButtonWordToPDF)
	case chat.CallbackModeMergePDFs:
		return r.setMode(ctx, key, sess, session.ModeMergePDFs, msgButtonMerge)
	case chat.CallbackMergeNow:
		sess.Mode = session.ModeMergePDFs
		return r.merge.Execute(ctx, key, sess, true)
	case chat.CallbackMergeRemove:
		sess.Mode = session.ModeMergePDFs
		return r.merge.RemoveLast(ctx, key, sess)
	case chat.CallbackMergeClear:
		sess.Mode = session.ModeMergePDFs
		return r.merge.Clear(ctx, key, sess)
	}

	r.log.Debug("Unknown callback", zap.String("data", ev.Callback))
	return nil
}

func or(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
