package bot

import (
	"context"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/session"
)

type commandFunc func(ctx context.Context, ev chat.Event, sess *session.Session) error

// Command is a slash command exposed to users.
type Command struct {
	Name        string
	Description string
	run         commandFunc
}

// Commands lists every registered command in menu order.
func (r *Router) Commands() []Command {
	return r.commands
}

func (r *Router) registerCommands() {
	r.commands = []Command{
		{Name: "start", Description: "Start", run: r.cmdStart},
		{Name: "help", Description: "Help", run: r.cmdHelp},
		{Name: "status", Description: "Show current mode and merge queue", run: r.cmdStatus},
		{Name: "reset", Description: "Clear workflow state and memory", run: r.cmdReset},
		{Name: "admin_stats", Description: "", run: r.cmdAdminStats},
	}
	r.byName = make(map[string]commandFunc, len(r.commands))
	for _, c := range r.commands {
		r.byName[c.Name] = c.run
	}
}

func (r *Router) cmdStart(ctx context.Context, ev chat.Event, sess *session.Session) error {
	sess.LastAction = "start"
	return r.resp.Reply(ctx, ev.Key, welcomeMessage(r.opts.MaxFileMB), chat.KeyboardMain)
}

func (r *Router) cmdHelp(ctx context.Context, ev chat.Event, _ *session.Session) error {
	return r.resp.Reply(ctx, ev.Key, msgHelp, chat.KeyboardMain)
}

func (r *Router) cmdStatus(ctx context.Context, ev chat.Event, sess *session.Session) error {
	return r.resp.Reply(ctx, ev.Key, statusMessage(sess), chat.KeyboardNone)
}

func (r *Router) cmdReset(ctx context.Context, ev chat.Event, sess *session.Session) error {
	return r.reset(ctx, ev.Key, sess, msgResetCmd)
}

// cmdAdminStats answers only the configured admin; anyone else gets silence.
func (r *Router) cmdAdminStats(ctx context.Context, ev chat.Event, _ *session.Session) error {
	if r.opts.AdminUserID == "" || ev.Key.UserID != r.opts.AdminUserID {
		return nil
	}
	return r.resp.ReplyUnrecorded(ctx, ev.Key, adminStatsMessage(r.counters.Snapshot()), chat.KeyboardNone)
}
