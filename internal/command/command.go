// Package command turns inbound chat messages into work: administrative
// commands answered directly, or chat turns handed to the assistant.
package command

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/assistant"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/router"
	"github.com/ytclab/ytcbot/pkg/message"
)

// ChatTask names chat turns in logs and metrics.
const ChatTask = "chat"

// Responder answers chat turns. *assistant.Assistant implements it.
type Responder interface {
	Respond(ctx context.Context, req assistant.Request) (assistant.Reply, error)
}

// Observer counts handled commands. May be nil.
type Observer interface {
	ObserveCommand(name string)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Settings  *botconfig.Store
	Admin     *admin.Service
	Assistant Responder
	Observer  Observer
	Logger    *slog.Logger
	// Admins lists sender IDs allowed to run settings commands. Empty
	// means everyone may.
	Admins []string
}

// Handler implements router.Handler.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

var _ router.Handler = (*Handler)(nil)

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{deps: deps, logger: logger.With("component", "command")}
}

// Prepare classifies msg. Prefixed text naming a command runs it; any
// other prefixed text, or a mention, becomes a chat turn. Everything else
// is ignored, as is a bare prefix or mention.
func (h *Handler) Prepare(msg message.InboundMessage) (router.Task, bool) {
	settings := h.deps.Settings.Current()
	inv, err := Parse(settings.Prefix, msg.Text, msg.Mentioned)
	if err != nil {
		return router.Task{}, false
	}

	if inv.Name != "" {
		cmd, err := lookup(inv.Name)
		switch {
		case err == nil:
			return h.commandTask(cmd, msg, inv.Args, settings.Prefix), true
		case !errors.Is(err, ErrUnknownCommand):
			h.logger.Warn("command lookup failed", "name", inv.Name, "error", err)
			return router.Task{}, false
		}
	}
	return h.chatTask(msg, inv.Text), true
}

func (h *Handler) commandTask(cmd *command, msg message.InboundMessage, args, prefix string) router.Task {
	return router.Task{
		Name: cmd.name,
		Chat: cmd.chat,
		Run: func(ctx context.Context) (string, error) {
			h.observe(cmd.name)
			if cmd.restricted && !h.isAdmin(msg.Sender.ID) {
				h.logger.Warn("restricted command refused", "command", cmd.name, "sender", msg.Sender.ID)
				return textRestricted, nil
			}
			if cmd.args != "" && args == "" {
				return usage(prefix, cmd), nil
			}
			return cmd.run(ctx, h, msg, args)
		},
	}
}

func (h *Handler) chatTask(msg message.InboundMessage, text string) router.Task {
	return router.Task{
		Name: ChatTask,
		Chat: true,
		Run: func(ctx context.Context) (string, error) {
			return h.chat(ctx, msg, text)
		},
	}
}

func (h *Handler) chat(ctx context.Context, msg message.InboundMessage, text string) (string, error) {
	reply, err := h.deps.Assistant.Respond(ctx, assistant.Request{
		AuthorID:   msg.Sender.ID,
		AuthorNick: msg.Sender.Nick(),
		Scope:      msg.Scope(),
		Text:       text,
	})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

func (h *Handler) isAdmin(senderID string) bool {
	return len(h.deps.Admins) == 0 || slices.Contains(h.deps.Admins, senderID)
}

func (h *Handler) observe(name string) {
	if h.deps.Observer != nil {
		h.deps.Observer.ObserveCommand(name)
	}
}

// ErrorText maps a failed chat turn to the notice shown to the user.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, assistant.ErrModelTimeout):
		return "Sorry, the model took too long to answer. Please try again."
	case assistant.IsModelCallError(err):
		return "Sorry, I ran into a problem and could not generate a reply."
	default:
		return "Sorry, I could not process this message."
	}
}
