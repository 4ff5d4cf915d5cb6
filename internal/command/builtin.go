package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/ytclab/ytcbot/pkg/message"
)

// NotSet is shown for prompt settings that are empty.
const NotSet = "not set"

const (
	textRestricted = "⛔ This command is restricted to bot administrators."
	textNoMemory   = "You have no conversation history in this channel."

	previewLength = 100
)

type section string

const (
	sectionChat     section = "💬 Chat"
	sectionMemory   section = "🧠 Memory"
	sectionSettings section = "⚙️ Settings"
)

type runFunc func(ctx context.Context, h *Handler, msg message.InboundMessage, args string) (string, error)

type command struct {
	name    string
	args    string
	summary string
	section section
	// chat marks commands that call the model.
	chat       bool
	restricted bool
	run        runFunc
}

// builtins lists the commands in help order. It is filled in init because
// help renders the table itself.
var (
	builtins []*command
	byName   map[string]*command
)

func init() {
	builtins = []*command{
		{name: "help", summary: "show this guide", section: sectionChat, run: runHelp},
		{name: "YTC", args: "<question>", summary: "ask the assistant", section: sectionChat, chat: true, run: runYTC},
		{name: "clear_memory", summary: "clear your conversation history in this channel", section: sectionMemory, run: runClearMemory},
		{name: "show_memory", summary: "show the current conversation history", section: sectionMemory, run: runShowMemory},
		{name: "debug_memory_path", summary: "show where this channel's memory is stored", section: sectionMemory, run: runDebugMemoryPath},
		{name: "set_system_prompt", args: "<prompt>", summary: "set the bot's system prompt", section: sectionSettings, restricted: true, run: runSetSystemPrompt},
		{name: "set_personality", args: "<personality>", summary: "set the bot's global personality", section: sectionSettings, restricted: true, run: runSetPersonality},
		{name: "set_channel_personality", args: "<personality>", summary: "set a personality for this channel", section: sectionSettings, restricted: true, run: runSetChannelPersonality},
		{name: "clear_channel_personality", summary: "remove this channel's personality", section: sectionSettings, restricted: true, run: runClearChannelPersonality},
		{name: "show_prompts", summary: "show the system prompt and personalities", section: sectionSettings, run: runShowPrompts},
	}
	byName = make(map[string]*command, len(builtins))
	for _, c := range builtins {
		byName[c.name] = c
	}
}

// lookup returns the command called name. Names are case sensitive.
func lookup(name string) (*command, error) {
	if c, ok := byName[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// Names returns every command name in help order.
func Names() []string {
	names := make([]string, len(builtins))
	for i, c := range builtins {
		names[i] = c.name
	}
	return names
}

func usage(prefix string, c *command) string {
	return fmt.Sprintf("Usage: `%s%s %s`", prefix, c.name, c.args)
}

func runHelp(_ context.Context, h *Handler, _ message.InboundMessage, _ string) (string, error) {
	return Help(h.deps.Settings.Current().Prefix), nil
}

// Help renders the command guide for prefix.
func Help(prefix string) string {
	var b strings.Builder
	b.WriteString("🤖 **Bot guide**\n")
	fmt.Fprintf(&b, "Talk to me with the `%s` prefix or by mentioning me.\n", prefix)

	var current section
	for _, c := range builtins {
		if c.section != current {
			current = c.section
			fmt.Fprintf(&b, "\n**%s**\n", current)
			if current == sectionChat {
				b.WriteString("Mention me with a question: `@bot <question>`\n")
			}
		}
		b.WriteString("`" + prefix + c.name)
		if c.args != "" {
			b.WriteString(" " + c.args)
		}
		b.WriteString("` - " + c.summary + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func runYTC(ctx context.Context, h *Handler, msg message.InboundMessage, args string) (string, error) {
	return h.chat(ctx, msg, args)
}

func runSetSystemPrompt(_ context.Context, h *Handler, _ message.InboundMessage, args string) (string, error) {
	next, err := h.deps.Admin.SetSystemPrompt(args)
	if err != nil {
		h.logger.Error("updating system prompt failed", "error", err)
		return fmt.Sprintf("❌ Failed to update the system prompt: %v", err), nil
	}
	return "✅ System prompt updated to:\n" + codeBlock(next.SystemPrompt), nil
}

func runSetPersonality(_ context.Context, h *Handler, _ message.InboundMessage, args string) (string, error) {
	next, err := h.deps.Admin.SetPersonality(args)
	if err != nil {
		h.logger.Error("updating global personality failed", "error", err)
		return fmt.Sprintf("❌ Failed to update the global personality: %v", err), nil
	}
	return "✅ Global personality updated to:\n" + codeBlock(next.Personality), nil
}

func runSetChannelPersonality(_ context.Context, h *Handler, msg message.InboundMessage, args string) (string, error) {
	if err := h.deps.Admin.SetScopePersonality(msg.Scope(), args); err != nil {
		h.logger.Error("setting channel personality failed", "scope", msg.Scope(), "error", err)
		return fmt.Sprintf("❌ Failed to set the channel personality: %v", err), nil
	}
	return fmt.Sprintf("✅ Channel `%s` now has its own personality:\n%s", channelName(msg.Chat), codeBlock(strings.TrimSpace(args))), nil
}

func runClearChannelPersonality(_ context.Context, h *Handler, msg message.InboundMessage, _ string) (string, error) {
	name := channelName(msg.Chat)
	removed, err := h.deps.Admin.ClearScopePersonality(msg.Scope())
	switch {
	case err != nil:
		h.logger.Error("clearing channel personality failed", "scope", msg.Scope(), "error", err)
		return fmt.Sprintf("❌ Failed to clear the channel personality: %v", err), nil
	case removed:
		return fmt.Sprintf("✅ Cleared the personality of channel `%s`.", name), nil
	default:
		return fmt.Sprintf("ℹ️ Channel `%s` has no personality of its own.", name), nil
	}
}

func runShowPrompts(_ context.Context, h *Handler, msg message.InboundMessage, _ string) (string, error) {
	p, err := h.deps.Admin.Prompts(msg.Scope())
	if err != nil {
		h.logger.Error("reading channel personality failed", "scope", msg.Scope(), "error", err)
	}
	var b strings.Builder
	b.WriteString("**Prompt settings**\n")
	b.WriteString("System prompt:\n" + codeBlock(orNotSet(p.SystemPrompt)) + "\n")
	b.WriteString("Global personality:\n" + codeBlock(orNotSet(p.Personality)) + "\n")
	fmt.Fprintf(&b, "Personality for channel `%s`:\n%s", channelName(msg.Chat), codeBlock(orNotSet(p.ScopePersonality)))
	return b.String(), nil
}

func runClearMemory(ctx context.Context, h *Handler, msg message.InboundMessage, _ string) (string, error) {
	if err := h.deps.Admin.ClearMemory(ctx, msg.Sender.ID, msg.Scope()); err != nil {
		return "❌ Failed to clear the conversation history, see the logs.", nil
	}
	return "✅ Cleared your conversation history in this channel.", nil
}

func runShowMemory(ctx context.Context, h *Handler, msg message.InboundMessage, _ string) (string, error) {
	view, err := h.deps.Admin.Memory(ctx, msg.Sender.ID, msg.Scope())
	if err != nil && view.Empty() {
		return fmt.Sprintf("❌ Failed to show memory: %v", err), nil
	}
	if view.Empty() {
		return textNoMemory, nil
	}

	var b strings.Builder
	if len(view.Window) > 0 {
		fmt.Fprintf(&b, "%d entries in the live window:\n", len(view.Window))
		for i, m := range view.Window {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, m.Role, preview(m.Content, previewLength))
		}
	}
	if view.Durable != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Stored conversation history:\n")
		b.WriteString(view.Durable)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func runDebugMemoryPath(ctx context.Context, h *Handler, msg message.InboundMessage, _ string) (string, error) {
	info, err := h.deps.Admin.MemoryInfo(ctx, msg.Scope())
	if err != nil {
		return fmt.Sprintf("❌ Failed to inspect memory storage: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Memory backend: %s\n", info.Backend)
	fmt.Fprintf(&b, "Memory location: %s\n", info.Location)
	if info.Exists {
		if info.Size > 0 {
			fmt.Fprintf(&b, "Exists, size: %d bytes, %d turns\n", info.Size, info.Turns)
		} else {
			fmt.Fprintf(&b, "Exists, %d turns\n", info.Turns)
		}
	} else {
		b.WriteString("Does not exist\n")
	}
	fmt.Fprintf(&b, "Memory container: %s\n", info.Container)
	scopes := "none"
	if len(info.Scopes) > 0 {
		scopes = strings.Join(info.Scopes, ", ")
	}
	fmt.Fprintf(&b, "Scopes with memory: %s", scopes)
	return b.String(), nil
}

func codeBlock(s string) string {
	return "```\n" + s + "\n```"
}

func orNotSet(s string) string {
	if s == "" {
		return NotSet
	}
	return s
}

// channelName returns a readable name for chat.
func channelName(chat message.Chat) string {
	switch {
	case chat.Title != "":
		return chat.Title
	case chat.IsDirectMessage():
		return "direct message"
	default:
		return "channel " + chat.ID
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
