// Package console implements channel.console: a local chat transport on
// standard input and output, for trying the bot without a chat platform.
// Every line read is one user message in a single scope.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytclab/ytcbot/internal/channel"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/scope"
	"github.com/ytclab/ytcbot/pkg/message"
	"gopkg.in/yaml.v3"
)

// Name is the channel name carried by console messages.
const Name = "console"

func init() {
	core.RegisterModule(&Console{})
}

var (
	_ channel.Channel   = (*Console)(nil)
	_ core.Configurable = (*Console)(nil)
	_ core.Provisioner  = (*Console)(nil)
	_ core.Validator    = (*Console)(nil)
	_ core.Starter      = (*Console)(nil)
	_ core.Stopper      = (*Console)(nil)
)

// Config holds YAML configuration for the console channel.
type Config struct {
	Scope    string `yaml:"scope"`
	UserID   string `yaml:"user_id"`
	Username string `yaml:"username"`
	// Prompt is printed before each input line. Empty disables it.
	Prompt string `yaml:"prompt"`
}

func (c *Config) defaults() {
	if c.Scope == "" {
		c.Scope = "console"
	}
	if c.UserID == "" {
		c.UserID = "local"
	}
	if c.Username == "" {
		if u := os.Getenv("USER"); u != "" {
			c.Username = u
		} else {
			c.Username = "you"
		}
	}
}

// Console is the channel.console module.
type Console struct {
	config Config
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	mu    sync.Mutex
	inbox func(message.InboundMessage) error
	done  chan struct{}
}

// New creates a console channel reading in and writing out.
func New(cfg Config, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{config: cfg, in: in, out: out, logger: logger.With("component", "channel.console")}
}

// ModuleInfo implements core.Module.
func (c *Console) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel." + Name,
		New: func() core.Module { return &Console{} },
	}
}

// Configure implements core.Configurable.
func (c *Console) Configure(node *yaml.Node) error {
	if err := node.Decode(&c.config); err != nil {
		return fmt.Errorf("console: decode config: %w", err)
	}
	c.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (c *Console) Provision(ctx *core.AppContext) error {
	c.config.defaults()
	c.logger = ctx.Logger
	if c.in == nil {
		c.in = os.Stdin
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	return nil
}

// Validate implements core.Validator.
func (c *Console) Validate() error {
	if err := scope.Validate(message.ScopeOf(Name, c.config.Scope)); err != nil {
		return fmt.Errorf("console: scope: %w", err)
	}
	return nil
}

// SetInbox implements channel.Channel.
func (c *Console) SetInbox(fn func(msg message.InboundMessage) error) {
	c.mu.Lock()
	c.inbox = fn
	c.mu.Unlock()
}

// Start implements core.Starter. It reads input until EOF.
func (c *Console) Start() error {
	c.done = make(chan struct{})
	go c.readLoop()
	return nil
}

// Done is closed when the input reaches EOF.
func (c *Console) Done() <-chan struct{} { return c.done }

// Stop implements core.Stopper.
func (c *Console) Stop(_ context.Context) error {
	return nil
}

func (c *Console) readLoop() {
	defer close(c.done)

	sender := message.Sender{ID: c.config.UserID, Username: c.config.Username}
	chat := message.Chat{ID: c.config.Scope, Type: message.ChatDM}

	c.prompt()
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			c.prompt()
			continue
		}

		c.mu.Lock()
		inbox := c.inbox
		c.mu.Unlock()
		if inbox == nil {
			c.logger.Warn("console input dropped, no inbox")
			continue
		}

		msg := message.InboundMessage{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Channel:   Name,
			Sender:    sender,
			Chat:      chat,
			Text:      line,
			Mentioned: true,
		}
		if err := inbox(msg); err != nil {
			c.logger.Warn("console input rejected", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Error("console input failed", "error", err)
	}
}

func (c *Console) prompt() {
	if c.config.Prompt == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, c.config.Prompt)
}

// Send implements channel.Channel.
func (c *Console) Send(_ context.Context, msg message.OutboundMessage) error {
	c.mu.Lock()
	_, err := fmt.Fprintln(c.out, msg.Text)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	c.prompt()
	return nil
}
