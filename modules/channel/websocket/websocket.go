// Package wschannel implements channel.websocket: a chat transport over
// WebSocket served by the gateway at /ws. A client opens a session with a
// hello frame naming its user and chat, then exchanges message and reply
// frames. Typing and presence are pushed to the client as frames.
package wschannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/channel"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/scope"
	"github.com/ytclab/ytcbot/pkg/message"
	"gopkg.in/yaml.v3"
)

// Name is the channel name carried by inbound and outbound messages.
const Name = "websocket"

// ServiceHandler is the service under which the HTTP upgrade handler is
// registered for the gateway.
const ServiceHandler = "channel.websocket.handler"

func init() {
	core.RegisterModule(&Channel{})
}

var (
	_ channel.TypingChannel   = (*Channel)(nil)
	_ channel.PresenceChannel = (*Channel)(nil)
	_ core.Configurable       = (*Channel)(nil)
	_ core.Provisioner        = (*Channel)(nil)
	_ core.Validator          = (*Channel)(nil)
	_ core.Starter            = (*Channel)(nil)
	_ core.Stopper            = (*Channel)(nil)
	_ http.Handler            = (*Channel)(nil)
)

// Channel is the channel.websocket module.
type Channel struct {
	config Config
	logger *slog.Logger
	store  *SessionStore
	tokens map[string]struct{}
	cancel context.CancelFunc

	mu       sync.RWMutex
	inbox    func(message.InboundMessage) error
	presence botconfig.Presence
}

// New creates a provisioned channel with cfg, for embedding without the
// module registry.
func New(cfg Config, logger *slog.Logger) *Channel {
	c := &Channel{config: cfg}
	c.setup(logger)
	return c
}

// ModuleInfo implements core.Module.
func (c *Channel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel." + Name,
		New: func() core.Module { return &Channel{} },
	}
}

// Configure implements core.Configurable.
func (c *Channel) Configure(node *yaml.Node) error {
	if err := node.Decode(&c.config); err != nil {
		return fmt.Errorf("websocket: decode config: %w", err)
	}
	c.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (c *Channel) Provision(ctx *core.AppContext) error {
	c.setup(ctx.Logger)
	ctx.RegisterService(ServiceHandler, http.Handler(c))
	return nil
}

func (c *Channel) setup(logger *slog.Logger) {
	c.config.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger.With("component", "channel.websocket")
	c.store = NewSessionStore()
	c.tokens = make(map[string]struct{}, len(c.config.Tokens))
	for _, t := range c.config.Tokens {
		c.tokens[t] = struct{}{}
	}
}

// Validate implements core.Validator.
func (c *Channel) Validate() error {
	return c.config.validate()
}

// Start implements core.Starter. It launches the idle session reaper.
func (c *Channel) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.heartbeatLoop(ctx)

	c.logger.Info("websocket channel started",
		"heartbeat_interval", c.config.HeartbeatInterval,
		"max_sessions", c.config.MaxSessions,
		"token_auth", len(c.tokens) > 0,
	)
	return nil
}

// Stop implements core.Stopper. It closes every session.
func (c *Channel) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	for _, s := range c.store.All() {
		s.close(websocket.StatusGoingAway, "server shutting down")
	}
	c.logger.Info("websocket channel stopped")
	return nil
}

// SetInbox implements channel.Channel.
func (c *Channel) SetInbox(fn func(msg message.InboundMessage) error) {
	c.mu.Lock()
	c.inbox = fn
	c.mu.Unlock()
}

// Sessions returns the number of connected clients.
func (c *Channel) Sessions() int { return c.store.Len() }

// Send implements channel.Channel. The reply goes to every session in the
// message's chat.
func (c *Channel) Send(ctx context.Context, msg message.OutboundMessage) error {
	sessions := c.store.ByChat(msg.Chat.ID)
	if len(sessions) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, msg.Chat.ID)
	}
	env := newEnvelope(MsgReply, uuid.NewString(), ChatText{Text: msg.Text, ReplyTo: msg.ReplyToID})
	var errs []error
	for _, s := range sessions {
		if err := s.write(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendTyping implements channel.TypingChannel.
func (c *Channel) SendTyping(ctx context.Context, chat message.Chat) error {
	env := newEnvelope(MsgTyping, "", nil)
	var errs []error
	for _, s := range c.store.ByChat(chat.ID) {
		if err := s.write(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPresence implements channel.PresenceChannel. New sessions receive the
// latest presence in their welcome frame.
func (c *Channel) SetPresence(ctx context.Context, p botconfig.Presence) error {
	c.mu.Lock()
	c.presence = p
	c.mu.Unlock()

	env := newEnvelope(MsgPresence, "", p)
	var errs []error
	for _, s := range c.store.All() {
		if err := s.write(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ServeHTTP upgrades the request and runs the session until the client
// goes away: hello, welcome, then the read loop.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: c.config.OriginPatterns})
	if err != nil {
		c.logger.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(c.config.ReadLimit)
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	ctx := r.Context()
	s, err := c.handleHello(ctx, conn)
	if err != nil {
		c.logger.Warn("websocket hello rejected", "error", err)
		conn.Close(websocket.StatusPolicyViolation, err.Error()) //nolint:errcheck // closing anyway
		return
	}
	defer c.store.Remove(s.ID)

	c.logger.Info("websocket session opened",
		"session_id", s.ID,
		"user", s.Sender.ID,
		"chat", s.Chat.ID,
	)
	c.readLoop(ctx, s)
	c.logger.Info("websocket session closed", "session_id", s.ID)
}

func (c *Channel) handleHello(ctx context.Context, conn *websocket.Conn) (*Session, error) {
	helloCtx, cancel := context.WithTimeout(ctx, c.config.HelloTimeout)
	defer cancel()

	_, data, err := conn.Read(helloCtx)
	if err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != MsgHello {
		return nil, fmt.Errorf("%w: expected hello frame", ErrBadHello)
	}
	var hello Hello
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHello, err)
	}

	if len(c.tokens) > 0 {
		if _, ok := c.tokens[hello.Token]; !ok {
			return nil, ErrInvalidToken
		}
	}
	if hello.User.ID == "" {
		return nil, fmt.Errorf("%w: user.id is required", ErrBadHello)
	}
	if err := scope.Validate(message.ScopeOf(Name, hello.Chat.ID)); err != nil {
		return nil, fmt.Errorf("%w: chat.id: %w", ErrBadHello, err)
	}
	if hello.Chat.Type == "" {
		hello.Chat.Type = message.ChatDM
	}

	now := time.Now()
	s := &Session{
		ID:          uuid.NewString(),
		Sender:      hello.User,
		Chat:        hello.Chat,
		ConnectedAt: now,
		lastSeenAt:  now,
		conn:        conn,
	}
	if !c.store.AddIfUnder(s, c.config.MaxSessions) {
		return nil, ErrMaxSessions
	}

	c.mu.RLock()
	presence := c.presence
	c.mu.RUnlock()
	if err := s.write(ctx, newEnvelope(MsgWelcome, env.ID, Welcome{SessionID: s.ID, Presence: presence})); err != nil {
		c.store.Remove(s.ID)
		return nil, err
	}
	return s, nil
}

func (c *Channel) readLoop(ctx context.Context, s *Session) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		s.touch(time.Now())

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(ctx, s, "", "invalid frame")
			continue
		}

		switch env.Type {
		case MsgHeartbeat:
			_ = s.write(ctx, newEnvelope(MsgHeartbeatAck, env.ID, nil))
		case MsgMessage:
			c.handleMessage(ctx, s, env)
		default:
			c.sendError(ctx, s, env.ID, "unexpected frame type "+string(env.Type))
		}
	}
}

func (c *Channel) handleMessage(ctx context.Context, s *Session, env Envelope) {
	var text ChatText
	if err := json.Unmarshal(env.Payload, &text); err != nil {
		c.sendError(ctx, s, env.ID, "invalid message payload")
		return
	}

	c.mu.RLock()
	inbox := c.inbox
	c.mu.RUnlock()
	if inbox == nil {
		c.sendError(ctx, s, env.ID, "bot is not ready")
		return
	}

	id := env.ID
	if id == "" {
		id = uuid.NewString()
	}
	msg := message.InboundMessage{
		ID:        id,
		Timestamp: time.Now(),
		Channel:   Name,
		Sender:    s.Sender,
		Chat:      s.Chat,
		Text:      text.Text,
		Mentioned: text.Mentioned,
	}
	if err := inbox(msg); err != nil {
		c.logger.Warn("inbound message rejected", "session_id", s.ID, "error", err)
		c.sendError(ctx, s, env.ID, "message not accepted, try again later")
	}
}

func (c *Channel) sendError(ctx context.Context, s *Session, id, msg string) {
	if err := s.write(ctx, newEnvelope(MsgError, id, ErrorPayload{Message: msg})); err != nil {
		c.logger.Debug("error frame not delivered", "session_id", s.ID, "error", err)
	}
}

func (c *Channel) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.reapIdle(now)
		}
	}
}

// reapIdle closes sessions silent for maxMissedHeartbeats intervals and
// returns how many it closed. The read loop removes them from the store.
func (c *Channel) reapIdle(now time.Time) int {
	threshold := c.config.HeartbeatInterval * maxMissedHeartbeats
	closed := 0
	for _, s := range c.store.All() {
		if now.Sub(s.LastSeen()) > threshold {
			c.logger.Warn("websocket session idle, disconnecting",
				"session_id", s.ID,
				"last_seen", s.LastSeen(),
			)
			s.close(websocket.StatusGoingAway, "heartbeat timeout")
			closed++
		}
	}
	return closed
}
