// Package wsclient is a reconnecting client for the messaging realtime
// endpoint. It re-joins tracked conversations after every reconnect.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotConnected = errors.New("realtime client is not connected")
	ErrUnauthorized = errors.New("realtime handshake rejected: unauthorized")
	ErrGaveUp       = errors.New("realtime client gave up reconnecting")
)

const (
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second
)

type Config struct {
	URL   string
	Token string

	MinBackoff time.Duration
	MaxBackoff time.Duration
	// MaxAttempts bounds consecutive failed dials; 0 retries forever.
	MaxAttempts int

	Dialer        *websocket.Dialer
	OnStateChange func(State)
}

type Client struct {
	cfg    Config
	frames chan []byte

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	conversations map[string]struct{}

	writeMu sync.Mutex
}

func New(cfg Config) *Client {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
		if cfg.MaxBackoff < cfg.MinBackoff {
			cfg.MaxBackoff = cfg.MinBackoff
		}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:           cfg,
		frames:        make(chan []byte, 64),
		state:         StateDisconnected,
		conversations: make(map[string]struct{}),
	}
}

// Frames delivers every frame received from the server. It is closed when
// Run returns.
func (c *Client) Frames() <-chan []byte { return c.frames }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversations returns the tracked conversation ids, sorted.
func (c *Client) Conversations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.conversations))
	for id := range c.conversations {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Run connects and keeps the connection alive until ctx is done, the server
// rejects the token, or MaxAttempts consecutive dials fail.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.frames)
	l := log.Ctx(ctx)

	failures := 0
	next := StateConnecting
	for {
		c.setState(next)

		conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, c.header())
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return nil
			}
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				c.setState(StateDisconnected)
				return ErrUnauthorized
			}

			failures++
			if c.cfg.MaxAttempts > 0 && failures >= c.cfg.MaxAttempts {
				c.setState(StateDisconnected)
				return fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, failures, err)
			}

			wait := Backoff(failures, c.cfg.MinBackoff, c.cfg.MaxBackoff)
			l.Warn().Err(err).Int("attempt", failures).Dur("retry_in", wait).Msg("realtime dial failed")
			if !sleep(ctx, wait) {
				c.setState(StateDisconnected)
				return nil
			}
			next = StateReconnecting
			continue
		}

		failures = 0
		c.attach(conn)
		c.rejoin()

		err = c.readLoop(ctx, conn)
		c.detach(conn)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}
		l.Warn().Err(err).Msg("realtime connection lost")
		next = StateReconnecting
	}
}

// Join tracks a conversation and joins its group now when connected. The
// join is re-issued after every reconnect.
func (c *Client) Join(conversationID string) error {
	c.mu.Lock()
	c.conversations[conversationID] = struct{}{}
	c.mu.Unlock()

	err := c.Send(domain.ConversationMessage{Type: domain.MsgTypeJoinConversation, ConversationID: conversationID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Leave stops tracking a conversation.
func (c *Client) Leave(conversationID string) error {
	c.mu.Lock()
	delete(c.conversations, conversationID)
	c.mu.Unlock()

	err := c.Send(domain.ConversationMessage{Type: domain.MsgTypeLeaveConversation, ConversationID: conversationID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Send writes one JSON frame on the current connection.
func (c *Client) Send(frame interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// Backoff returns the wait before retry attempt n (1-based): base doubled
// per attempt, capped at limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit || d <= 0 {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.cfg.Token != "" {
		h.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return h
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) rejoin() {
	for _, id := range c.Conversations() {
		if err := c.Send(domain.ConversationMessage{Type: domain.MsgTypeJoinConversation, ConversationID: id}); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldConversationID, id).Msg("failed to re-join conversation")
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		select {
		case c.frames <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
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
