package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

// fakeServer accepts connections, records JoinConversation frames per
// connection and can drop the current connection on demand.
type fakeServer struct {
	*httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
	joins chan []string // conversation ids per join frame, tagged by connection index
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fs := &fakeServer{joins: make(chan []string, 16)}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		index := len(fs.conns)
		fs.mu.Unlock()

		conn.WriteJSON(map[string]string{"type": domain.MsgTypeConnected})
		for {
			var frame domain.ConversationMessage
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type == domain.MsgTypeJoinConversation {
				fs.joins <- []string{strings.Repeat("#", index), frame.ConversationID}
			}
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) dropCurrent() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.conns[len(fs.conns)-1].Close()
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (s *stateLog) record(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *stateLog) snapshot() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states...)
}

func nextJoin(t *testing.T, fs *fakeServer) []string {
	t.Helper()
	select {
	case j := <-fs.joins:
		return j
	case <-time.After(3 * time.Second):
		t.Fatal("no join received")
		return nil
	}
}

func TestBackoff(t *testing.T) {
	base, limit := 100*time.Millisecond, time.Second
	assert.Equal(t, 100*time.Millisecond, Backoff(0, base, limit))
	assert.Equal(t, 100*time.Millisecond, Backoff(1, base, limit))
	assert.Equal(t, 200*time.Millisecond, Backoff(2, base, limit))
	assert.Equal(t, 800*time.Millisecond, Backoff(4, base, limit))
	assert.Equal(t, time.Second, Backoff(5, base, limit))
	assert.Equal(t, time.Second, Backoff(500, base, limit))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestReconnectRejoinsConversations(t *testing.T) {
	fs := newFakeServer(t)
	states := &stateLog{}
	c := New(Config{
		URL:           fs.url(),
		Token:         "good",
		MinBackoff:    10 * time.Millisecond,
		MaxBackoff:    50 * time.Millisecond,
		OnStateChange: states.record,
	})

	require.NoError(t, c.Join("k"))
	assert.Equal(t, []string{"k"}, c.Conversations())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Equal(t, []string{"#", "k"}, nextJoin(t, fs))
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 3*time.Second, 5*time.Millisecond)

	var connected map[string]string
	select {
	case data := <-c.Frames():
		require.NoError(t, json.Unmarshal(data, &connected))
	case <-time.After(3 * time.Second):
		t.Fatal("no frame delivered")
	}
	assert.Equal(t, domain.MsgTypeConnected, connected["type"])

	fs.dropCurrent()
	assert.Equal(t, []string{"##", "k"}, nextJoin(t, fs))

	require.NoError(t, c.Leave("k"))
	assert.Empty(t, c.Conversations())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateDisconnected, c.State())

	got := states.snapshot()
	require.GreaterOrEqual(t, len(got), 5)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateReconnecting, StateConnected}, got[:4])
	assert.Equal(t, StateDisconnected, got[len(got)-1])

	_, open := <-c.Frames()
	for open {
		_, open = <-c.Frames()
	}
	assert.ErrorIs(t, c.Send(map[string]string{"type": "Ping"}), ErrNotConnected)
}

func TestUnauthorizedStopsImmediately(t *testing.T) {
	fs := newFakeServer(t)
	c := New(Config{URL: fs.url(), Token: "bad", MinBackoff: time.Millisecond})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	fs := newFakeServer(t)
	url := fs.url()
	fs.Close()

	states := &stateLog{}
	c := New(Config{
		URL:           url,
		Token:         "good",
		MinBackoff:    time.Millisecond,
		MaxBackoff:    2 * time.Millisecond,
		MaxAttempts:   3,
		OnStateChange: states.record,
	})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrGaveUp)
	assert.Equal(t, []State{StateConnecting, StateReconnecting, StateDisconnected}, states.snapshot())
}
