package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/config"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func newTestClient(h *Hub, id string, buffer int) *Client {
	c := NewClient(id, domain.Caller{UserID: "user-" + id}, h, nil, config.WebSocketConfig{SendBuffer: buffer})
	h.Register(c)
	return c
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return ""
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("client %s unexpectedly received %s", c.ID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_GroupBroadcast(t *testing.T) {
	h := startHub(t)
	a := newTestClient(h, "a", 8)
	b := newTestClient(h, "b", 8)
	c := newTestClient(h, "c", 8)

	group := domain.ConversationGroup("k")
	require.True(t, h.Join(a, group))
	require.True(t, h.Join(b, group))
	assert.Equal(t, 2, h.GroupSize(group))

	h.BroadcastRawToGroup(group, []byte(`{"type":"x"}`), "")
	assert.JSONEq(t, `{"type":"x"}`, receive(t, a))
	assert.JSONEq(t, `{"type":"x"}`, receive(t, b))
	assertSilent(t, c)

	require.NoError(t, h.BroadcastToGroup(group, map[string]string{"type": "y"}, "a"))
	assert.JSONEq(t, `{"type":"y"}`, receive(t, b))
	assertSilent(t, a)
}

func TestHub_LeaveAndUnregister(t *testing.T) {
	h := startHub(t)
	a := newTestClient(h, "a", 8)

	require.True(t, h.Join(a, "conversation:1"))
	require.True(t, h.Join(a, "user:user-a"))
	assert.Equal(t, []string{"conversation:1", "user:user-a"}, h.Groups(a))

	h.Leave(a, "conversation:1")
	h.Leave(a, "conversation:never-joined")
	assert.Equal(t, []string{"user:user-a"}, h.Groups(a))
	assert.Equal(t, 0, h.GroupSize("conversation:1"))

	h.Unregister(a)
	h.Unregister(a)
	assert.Equal(t, 0, h.ClientCount())
	assert.Empty(t, h.Groups(a))
	assert.False(t, h.Join(a, "conversation:1"))

	_, ok := <-a.Send
	assert.False(t, ok)
	assert.NoError(t, a.SendMessage(map[string]string{"type": "late"}))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := startHub(t)
	slow := newTestClient(h, "slow", 1)
	fast := newTestClient(h, "fast", 8)

	group := domain.DepartmentGroup("5")
	h.Join(slow, group)
	h.Join(fast, group)

	h.BroadcastRawToGroup(group, []byte(`1`), "")
	h.BroadcastRawToGroup(group, []byte(`2`), "")

	assert.Equal(t, "1", receive(t, fast))
	assert.Equal(t, "2", receive(t, fast))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.GroupSize(group))
}

func TestHub_RunStopClosesClients(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(h, "a", 1)
	cancel()
	<-stopped

	_, ok := <-c.Send
	assert.False(t, ok)
	// Broadcasting after shutdown must not block.
	h.BroadcastRawToGroup("user:x", []byte(`{}`), "")
}
