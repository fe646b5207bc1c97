// Package hub tracks live websocket connections and their broadcast groups.
// A group is "<scope>:<id>", for example "conversation:42" or "user:u-1".
package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

type Hub struct {
	clients   map[string]*Client            // connectionID -> client
	groups    map[string]map[string]*Client // group -> connectionID -> client
	broadcast chan *GroupMessage
	done      chan struct{}
	mu        sync.RWMutex
}

// GroupMessage is a frame addressed to every member of a group.
type GroupMessage struct {
	Group   string
	Message []byte
	Exclude string // connection ID to exclude
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		groups:    make(map[string]map[string]*Client),
		broadcast: make(chan *GroupMessage, 256),
		done:      make(chan struct{}),
	}
}

// Run delivers group broadcasts until ctx is done. Clients still connected
// at that point are closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.groups = make(map[string]map[string]*Client)
			h.mu.Unlock()
			return

		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, client := range h.groups[msg.Group] {
				if id == msg.Exclude {
					continue
				}
				if !client.trySend(msg.Message) {
					l := log.L()
					l.Warn().Str(log.FieldConnectionID, id).Str(log.FieldGroup, msg.Group).Msg("send buffer full, dropping client")
					go h.Unregister(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register makes the client addressable. It returns once the client can join
// groups.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldUserID, client.Caller.UserID).Msg("client registered")
}

// Unregister removes the client from every group and closes its send
// channel. Repeated calls are no-ops.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		for group, members := range h.groups {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()

	client.close()
	if ok {
		l := log.L()
		l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client unregistered")
	}
}

// Join adds the client to group. It reports false when the client is no
// longer registered.
func (h *Hub) Join(client *Client, group string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[string]*Client)
	}
	h.groups[group][client.ID] = client
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldGroup, group).Msg("client joined group")
	return true
}

// Leave removes the client from group. Leaving a group the client is not in
// is a no-op.
func (h *Hub) Leave(client *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.groups[group]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldGroup, group).Msg("client left group")
}

// Groups returns the groups the client belongs to, sorted.
func (h *Hub) Groups(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for group, members := range h.groups {
		if _, ok := members[client.ID]; ok {
			out = append(out, group)
		}
	}
	sort.Strings(out)
	return out
}

// BroadcastToGroup marshals message and queues it for every member of group.
func (h *Hub) BroadcastToGroup(group string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.BroadcastRawToGroup(group, data, exclude)
	return nil
}

// BroadcastRawToGroup queues already encoded bytes for every member of group.
func (h *Hub) BroadcastRawToGroup(group string, data []byte, exclude string) {
	select {
	case h.broadcast <- &GroupMessage{Group: group, Message: data, Exclude: exclude}:
	case <-h.done:
	}
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
