package pubsub

import (
	"context"
	"path"
	"sync"

	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

type memorySubscription struct {
	key     string
	pattern bool
	ch      chan *Event
}

func (s *memorySubscription) matches(channel string) bool {
	if !s.pattern {
		return s.key == channel
	}
	ok, err := path.Match(s.key, channel)
	return err == nil && ok
}

// MemoryPubSub is an in-process PubSub for single-instance deployments and
// tests. Delivery is non-blocking: a full subscriber buffer drops the event,
// mirroring the Redis and Kafka drivers.
type MemoryPubSub struct {
	mu            sync.RWMutex
	subscriptions map[string]*memorySubscription
	closed        bool
}

// NewMemoryPubSub creates a new in-process PubSub.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subscriptions: make(map[string]*memorySubscription)}
}

// Publish delivers the event to every matching subscription.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		if !sub.matches(channel) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			l := log.Ctx(ctx)
			l.Warn().Str(log.FieldChannel, channel).Msg("memory pubsub: subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel, false), nil
}

// SubscribePattern subscribes to channels matching a glob pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return m.subscribe(ctx, pattern, true), nil
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string, pattern bool) <-chan *Event {
	sub := &memorySubscription{key: key, pattern: pattern, ch: make(chan *Event, 256)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	if existing, ok := m.subscriptions[key]; ok {
		close(existing.ch)
	}
	m.subscriptions[key] = sub
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.remove(key, sub)
	}()

	return sub.ch
}

func (m *MemoryPubSub) remove(key string, sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.subscriptions[key]; ok && current == sub {
		delete(m.subscriptions, key)
		close(sub.ch)
	}
}

// Unsubscribe removes a channel or pattern subscription.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subscriptions[channel]; ok {
		delete(m.subscriptions, channel)
		close(sub.ch)
	}
	return nil
}

// Close removes every subscription.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, sub := range m.subscriptions {
		delete(m.subscriptions, key)
		close(sub.ch)
	}
	m.closed = true
	return nil
}
