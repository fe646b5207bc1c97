package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/hub"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/pubsub"
)

const DefaultRelayRetry = 2 * time.Second

var errSubscriptionClosed = errors.New("subscription closed")

// Relay delivers bus events into the local hub. Every instance runs one, so
// a message committed on any instance reaches clients connected to all of
// them.
type Relay struct {
	subscriber pubsub.Subscriber
	hub        *hub.Hub
	retry      time.Duration

	readyOnce sync.Once
	ready     chan struct{}
	pending   sync.WaitGroup
	doneCh    chan struct{}
}

func NewRelay(subscriber pubsub.Subscriber, h *hub.Hub, retry time.Duration) *Relay {
	if retry <= 0 {
		retry = DefaultRelayRetry
	}
	r := &Relay{
		subscriber: subscriber,
		hub:        h,
		retry:      retry,
		ready:      make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	r.pending.Add(len(pubsub.Scopes))
	return r
}

// Ready is closed once every scope has been subscribed at least once, or
// Run has stopped trying.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

// Done is closed when Run returns.
func (r *Relay) Done() <-chan struct{} { return r.doneCh }

// Run consumes every scope until ctx is done, resubscribing after errors.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.doneCh)

	go func() {
		r.pending.Wait()
		r.readyOnce.Do(func() { close(r.ready) })
	}()

	var wg sync.WaitGroup
	for _, scope := range pubsub.Scopes {
		wg.Add(1)
		go func(scope string) {
			defer wg.Done()
			r.runScope(ctx, scope)
		}(scope)
	}
	wg.Wait()
}

func (r *Relay) runScope(ctx context.Context, scope string) {
	l := log.L()
	var subscribed sync.Once
	defer subscribed.Do(r.pending.Done)

	for {
		err := r.runSubscription(ctx, scope, func() { subscribed.Do(r.pending.Done) })
		if ctx.Err() != nil {
			return
		}
		l.Warn().Err(err).Str("scope", scope).Dur("retry", r.retry).Msg("relay subscription lost, resubscribing")
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retry):
		}
	}
}

func (r *Relay) runSubscription(ctx context.Context, scope string, onSubscribed func()) error {
	ch, err := r.subscriber.SubscribePattern(ctx, pubsub.ScopePattern(scope))
	if err != nil {
		return err
	}
	onSubscribed()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			r.deliver(event)
		}
	}
}

func (r *Relay) deliver(event *pubsub.Event) {
	if event == nil || event.Scope == "" || event.Target == "" {
		l := log.L()
		l.Warn().Msg("relay: dropping event without a target")
		return
	}
	r.hub.BroadcastRawToGroup(event.Scope+":"+event.Target, event.Payload, "")
}
