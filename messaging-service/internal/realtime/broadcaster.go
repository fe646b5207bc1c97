// Package realtime pushes messaging events to websocket clients. The
// Broadcaster publishes group events to the pub/sub bus, the Relay delivers
// bus events into the local hub, and WSHandler serves the client protocol.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/pubsub"
)

const DefaultPublishTimeout = 5 * time.Second

// Broadcaster publishes group events asynchronously. Publishing never blocks
// or fails the caller; errors are logged. Events for one group reach the bus
// in the order Publish was called.
type Broadcaster struct {
	publisher pubsub.Publisher
	timeout   time.Duration

	mu     sync.Mutex
	queues map[string]*publishQueue
	wg     sync.WaitGroup
}

type publishJob struct {
	ctx     context.Context
	channel string
	event   *pubsub.Event
	logger  zerolog.Logger
}

// publishQueue is drained by a single worker that exits once it is empty.
type publishQueue struct {
	jobs []publishJob
}

func NewBroadcaster(publisher pubsub.Publisher, timeout time.Duration) *Broadcaster {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Broadcaster{
		publisher: publisher,
		timeout:   timeout,
		queues:    make(map[string]*publishQueue),
	}
}

// MessageCreated sends ReceiveMessage to the conversation group. Each
// notification goes to the conversation group and to the recipient's
// personal group, so recipients that have not joined the conversation see it
// too. Clients in both groups get it twice and can drop repeats by id.
func (b *Broadcaster) MessageCreated(ctx context.Context, message domain.MessageResponse, notifications []domain.Notification) {
	conversation := domain.ConversationGroup(message.ConversationID)
	b.Publish(ctx, conversation, domain.MsgTypeReceiveMessage, &domain.ReceiveMessageMessage{
		Type:    domain.MsgTypeReceiveMessage,
		Message: message,
	})

	for i := range notifications {
		n := &notifications[i]
		frame := &domain.ReceiveNotificationMessage{
			Type:         domain.MsgTypeReceiveNotification,
			Notification: n.ToResponse(),
		}
		b.Publish(ctx, conversation, domain.MsgTypeReceiveNotification, frame)
		b.Publish(ctx, domain.UserGroup(n.UserID), domain.MsgTypeReceiveNotification, frame)
	}
}

// ConversationCreated tells every participant about a new conversation.
func (b *Broadcaster) ConversationCreated(ctx context.Context, conversationID, createdBy string, participants []string) {
	frame := &domain.ConversationCreatedMessage{
		Type:           domain.MsgTypeConversationCreated,
		ConversationID: conversationID,
		CreatedBy:      createdBy,
		Participants:   participants,
	}
	for _, userID := range participants {
		b.Publish(ctx, domain.UserGroup(userID), domain.MsgTypeConversationCreated, frame)
	}
}

// Publish sends frame to every connection in group, on every instance.
// The frame is delivered to clients as-is.
func (b *Broadcaster) Publish(ctx context.Context, group, eventType string, frame interface{}) {
	l := log.Ctx(ctx).With().Str(log.FieldGroup, group).Str(log.FieldEventType, eventType).Logger()

	scope, id, ok := domain.SplitGroup(group)
	if !ok {
		l.Error().Msg("broadcast to malformed group")
		return
	}
	event, err := pubsub.NewEvent(eventType, scope, id, frame)
	if err != nil {
		l.Error().Err(err).Msg("failed to encode realtime event")
		return
	}

	// The request may finish before the publish does.
	b.enqueue(group, publishJob{
		ctx:     context.WithoutCancel(ctx),
		channel: pubsub.Channel(scope, id),
		event:   event,
		logger:  l,
	})
}

func (b *Broadcaster) enqueue(group string, job publishJob) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q, ok := b.queues[group]; ok {
		q.jobs = append(q.jobs, job)
		return
	}
	q := &publishQueue{jobs: []publishJob{job}}
	b.queues[group] = q
	b.wg.Add(1)
	go b.drain(group, q)
}

func (b *Broadcaster) drain(group string, q *publishQueue) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if len(q.jobs) == 0 {
			delete(b.queues, group)
			b.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = publishJob{}
		q.jobs = q.jobs[1:]
		b.mu.Unlock()

		b.send(job)
	}
}

func (b *Broadcaster) send(job publishJob) {
	ctx, cancel := context.WithTimeout(job.ctx, b.timeout)
	defer cancel()
	if err := b.publisher.Publish(ctx, job.channel, job.event); err != nil {
		job.logger.Warn().Err(err).Msg("failed to publish realtime event")
	}
}

// Wait blocks until in-flight publishes finish.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}
