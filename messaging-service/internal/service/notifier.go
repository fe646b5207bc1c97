package service

import (
	"context"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

// Notifier pushes committed state to connected clients. Implementations must
// not block the caller and must never fail the originating request.
type Notifier interface {
	MessageCreated(ctx context.Context, message domain.MessageResponse, notifications []domain.Notification)
	ConversationCreated(ctx context.Context, conversationID, createdBy string, participants []string)
}

// NoopNotifier discards every event.
type NoopNotifier struct{}

func (NoopNotifier) MessageCreated(context.Context, domain.MessageResponse, []domain.Notification) {}

func (NoopNotifier) ConversationCreated(context.Context, string, string, []string) {}
