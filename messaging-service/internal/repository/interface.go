package repository

import (
	"context"
	"errors"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrDuplicateConversation = errors.New("conversation already exists for pair")
)

// UserRepository reads the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	ListActive(ctx context.Context, search, excludeID string) ([]domain.User, error)
}

// ConversationRepository defines the interface for conversation persistence.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByDirectKey(ctx context.Context, directKey string) (*domain.Conversation, error)
	// CreateDirect inserts the conversation and its participants atomically.
	// Returns ErrDuplicateConversation when the direct key is already taken.
	CreateDirect(ctx context.Context, conversation *domain.Conversation, participantIDs []string) error
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
	ListParticipantsByConversations(ctx context.Context, conversationIDs []string) (map[string][]string, error)
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error)
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	// Append stores the message, bumps the conversation's last activity and
	// stores the notifications in one transaction.
	Append(ctx context.Context, message *domain.Message, notifications []domain.Notification) error
	ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	CountUnread(ctx context.Context, conversationID, userID string) (int64, error)
	CountUnreadByConversations(ctx context.Context, conversationIDs []string, userID string) (map[string]int64, error)
}

// NotificationRepository defines the interface for notification persistence.
type NotificationRepository interface {
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
}

func pageOffset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
