package service

import (
	"context"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

// MessagingService defines the interface for the messaging REST surface.
type MessagingService interface {
	ListConversations(ctx context.Context, caller domain.Caller, page int) (*domain.ListConversationsResponse, error)
	GetConversation(ctx context.Context, caller domain.Caller, conversationID string, page int) (*domain.ConversationDetailResponse, error)
	CreateConversation(ctx context.Context, caller domain.Caller, req *domain.CreateConversationRequest) (*domain.CreateConversationResponse, error)
	SendMessage(ctx context.Context, caller domain.Caller, req *domain.SendMessageRequest) (*domain.SendMessageResponse, error)
	ListUsers(ctx context.Context, caller domain.Caller, search string) ([]domain.UserSummary, error)
	ListNotifications(ctx context.Context, caller domain.Caller, page int) (*domain.ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, caller domain.Caller, notificationID string) error
}

// MembershipChecker is the narrow view the realtime layer needs.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}
