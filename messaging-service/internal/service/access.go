package service

import (
	"context"
	"errors"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
)

// AccessGate answers the two authorization questions of the messaging
// subsystem: may these two people converse, and is this user a member of
// that conversation.
type AccessGate struct {
	conversations repository.ConversationRepository
}

func NewAccessGate(conversations repository.ConversationRepository) *AccessGate {
	return &AccessGate{conversations: conversations}
}

// CanConverseWith applies the role matrix between the caller and a directory
// entry. Inactive targets are never reachable.
func (g *AccessGate) CanConverseWith(caller domain.Caller, target *domain.User) bool {
	if target == nil || !target.IsActive {
		return false
	}
	return domain.CanConverseWith(caller.Role, caller.DepartmentID, target.Role, target.DepartmentID)
}

// IsParticipant reports conversation membership. It is the only source of
// truth for access to an existing conversation.
func (g *AccessGate) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := g.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, internal("check participant", err)
	}
	return ok, nil
}

// RequireParticipant loads the conversation and checks userID belongs to it.
// Unknown conversations are ErrConversationNotFound; non-members are
// ErrNotParticipant.
func (g *AccessGate) RequireParticipant(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return nil, ErrMissingConversation
	}

	conversation, err := g.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, internal("get conversation", err)
	}

	ok, err := g.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	return conversation, nil
}
