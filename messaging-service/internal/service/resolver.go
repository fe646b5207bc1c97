package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

const (
	MinResolveAttempts     = 1
	MaxResolveAttempts     = 3
	DefaultResolveAttempts = 3
)

// UserLookup finds directory entries by id.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Resolution is the outcome of ResolveOrCreate.
type Resolution struct {
	ConversationID string
	Created        bool
}

// Resolver finds or creates the single 1:1 conversation of a user pair.
// It knows nothing about roles or departments.
type Resolver struct {
	users         UserLookup
	conversations repository.ConversationRepository
	ids           idgen.Generator
	attempts      int
}

// NewResolver creates a Resolver. attempts is clamped to [1, 3].
func NewResolver(users UserLookup, conversations repository.ConversationRepository, ids idgen.Generator, attempts int) *Resolver {
	if attempts < MinResolveAttempts {
		attempts = MinResolveAttempts
	}
	if attempts > MaxResolveAttempts {
		attempts = MaxResolveAttempts
	}
	return &Resolver{
		users:         users,
		conversations: conversations,
		ids:           ids,
		attempts:      attempts,
	}
}

// ResolveOrCreate returns the conversation of {initiatorID, otherUserID},
// creating it with both participants if it does not exist. Concurrent calls
// for the same pair converge on one conversation: the loser of the insert
// race hits the unique direct key and re-reads the winner's row.
func (r *Resolver) ResolveOrCreate(ctx context.Context, initiatorID, otherUserID string, title *string, departmentID *int64) (*Resolution, error) {
	if initiatorID == "" || otherUserID == "" {
		return nil, fmt.Errorf("%w: both user ids are required", ErrInvalidRequest)
	}
	if initiatorID == otherUserID {
		return nil, ErrSelfConversation
	}

	other, err := r.users.GetUser(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if !other.IsActive {
		return nil, ErrUserNotFound
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldUserID, initiatorID).
		Str("other_user_id", otherUserID).
		Logger()

	key := domain.DirectKey(initiatorID, otherUserID)
	for attempt := 1; ; attempt++ {
		existing, err := r.conversations.FindByDirectKey(ctx, key)
		if err == nil {
			return &Resolution{ConversationID: existing.ID}, nil
		}
		if !errors.Is(err, repository.ErrConversationNotFound) {
			return nil, internal("find conversation", err)
		}

		if attempt > r.attempts {
			l.Error().Int("attempts", r.attempts).Msg("conversation creation kept conflicting")
			return nil, fmt.Errorf("%w: conversation could not be resolved after %d attempts", ErrInternal, r.attempts)
		}

		id, err := r.ids.Generate()
		if err != nil {
			return nil, internal("generate conversation id", err)
		}

		conversation := &domain.Conversation{
			ID:           id,
			Title:        title,
			DepartmentID: departmentID,
			DirectKey:    &key,
		}
		err = r.conversations.CreateDirect(ctx, conversation, []string{initiatorID, otherUserID})
		if err == nil {
			l.Info().Str(log.FieldConversationID, id).Msg("conversation created")
			return &Resolution{ConversationID: id, Created: true}, nil
		}
		if !errors.Is(err, repository.ErrDuplicateConversation) {
			return nil, internal("create conversation", err)
		}

		l.Debug().Int("attempt", attempt).Err(ErrConflict).Msg("lost conversation creation race, re-reading")
	}
}
