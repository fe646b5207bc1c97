package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/database"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// GetByID retrieves a conversation by ID.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, id).Msg("failed to get conversation by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// FindByDirectKey retrieves the 1:1 conversation of a canonical pair key.
func (r *GormConversationRepository) FindByDirectKey(ctx context.Context, directKey string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "direct_key = ?", directKey)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str("direct_key", directKey).Msg("failed to find conversation by direct key")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// CreateDirect creates a conversation and its participant rows in one transaction.
func (r *GormConversationRepository) CreateDirect(ctx context.Context, conversation *domain.Conversation, participantIDs []string) error {
	l := log.Ctx(ctx)

	model := domain.ConversationToModel(conversation)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		participants := make([]domain.ParticipantModel, len(participantIDs))
		for i, userID := range participantIDs {
			participants[i] = domain.ParticipantModel{
				ConversationID: model.ID,
				UserID:         userID,
			}
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		if database.IsDuplicateKey(err) {
			l.Debug().Str(log.FieldConversationID, model.ID).Msg("direct key already taken")
			return ErrDuplicateConversation
		}
		l.Error().Err(err).Str(log.FieldConversationID, model.ID).Msg("failed to create conversation in db")
		return err
	}

	conversation.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldConversationID, model.ID).Msg("conversation created in db")
	return nil
}

// IsParticipant reports whether userID is a member of the conversation.
func (r *GormConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).
			Str(log.FieldConversationID, conversationID).
			Str(log.FieldUserID, userID).
			Msg("failed to check participant")
		return false, result.Error
	}
	return count > 0, nil
}

// ListParticipantIDs returns the member ids of a conversation in join order.
func (r *GormConversationRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ?", conversationID).
		Order("joined_at ASC, user_id ASC").
		Pluck("user_id", &ids)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, conversationID).Msg("failed to list participants")
		return nil, result.Error
	}
	return ids, nil
}

// ListParticipantsByConversations returns member ids keyed by conversation.
func (r *GormConversationRepository) ListParticipantsByConversations(ctx context.Context, conversationIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var rows []domain.ParticipantModel
	result := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("joined_at ASC, user_id ASC").
		Find(&rows)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Msg("failed to list participants by conversations")
		return nil, result.Error
	}

	for _, row := range rows {
		out[row.ConversationID] = append(out[row.ConversationID], row.UserID)
	}
	return out, nil
}

// ListForUser retrieves the user's conversations, most recent activity first.
func (r *GormConversationRepository) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	l := log.Ctx(ctx)
	offset, limit := pageOffset(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to count conversations")
		return nil, 0, err
	}

	// Get conversations
	var models []domain.ConversationModel
	err := query.Select("conversations.*").
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Order("conversations.id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list conversations from db")
		return nil, 0, err
	}

	conversations := make([]domain.Conversation, len(models))
	for i, model := range models {
		conversations[i] = *model.ToDomain()
	}
	return conversations, total, nil
}
