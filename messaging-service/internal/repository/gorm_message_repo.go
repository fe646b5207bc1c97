package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append persists the message, the conversation's last_message_at and the
// notifications atomically. Nothing is written if any step fails.
func (r *GormMessageRepository) Append(ctx context.Context, message *domain.Message, notifications []domain.Notification) error {
	l := log.Ctx(ctx).With().
		Str(log.FieldConversationID, message.ConversationID).
		Str(log.FieldMessageID, message.ID).
		Logger()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.ConversationModel{}).
			Where("id = ?", message.ConversationID).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrConversationNotFound
		}

		if err := tx.Select("*").Create(domain.MessageToModel(message)).Error; err != nil {
			return err
		}

		// RowsAffected is not checked: MySQL without clientFoundRows reports
		// zero when last_message_at already holds the same instant.
		if err := tx.Model(&domain.ConversationModel{}).
			Where("id = ?", message.ConversationID).
			Update("last_message_at", message.SentAt).Error; err != nil {
			return err
		}

		if len(notifications) == 0 {
			return nil
		}
		models := make([]domain.NotificationModel, len(notifications))
		for i := range notifications {
			models[i] = *domain.NotificationToModel(&notifications[i])
		}
		return tx.Select("*").Create(&models).Error
	})
	if err != nil {
		l.Error().Err(err).Int("notifications", len(notifications)).Msg("failed to append message")
		return err
	}

	l.Debug().Int("notifications", len(notifications)).Msg("message appended in db")
	return nil
}

// ListByConversation retrieves one page of messages, newest first.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	l := log.Ctx(ctx)
	offset, limit := pageOffset(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("conversation_id = ?", conversationID)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to count messages")
		return nil, 0, err
	}

	// Get messages
	var models []domain.MessageModel
	err := query.Order("sent_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to list messages from db")
		return nil, 0, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, total, nil
}

// CountUnread counts unread messages addressed to userID or to the whole
// conversation.
func (r *GormMessageRepository) CountUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("conversation_id = ?", conversationID).
		Where("is_read = ?", false).
		Where("(receiver_id = ? OR receiver_id IS NULL)", userID).
		Count(&count)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).
			Str(log.FieldConversationID, conversationID).
			Str(log.FieldUserID, userID).
			Msg("failed to count unread messages")
		return 0, result.Error
	}
	return count, nil
}

type unreadRow struct {
	ConversationID string
	Unread         int64
}

// CountUnreadByConversations is CountUnread for a page of conversations in a
// single grouped query. Conversations with nothing unread map to zero.
func (r *GormMessageRepository) CountUnreadByConversations(ctx context.Context, conversationIDs []string, userID string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	for _, id := range conversationIDs {
		out[id] = 0
	}

	var rows []unreadRow
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ?", conversationIDs).
		Where("is_read = ?", false).
		Where("(receiver_id = ? OR receiver_id IS NULL)", userID).
		Group("conversation_id").
		Scan(&rows)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to count unread by conversation")
		return nil, result.Error
	}

	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}
