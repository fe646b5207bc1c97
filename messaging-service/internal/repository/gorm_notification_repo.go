package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-based notification repository.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// ListForUser retrieves one page of the user's notifications, newest first.
func (r *GormNotificationRepository) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int64, error) {
	l := log.Ctx(ctx)
	offset, limit := pageOffset(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("user_id = ?", userID)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to count notifications")
		return nil, 0, err
	}

	// Get notifications
	var models []domain.NotificationModel
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list notifications from db")
		return nil, 0, err
	}

	notifications := make([]domain.Notification, len(models))
	for i, model := range models {
		notifications[i] = *model.ToDomain()
	}
	return notifications, total, nil
}

// CountUnread counts the user's unread notifications.
func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to count unread notifications")
		return 0, result.Error
	}
	return count, nil
}

// MarkRead flags the notification as read when it belongs to userID.
// Marking an already-read notification succeeds.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	l := log.Ctx(ctx).With().
		Str(log.FieldNotificationID, id).
		Str(log.FieldUserID, userID).
		Logger()

	result := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to mark notification read")
		return result.Error
	}
	if result.RowsAffected > 0 {
		l.Debug().Msg("notification marked read in db")
		return nil
	}

	// MySQL reports changed rows, so an already-read row affects nothing.
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		l.Error().Err(err).Msg("failed to look up notification")
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
