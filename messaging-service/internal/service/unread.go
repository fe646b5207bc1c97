package service

import (
	"context"
	"errors"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// UnreadAccounting derives unread state on demand. Nothing here is cached:
// every count is a query against the messages or notifications table.
//
// Message-level and notification-level read state are independent. Marking
// a notification read does not change any message's read flag.
type UnreadAccounting struct {
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
}

func NewUnreadAccounting(messages repository.MessageRepository, notifications repository.NotificationRepository) *UnreadAccounting {
	return &UnreadAccounting{messages: messages, notifications: notifications}
}

// UnreadCount counts unread messages of the conversation addressed to userID
// or to the conversation at large.
func (u *UnreadAccounting) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	n, err := u.messages.CountUnread(ctx, conversationID, userID)
	if err != nil {
		return 0, internal("count unread", err)
	}
	return n, nil
}

// UnreadCounts is UnreadCount for several conversations at once.
func (u *UnreadAccounting) UnreadCounts(ctx context.Context, conversationIDs []string, userID string) (map[string]int64, error) {
	counts, err := u.messages.CountUnreadByConversations(ctx, conversationIDs, userID)
	if err != nil {
		return nil, internal("count unread", err)
	}
	return counts, nil
}

// UnreadNotifications counts the user's unread notifications.
func (u *UnreadAccounting) UnreadNotifications(ctx context.Context, userID string) (int64, error) {
	n, err := u.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, internal("count unread notifications", err)
	}
	return n, nil
}

// MarkRead flags one of userID's notifications as read. A notification that
// does not exist or belongs to someone else is ErrNotificationNotFound, so
// callers cannot probe for other users' ids.
func (u *UnreadAccounting) MarkRead(ctx context.Context, notificationID, userID string) error {
	if notificationID == "" {
		return ErrNotificationNotFound
	}

	if err := u.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return internal("mark notification read", err)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldNotificationID, notificationID).Str(log.FieldUserID, userID).Msg("notification marked read")
	return nil
}
