package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/testutil"
)

func createDirect(t *testing.T, repo *GormConversationRepository, id, a, b string) *domain.Conversation {
	t.Helper()
	key := domain.DirectKey(a, b)
	conv := &domain.Conversation{ID: id, DirectKey: &key}
	require.NoError(t, repo.CreateDirect(context.Background(), conv, []string{a, b}))
	return conv
}

func strPtr(s string) *string { return &s }

func TestConversationRepository_CreateDirect(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormConversationRepository(db)
	ctx := context.Background()

	conv := createDirect(t, repo, "c1", "u1", "u2")
	assert.False(t, conv.CreatedAt.IsZero())

	found, err := repo.FindByDirectKey(ctx, domain.DirectKey("u2", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", found.ID)
	assert.Nil(t, found.LastMessageAt)

	t.Run("duplicate pair", func(t *testing.T) {
		key := domain.DirectKey("u2", "u1")
		err := repo.CreateDirect(ctx, &domain.Conversation{ID: "c2", DirectKey: &key}, []string{"u2", "u1"})
		assert.ErrorIs(t, err, ErrDuplicateConversation)

		assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.ConversationModel{}, ""))
		assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.ParticipantModel{}, "conversation_id = ?", "c2"))
	})

	t.Run("membership", func(t *testing.T) {
		ok, err := repo.IsParticipant(ctx, "c1", "u1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsParticipant(ctx, "c1", "u3")
		require.NoError(t, err)
		assert.False(t, ok)

		ids, err := repo.ListParticipantIDs(ctx, "c1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrConversationNotFound)
		_, err = repo.FindByDirectKey(ctx, "x:y")
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})
}

func TestConversationRepository_ListForUserOrdersByActivity(t *testing.T) {
	db := testutil.NewTestDB(t)
	convs := NewGormConversationRepository(db)
	msgs := NewGormMessageRepository(db)
	ctx := context.Background()

	createDirect(t, convs, "c-old", "u1", "u2")
	createDirect(t, convs, "c-new", "u1", "u3")
	createDirect(t, convs, "c-other", "u2", "u3")

	// A message makes the older conversation the most recent.
	require.NoError(t, msgs.Append(ctx, &domain.Message{
		ID: "m1", ConversationID: "c-old", SenderID: "u1", Content: "hi",
		SentAt: time.Now().UTC().Add(time.Minute), Status: domain.MessageStatusSent,
	}, nil))

	list, total, err := convs.ListForUser(ctx, "u1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "c-old", list[0].ID)
	assert.Equal(t, "c-new", list[1].ID)
	require.NotNil(t, list[0].LastMessageAt)

	page2, total, err := convs.ListForUser(ctx, "u1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page2, 1)
	assert.Equal(t, "c-new", page2[0].ID)

	byConv, err := convs.ListParticipantsByConversations(ctx, []string{"c-old", "c-other"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, byConv["c-old"])
	assert.ElementsMatch(t, []string{"u2", "u3"}, byConv["c-other"])
}

func TestMessageRepository_AppendIsAtomic(t *testing.T) {
	db := testutil.NewTestDB(t)
	convs := NewGormConversationRepository(db)
	msgs := NewGormMessageRepository(db)
	ctx := context.Background()

	createDirect(t, convs, "c1", "u1", "u2")
	sentAt := time.Now().UTC().Truncate(time.Microsecond)

	err := msgs.Append(ctx, &domain.Message{
		ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hello",
		SentAt: sentAt, Status: domain.MessageStatusSent,
	}, []domain.Notification{
		{ID: "n1", UserID: "u2", Message: "u1: hello", MessageID: strPtr("m1"), ConversationID: strPtr("c1"), CreatedAt: sentAt},
	})
	require.NoError(t, err)

	conv, err := convs.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessageAt)
	assert.True(t, sentAt.Equal(*conv.LastMessageAt))
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.NotificationModel{}, "message_id = ?", "m1"))

	t.Run("unknown conversation rolls back", func(t *testing.T) {
		err := msgs.Append(ctx, &domain.Message{
			ID: "m2", ConversationID: "missing", SenderID: "u1", Content: "lost",
			SentAt: sentAt, Status: domain.MessageStatusSent,
		}, []domain.Notification{
			{ID: "n2", UserID: "u2", Message: "lost", MessageID: strPtr("m2"), CreatedAt: sentAt},
		})
		assert.ErrorIs(t, err, ErrConversationNotFound)
		assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.MessageModel{}, "id = ?", "m2"))
		assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.NotificationModel{}, "id = ?", "n2"))
	})

	t.Run("same instant as the previous message", func(t *testing.T) {
		err := msgs.Append(ctx, &domain.Message{
			ID: "m4", ConversationID: "c1", SenderID: "u2", Content: "same time",
			SentAt: sentAt, Status: domain.MessageStatusSent,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.MessageModel{}, "id = ?", "m4"))
	})

	t.Run("notification failure rolls back message", func(t *testing.T) {
		// Reusing n1 violates the primary key.
		err := msgs.Append(ctx, &domain.Message{
			ID: "m3", ConversationID: "c1", SenderID: "u1", Content: "dup",
			SentAt: sentAt.Add(time.Second), Status: domain.MessageStatusSent,
		}, []domain.Notification{
			{ID: "n1", UserID: "u2", Message: "dup", MessageID: strPtr("m3"), CreatedAt: sentAt},
		})
		require.Error(t, err)
		assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.MessageModel{}, "id = ?", "m3"))

		conv, err := convs.GetByID(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, sentAt.Equal(*conv.LastMessageAt))
	})
}

func TestMessageRepository_ListOrderIsStable(t *testing.T) {
	db := testutil.NewTestDB(t)
	convs := NewGormConversationRepository(db)
	msgs := NewGormMessageRepository(db)
	ctx := context.Background()

	createDirect(t, convs, "c1", "u1", "u2")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// m-b and m-c share a timestamp; the id breaks the tie.
	for _, m := range []struct {
		id string
		at time.Time
	}{
		{"m-c", base.Add(time.Second)},
		{"m-a", base},
		{"m-b", base.Add(time.Second)},
		{"m-d", base.Add(2 * time.Second)},
	} {
		require.NoError(t, msgs.Append(ctx, &domain.Message{
			ID: m.id, ConversationID: "c1", SenderID: "u1", Content: m.id,
			SentAt: m.at, Status: domain.MessageStatusSent,
		}, nil))
	}

	first, total, err := msgs.ListByConversation(ctx, "c1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	ids := make([]string, len(first))
	for i, m := range first {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"m-d", "m-c", "m-b", "m-a"}, ids)

	for i := 0; i < 3; i++ {
		again, _, err := msgs.ListByConversation(ctx, "c1", 1, 20)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	page2, _, err := msgs.ListByConversation(ctx, "c1", 2, 3)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "m-a", page2[0].ID)
}

func TestMessageRepository_CountUnread(t *testing.T) {
	db := testutil.NewTestDB(t)
	convs := NewGormConversationRepository(db)
	msgs := NewGormMessageRepository(db)
	ctx := context.Background()

	createDirect(t, convs, "c1", "u1", "u2")
	createDirect(t, convs, "c2", "u1", "u3")
	now := time.Now().UTC()

	add := func(id, conv string, receiver *string) {
		require.NoError(t, msgs.Append(ctx, &domain.Message{
			ID: id, ConversationID: conv, SenderID: "u1", ReceiverID: receiver,
			Content: id, SentAt: now, Status: domain.MessageStatusSent,
		}, nil))
	}
	add("m1", "c1", strPtr("u2"))
	add("m2", "c1", nil)
	add("m3", "c1", strPtr("u1"))
	add("m4", "c2", nil)

	n, err := msgs.CountUnread(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = msgs.CountUnread(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, db.Model(&domain.MessageModel{}).Where("id = ?", "m2").Update("is_read", true).Error)
	n, err = msgs.CountUnread(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := msgs.CountUnreadByConversations(ctx, []string{"c1", "c2", "c3"}, "u2")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 1, "c2": 1, "c3": 0}, counts)
}

func TestNotificationRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&domain.NotificationModel{
			ID: fmt.Sprintf("n%d", i), UserID: "u2", Message: "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}).Error)
	}
	require.NoError(t, db.Create(&domain.NotificationModel{ID: "other", UserID: "u3", Message: "x", CreatedAt: base}).Error)

	list, total, err := repo.ListForUser(ctx, "u2", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, "n2", list[0].ID)

	unread, err := repo.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	t.Run("owner marks read", func(t *testing.T) {
		require.NoError(t, repo.MarkRead(ctx, "n1", "u2"))
		require.NoError(t, repo.MarkRead(ctx, "n1", "u2"))

		unread, err := repo.CountUnread(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, int64(2), unread)
	})

	t.Run("foreign or unknown is not found", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkRead(ctx, "other", "u2"), ErrNotificationNotFound)
		assert.ErrorIs(t, repo.MarkRead(ctx, "missing", "u2"), ErrNotificationNotFound)

		var other domain.NotificationModel
		require.NoError(t, db.First(&other, "id = ?", "other").Error)
		assert.False(t, other.IsRead)
	})
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	testutil.SeedUser(t, db, "alice", domain.RoleStaff, testutil.Dept(5))
	testutil.SeedUser(t, db, "bob", domain.RoleManager, testutil.Dept(5))
	testutil.SeedInactiveUser(t, db, "carol", domain.RoleStaff, testutil.Dept(5))

	u, err := repo.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, u.Role)
	require.NotNil(t, u.DepartmentID)
	assert.Equal(t, int64(5), *u.DepartmentID)

	inactive, err := repo.GetByID(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "gone", DisplayName: "Gone", Role: domain.RoleStaff, IsActive: false}))
	gone, err := repo.GetByID(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, gone.IsActive)

	_, err = repo.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := repo.ListActive(ctx, "", "alice")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].ID)

	users, err = repo.ListActive(ctx, "ALI", "")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].ID)

	many, err := repo.GetByIDs(ctx, []string{"alice", "bob", "ghost"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}
