package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/testutil"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
)

type recordingNotifier struct {
	mu            sync.Mutex
	messages      []domain.MessageResponse
	notifications []domain.Notification
	created       []string
}

func (n *recordingNotifier) MessageCreated(_ context.Context, m domain.MessageResponse, notifications []domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	n.notifications = append(n.notifications, notifications...)
}

func (n *recordingNotifier) ConversationCreated(_ context.Context, conversationID, _ string, _ []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, conversationID)
}

// stepClock returns strictly increasing timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	db            *gorm.DB
	users         *repository.GormUserRepository
	conversations *repository.GormConversationRepository
	messages      *repository.GormMessageRepository
	notifications *repository.GormNotificationRepository
	directory     *Directory
	gate          *AccessGate
	resolver      *Resolver
	pipeline      *Pipeline
	unread        *UnreadAccounting
	notifier      *recordingNotifier
	svc           MessagingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	f := &fixture{
		db:            db,
		users:         repository.NewGormUserRepository(db),
		conversations: repository.NewGormConversationRepository(db),
		messages:      repository.NewGormMessageRepository(db),
		notifications: repository.NewGormNotificationRepository(db),
		notifier:      &recordingNotifier{},
	}
	clock := &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}

	f.directory = NewDirectory(f.users, nil, time.Minute, nil, time.Minute)
	f.gate = NewAccessGate(f.conversations)
	f.resolver = NewResolver(f.directory, f.conversations, idgen.NewUUIDGenerator(), DefaultResolveAttempts)
	f.pipeline = NewPipeline(f.gate, f.directory, f.conversations, f.messages,
		idgen.NewULIDGenerator(), idgen.NewULIDGenerator(), f.notifier,
		PipelineOptions{Clock: clock.Now})
	f.unread = NewUnreadAccounting(f.messages, f.notifications)
	f.svc = NewMessagingService(Deps{
		Directory:     f.directory,
		Gate:          f.gate,
		Resolver:      f.resolver,
		Pipeline:      f.pipeline,
		Unread:        f.unread,
		Conversations: f.conversations,
		Messages:      f.messages,
		Notifications: f.notifications,
		Notifier:      f.notifier,
		PageSize:      20,
	})
	return f
}

func (f *fixture) seed(t *testing.T, id string, role domain.Role, dept *int64) domain.Caller {
	t.Helper()
	u := testutil.SeedUser(t, f.db, id, role, dept)
	return domain.Caller{UserID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}
}

// conversation creates a 1:1 conversation bypassing the role matrix.
func (f *fixture) conversation(t *testing.T, a, b string) string {
	t.Helper()
	res, err := f.resolver.ResolveOrCreate(context.Background(), a, b, nil, nil)
	require.NoError(t, err)
	return res.ConversationID
}

// addParticipant widens a conversation beyond two members.
func (f *fixture) addParticipant(t *testing.T, conversationID, userID string) {
	t.Helper()
	require.NoError(t, f.db.Create(&domain.ParticipantModel{ConversationID: conversationID, UserID: userID}).Error)
}
