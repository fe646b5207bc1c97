package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/audit"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
)

const DefaultPageSize = 20

// messagingServiceImpl implements MessagingService.
type messagingServiceImpl struct {
	directory     *Directory
	gate          *AccessGate
	resolver      *Resolver
	pipeline      *Pipeline
	unread        *UnreadAccounting
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	notifier      Notifier
	pageSize      int
}

// Deps wires the messaging service.
type Deps struct {
	Directory     *Directory
	Gate          *AccessGate
	Resolver      *Resolver
	Pipeline      *Pipeline
	Unread        *UnreadAccounting
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Notifications repository.NotificationRepository
	Notifier      Notifier
	PageSize      int
}

// NewMessagingService creates a new messaging service.
func NewMessagingService(deps Deps) MessagingService {
	if deps.Notifier == nil {
		deps.Notifier = NoopNotifier{}
	}
	if deps.PageSize <= 0 {
		deps.PageSize = DefaultPageSize
	}
	return &messagingServiceImpl{
		directory:     deps.Directory,
		gate:          deps.Gate,
		resolver:      deps.Resolver,
		pipeline:      deps.Pipeline,
		unread:        deps.Unread,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		notifications: deps.Notifications,
		notifier:      deps.Notifier,
		pageSize:      deps.PageSize,
	}
}

// ListConversations lists the caller's conversations with participants and
// the caller's unread count.
func (s *messagingServiceImpl) ListConversations(ctx context.Context, caller domain.Caller, page int) (*domain.ListConversationsResponse, error) {
	if page < 1 {
		page = 1
	}

	conversations, total, err := s.conversations.ListForUser(ctx, caller.UserID, page, s.pageSize)
	if err != nil {
		return nil, internal("list conversations", err)
	}

	ids := make([]string, len(conversations))
	for i, c := range conversations {
		ids[i] = c.ID
	}

	var (
		participants map[string][]domain.UserSummary
		unread       map[string]int64
	)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		participants, err = s.participantSummaries(gCtx, ids)
		return err
	})

	g.Go(func() error {
		var err error
		unread, err = s.unread.UnreadCounts(gCtx, ids, caller.UserID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]domain.ConversationResponse, len(conversations))
	for i := range conversations {
		c := &conversations[i]
		items[i] = conversationResponse(c, participants[c.ID], unread[c.ID])
	}

	return &domain.ListConversationsResponse{
		Conversations: items,
		Pagination:    domain.NewPagination(page, s.pageSize, total),
	}, nil
}

// GetConversation returns one page of a conversation's messages, newest
// first. Only participants may read.
func (s *messagingServiceImpl) GetConversation(ctx context.Context, caller domain.Caller, conversationID string, page int) (*domain.ConversationDetailResponse, error) {
	if page < 1 {
		page = 1
	}

	conversation, err := s.gate.RequireParticipant(ctx, conversationID, caller.UserID)
	if err != nil {
		return nil, err
	}

	var (
		messages     []domain.Message
		total        int64
		participants map[string][]domain.UserSummary
		unread       int64
	)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		messages, total, err = s.messages.ListByConversation(gCtx, conversationID, page, s.pageSize)
		if err != nil {
			return internal("list messages", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		participants, err = s.participantSummaries(gCtx, []string{conversationID})
		return err
	})

	g.Go(func() error {
		var err error
		unread, err = s.unread.UnreadCount(gCtx, conversationID, caller.UserID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	members := participants[conversationID]
	byID := make(map[string]domain.UserSummary, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	items := make([]domain.MessageResponse, len(messages))
	for i := range messages {
		items[i] = messages[i].ToResponse()
		if sender, ok := byID[messages[i].SenderID]; ok {
			items[i].SenderName = sender.DisplayName
			items[i].SenderAvatar = sender.AvatarURL
		}
	}

	return &domain.ConversationDetailResponse{
		Conversation: conversationResponse(conversation, members, unread),
		Messages:     items,
		Pagination:   domain.NewPagination(page, s.pageSize, total),
	}, nil
}

// CreateConversation authorizes the pairing against the role matrix and then
// resolves or creates the 1:1 conversation.
func (s *messagingServiceImpl) CreateConversation(ctx context.Context, caller domain.Caller, req *domain.CreateConversationRequest) (*domain.CreateConversationResponse, error) {
	if len(req.ParticipantIDs) != 1 {
		return nil, ErrParticipantCount
	}
	otherID := strings.TrimSpace(req.ParticipantIDs[0])
	if otherID == "" {
		return nil, ErrParticipantCount
	}
	if otherID == caller.UserID {
		return nil, ErrSelfConversation
	}

	other, err := s.directory.GetUser(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if !other.IsActive {
		return nil, ErrUserNotFound
	}
	if !s.gate.CanConverseWith(caller, other) {
		return nil, ErrRoleNotAllowed
	}

	var title *string
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			title = &t
		}
	}

	res, err := s.resolver.ResolveOrCreate(ctx, caller.UserID, otherID, title, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	if res.Created {
		audit.LogTarget(ctx, audit.ActionCreateConversation, caller.UserID, res.ConversationID, "conversation created")
		s.notifier.ConversationCreated(ctx, res.ConversationID, caller.UserID, []string{caller.UserID, otherID})
	}

	return &domain.CreateConversationResponse{
		ConversationID: res.ConversationID,
		Created:        res.Created,
	}, nil
}

// SendMessage runs the message pipeline.
func (s *messagingServiceImpl) SendMessage(ctx context.Context, caller domain.Caller, req *domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	message, err := s.pipeline.Send(ctx, caller, SendInput{
		ConversationID: req.ConversationID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
	})
	if err != nil {
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionSendMessage, caller.UserID, message.ConversationID, "message sent")
	return &domain.SendMessageResponse{
		MessageID: message.ID,
		SentAt:    message.SentAt,
	}, nil
}

// ListUsers lists active users the caller may start a conversation with.
func (s *messagingServiceImpl) ListUsers(ctx context.Context, caller domain.Caller, search string) ([]domain.UserSummary, error) {
	users, err := s.directory.ListActive(ctx, search, caller.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		if !s.gate.CanConverseWith(caller, &users[i]) {
			continue
		}
		out = append(out, s.directory.Summary(ctx, &users[i]))
	}
	return out, nil
}

// ListNotifications lists the caller's notifications newest first along with
// the unread total.
func (s *messagingServiceImpl) ListNotifications(ctx context.Context, caller domain.Caller, page int) (*domain.ListNotificationsResponse, error) {
	if page < 1 {
		page = 1
	}

	var (
		notifications []domain.Notification
		total         int64
		unread        int64
	)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		notifications, total, err = s.notifications.ListForUser(gCtx, caller.UserID, page, s.pageSize)
		if err != nil {
			return internal("list notifications", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		unread, err = s.unread.UnreadNotifications(gCtx, caller.UserID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]domain.NotificationResponse, len(notifications))
	for i := range notifications {
		items[i] = notifications[i].ToResponse()
	}

	return &domain.ListNotificationsResponse{
		Notifications: items,
		UnreadTotal:   unread,
		Pagination:    domain.NewPagination(page, s.pageSize, total),
	}, nil
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *messagingServiceImpl) MarkNotificationRead(ctx context.Context, caller domain.Caller, notificationID string) error {
	if err := s.unread.MarkRead(ctx, notificationID, caller.UserID); err != nil {
		return err
	}
	audit.LogTarget(ctx, audit.ActionReadNotification, caller.UserID, notificationID, "notification read")
	return nil
}

// participantSummaries loads the members of each conversation as summaries.
func (s *messagingServiceImpl) participantSummaries(ctx context.Context, conversationIDs []string) (map[string][]domain.UserSummary, error) {
	byConversation, err := s.conversations.ListParticipantsByConversations(ctx, conversationIDs)
	if err != nil {
		return nil, internal("list participants", err)
	}

	var userIDs []string
	for _, ids := range byConversation {
		userIDs = append(userIDs, ids...)
	}
	users, err := s.directory.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]domain.UserSummary, len(users))
	out := make(map[string][]domain.UserSummary, len(byConversation))
	for conversationID, ids := range byConversation {
		members := make([]domain.UserSummary, 0, len(ids))
		for _, id := range ids {
			summary, ok := summaries[id]
			if !ok {
				if user, found := users[id]; found {
					summary = s.directory.Summary(ctx, user)
				} else {
					// Left the directory; keep the id so clients can still render the row.
					summary = domain.UserSummary{ID: id, Role: domain.RoleUnknown.String()}
				}
				summaries[id] = summary
			}
			members = append(members, summary)
		}
		out[conversationID] = members
	}
	return out, nil
}

func conversationResponse(c *domain.Conversation, participants []domain.UserSummary, unread int64) domain.ConversationResponse {
	if participants == nil {
		participants = []domain.UserSummary{}
	}
	return domain.ConversationResponse{
		ID:            c.ID,
		Title:         c.Title,
		DepartmentID:  c.DepartmentID,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
		Participants:  participants,
		UnreadCount:   unread,
	}
}
