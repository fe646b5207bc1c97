package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

const (
	DefaultMaxContentRunes = 4000
	DefaultPreviewLength   = 80
)

// SendInput is a message to persist.
type SendInput struct {
	ConversationID string
	ReceiverID     *string
	Content        string
}

// PipelineOptions tunes the Pipeline. Zero values take defaults.
type PipelineOptions struct {
	MaxContentRunes int
	PreviewLength   int
	Clock           func() time.Time
}

// Pipeline validates, persists and announces messages.
type Pipeline struct {
	gate            *AccessGate
	users           UserLookup
	conversations   repository.ConversationRepository
	messages        repository.MessageRepository
	messageIDs      idgen.Generator
	notificationIDs idgen.Generator
	notifier        Notifier
	maxContentRunes int
	previewLength   int
	clock           func() time.Time
}

func NewPipeline(
	gate *AccessGate,
	users UserLookup,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	messageIDs, notificationIDs idgen.Generator,
	notifier Notifier,
	opts PipelineOptions,
) *Pipeline {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if opts.MaxContentRunes <= 0 {
		opts.MaxContentRunes = DefaultMaxContentRunes
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = DefaultPreviewLength
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		gate:            gate,
		users:           users,
		conversations:   conversations,
		messages:        messages,
		messageIDs:      messageIDs,
		notificationIDs: notificationIDs,
		notifier:        notifier,
		maxContentRunes: opts.MaxContentRunes,
		previewLength:   opts.PreviewLength,
		clock:           opts.Clock,
	}
}

// Send persists a message and one notification per other participant in a
// single transaction, then hands the result to the notifier. A failed push
// never undoes the write.
func (p *Pipeline) Send(ctx context.Context, caller domain.Caller, in SendInput) (*domain.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > p.maxContentRunes {
		return nil, fmt.Errorf("%w (max %d characters)", ErrContentTooLong, p.maxContentRunes)
	}
	if in.ConversationID == "" {
		return nil, ErrMissingConversation
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldConversationID, in.ConversationID).
		Str(log.FieldUserID, caller.UserID).
		Logger()

	if _, err := p.gate.RequireParticipant(ctx, in.ConversationID, caller.UserID); err != nil {
		return nil, err
	}

	participants, err := p.conversations.ListParticipantIDs(ctx, in.ConversationID)
	if err != nil {
		return nil, internal("list participants", err)
	}

	var receiverID *string
	if in.ReceiverID != nil && *in.ReceiverID != "" {
		if err := p.checkReceiver(ctx, caller, *in.ReceiverID, participants); err != nil {
			return nil, err
		}
		receiverID = in.ReceiverID
	}

	sender, err := p.users.GetUser(ctx, caller.UserID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	senderName := caller.UserID
	if sender != nil && sender.DisplayName != "" {
		senderName = sender.DisplayName
	}

	messageID, err := p.messageIDs.Generate()
	if err != nil {
		return nil, internal("generate message id", err)
	}

	sentAt := p.clock().UTC().Truncate(time.Microsecond)
	message := &domain.Message{
		ID:             messageID,
		ConversationID: in.ConversationID,
		SenderID:       caller.UserID,
		ReceiverID:     receiverID,
		Content:        content,
		SentAt:         sentAt,
		IsRead:         false,
		Status:         domain.MessageStatusSent,
	}

	preview := fmt.Sprintf("%s: %s", senderName, truncateRunes(content, p.previewLength))
	notifications := make([]domain.Notification, 0, len(participants))
	for _, userID := range participants {
		if userID == caller.UserID {
			continue
		}
		notificationID, err := p.notificationIDs.Generate()
		if err != nil {
			return nil, internal("generate notification id", err)
		}
		notifications = append(notifications, domain.Notification{
			ID:             notificationID,
			UserID:         userID,
			Message:        preview,
			MessageID:      &message.ID,
			ConversationID: &message.ConversationID,
			CreatedAt:      sentAt,
		})
	}

	if err := p.messages.Append(ctx, message, notifications); err != nil {
		l.Error().Err(err).Msg("failed to persist message")
		return nil, internal("append message", err)
	}

	l.Info().
		Str(log.FieldMessageID, message.ID).
		Int("notifications", len(notifications)).
		Msg("message sent")

	projection := message.ToResponse()
	projection.SenderName = senderName
	if sender != nil {
		projection.SenderAvatar = avatarOf(ctx, p.users, sender)
	}
	p.notifier.MessageCreated(ctx, projection, notifications)

	return message, nil
}

// checkReceiver enforces that an addressed receiver exists, belongs to the
// conversation and is reachable under the role matrix.
func (p *Pipeline) checkReceiver(ctx context.Context, caller domain.Caller, receiverID string, participants []string) error {
	receiver, err := p.users.GetUser(ctx, receiverID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrReceiverNotAllowed
		}
		return err
	}
	if !slices.Contains(participants, receiverID) {
		return ErrReceiverNotAllowed
	}
	if !p.gate.CanConverseWith(caller, receiver) {
		return ErrReceiverNotAllowed
	}
	return nil
}

// avatarResolver is implemented by Directory.
type avatarResolver interface {
	AvatarURL(ctx context.Context, user *domain.User) string
}

func avatarOf(ctx context.Context, users UserLookup, user *domain.User) string {
	if r, ok := users.(avatarResolver); ok {
		return r.AvatarURL(ctx, user)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
