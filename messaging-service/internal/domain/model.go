package domain

import (
	"time"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	DisplayName  string    `gorm:"type:varchar(100);not null"`
	AvatarKey    string    `gorm:"type:varchar(255)"`
	Role         string    `gorm:"type:varchar(20);index;not null"`
	DepartmentID *int64    `gorm:"index"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		AvatarKey:    m.AvatarKey,
		Role:         ParseRole(m.Role),
		DepartmentID: m.DepartmentID,
		IsActive:     m.IsActive,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		DisplayName:  u.DisplayName,
		AvatarKey:    u.AvatarKey,
		Role:         string(u.Role),
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
	}
}

// ConversationModel is the GORM model for the conversations table.
// DirectKey is unique so concurrent creation of the same pair collides.
type ConversationModel struct {
	ID            string     `gorm:"type:varchar(36);primaryKey"`
	Title         *string    `gorm:"type:varchar(200)"`
	DepartmentID  *int64     `gorm:"index"`
	DirectKey     *string    `gorm:"type:varchar(80);uniqueIndex"`
	CreatedAt     time.Time  `gorm:"precision:6;autoCreateTime"`
	LastMessageAt *time.Time `gorm:"precision:6;index"`
}

// TableName specifies the table name for ConversationModel.
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts ConversationModel to domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	return &Conversation{
		ID:            m.ID,
		Title:         m.Title,
		DepartmentID:  m.DepartmentID,
		DirectKey:     m.DirectKey,
		CreatedAt:     m.CreatedAt,
		LastMessageAt: m.LastMessageAt,
	}
}

// ConversationToModel converts domain Conversation to ConversationModel.
func ConversationToModel(c *Conversation) *ConversationModel {
	return &ConversationModel{
		ID:            c.ID,
		Title:         c.Title,
		DepartmentID:  c.DepartmentID,
		DirectKey:     c.DirectKey,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

// ParticipantModel is the GORM model for the conversation_participants table.
type ParticipantModel struct {
	ConversationID string    `gorm:"type:varchar(36);primaryKey"`
	UserID         string    `gorm:"type:varchar(36);primaryKey;index"`
	JoinedAt       time.Time `gorm:"precision:6;autoCreateTime"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "conversation_participants"
}

// ToDomain converts ParticipantModel to domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		JoinedAt:       m.JoinedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_messages_conversation_sent,priority:1"`
	SenderID       string    `gorm:"type:varchar(36);not null;index"`
	ReceiverID     *string   `gorm:"type:varchar(36);index"`
	Content        string    `gorm:"type:text;not null"`
	SentAt         time.Time `gorm:"precision:6;not null;index:idx_messages_conversation_sent,priority:2"`
	IsRead         bool      `gorm:"not null;default:false"`
	Status         string    `gorm:"type:varchar(16);not null;default:'sent'"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		SentAt:         m.SentAt.UTC(),
		IsRead:         m.IsRead,
		Status:         MessageStatus(m.Status),
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Content:        msg.Content,
		SentAt:         msg.SentAt,
		IsRead:         msg.IsRead,
		Status:         string(msg.Status),
	}
}

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	UserID         string    `gorm:"type:varchar(36);not null;index:idx_notifications_user_created,priority:1"`
	Message        string    `gorm:"type:text;not null"`
	MessageID      *string   `gorm:"type:varchar(36);index"`
	ConversationID *string   `gorm:"type:varchar(36)"`
	CreatedAt      time.Time `gorm:"precision:6;not null;index:idx_notifications_user_created,priority:2"`
	IsRead         bool      `gorm:"not null;default:false"`
}

// TableName specifies the table name for NotificationModel.
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts NotificationModel to domain Notification.
func (m *NotificationModel) ToDomain() *Notification {
	return &Notification{
		ID:             m.ID,
		UserID:         m.UserID,
		Message:        m.Message,
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt.UTC(),
		IsRead:         m.IsRead,
	}
}

// NotificationToModel converts domain Notification to NotificationModel.
func NotificationToModel(n *Notification) *NotificationModel {
	return &NotificationModel{
		ID:             n.ID,
		UserID:         n.UserID,
		Message:        n.Message,
		MessageID:      n.MessageID,
		ConversationID: n.ConversationID,
		CreatedAt:      n.CreatedAt,
		IsRead:         n.IsRead,
	}
}

// Models lists every table this service migrates.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&ConversationModel{},
		&ParticipantModel{},
		&MessageModel{},
		&NotificationModel{},
	}
}
