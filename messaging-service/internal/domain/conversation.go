package domain

import (
	"sort"
	"strconv"
	"time"
)

// User is a directory entry. The user subsystem owns it; this service only reads it.
type User struct {
	ID           string
	DisplayName  string
	AvatarKey    string
	Role         Role
	DepartmentID *int64
	IsActive     bool
}

// Conversation is a 1:1 messaging thread.
type Conversation struct {
	ID            string
	Title         *string
	DepartmentID  *int64
	DirectKey     *string
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// Participant is a conversation membership row.
type Participant struct {
	ConversationID string
	UserID         string
	JoinedAt       time.Time
}

// MessageStatus is the delivery state of a message.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Message is a persisted chat message. Ordered by (SentAt, ID).
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     *string
	Content        string
	SentAt         time.Time
	IsRead         bool
	Status         MessageStatus
}

// Notification is a per-recipient record created alongside a message.
type Notification struct {
	ID             string
	UserID         string
	Message        string
	MessageID      *string
	ConversationID *string
	CreatedAt      time.Time
	IsRead         bool
}

// DirectKey returns the canonical key of the unordered pair {a, b}. The
// length prefix keeps ids that contain the separator from colliding.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strconv.Itoa(len(pair[0])) + ":" + pair[0] + ":" + pair[1]
}

// Caller is the authenticated actor of a request or realtime connection, as
// asserted by the access token.
type Caller struct {
	UserID       string
	Role         Role
	DepartmentID *int64
}
