package domain

import "time"

// PageRequest is the common ?page=N query.
type PageRequest struct {
	Page int `form:"page" binding:"omitempty,min=1"`
}

// CreateConversationRequest represents a create conversation request.
// participantIds must hold exactly one other user.
type CreateConversationRequest struct {
	Title          *string  `json:"title" binding:"omitempty,max=200"`
	DepartmentID   *int64   `json:"departmentId"`
	ParticipantIDs []string `json:"participantIds" binding:"required,len=1,dive,required"`
}

// CreateConversationResponse is returned by POST /conversations.
type CreateConversationResponse struct {
	ConversationID string `json:"conversationId"`
	Created        bool   `json:"created"`
}

// SendMessageRequest represents a send message request.
type SendMessageRequest struct {
	ConversationID string  `json:"conversationId" binding:"required"`
	ReceiverID     *string `json:"receiverId"`
	Content        string  `json:"content" binding:"required"`
}

// SendMessageResponse is returned by POST /messages.
type SendMessageResponse struct {
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

// ListUsersRequest represents the directory query.
type ListUsersRequest struct {
	Search string `form:"search" binding:"omitempty,max=100"`
}

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
}

// MessageResponse is the projection of a persisted message, used by both
// REST and the ReceiveMessage realtime event.
type MessageResponse struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	SenderName     string        `json:"senderName,omitempty"`
	SenderAvatar   string        `json:"senderAvatar,omitempty"`
	ReceiverID     *string       `json:"receiverId,omitempty"`
	Content        string        `json:"content"`
	SentAt         time.Time     `json:"sentAt"`
	IsRead         bool          `json:"isRead"`
	Status         MessageStatus `json:"status"`
}

// NotificationResponse is the projection of a notification, used by both
// REST and the ReceiveNotification realtime event.
type NotificationResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Message        string    `json:"message"`
	MessageID      *string   `json:"messageId,omitempty"`
	ConversationID *string   `json:"conversationId,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationResponse is a conversation with its participants and the
// caller's unread count.
type ConversationResponse struct {
	ID            string        `json:"id"`
	Title         *string       `json:"title,omitempty"`
	DepartmentID  *int64        `json:"departmentId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	Participants  []UserSummary `json:"participants"`
	UnreadCount   int64         `json:"unreadCount"`
}

// Pagination is embedded in paginated list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes total pages for a page of size pageSize.
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// ListConversationsResponse represents a paginated conversation list.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Pagination
}

// ConversationDetailResponse is a conversation plus one page of messages,
// newest first.
type ConversationDetailResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []MessageResponse    `json:"messages"`
	Pagination
}

// ListNotificationsResponse represents a paginated notification list.
type ListNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadTotal   int64                  `json:"unreadTotal"`
	Pagination
}

// ToResponse converts Notification to NotificationResponse.
func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		UserID:         n.UserID,
		Message:        n.Message,
		MessageID:      n.MessageID,
		ConversationID: n.ConversationID,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}

// ToResponse converts Message to MessageResponse. Sender fields are filled by
// the caller when the directory entry is known.
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		SentAt:         m.SentAt,
		IsRead:         m.IsRead,
		Status:         m.Status,
	}
}
