package domain

import "strings"

// Realtime frame types from client.
const (
	MsgTypeJoinConversation  = "JoinConversation"
	MsgTypeLeaveConversation = "LeaveConversation"
	MsgTypeSendEphemeral     = "SendEphemeral"
	MsgTypeMarkMessageRead   = "MarkMessageRead"
	MsgTypePing              = "Ping"
)

// Realtime frame types to client.
const (
	MsgTypeConnected           = "Connected"
	MsgTypeConversationJoined  = "ConversationJoined"
	MsgTypeConversationLeft    = "ConversationLeft"
	MsgTypeReceiveEphemeral    = "ReceiveEphemeral"
	MsgTypeEphemeralSent       = "EphemeralSent"
	MsgTypeMessageRead         = "MessageRead"
	MsgTypeReceiveMessage      = "ReceiveMessage"
	MsgTypeReceiveNotification = "ReceiveNotification"
	MsgTypeConversationCreated = "ConversationCreated"
	MsgTypeError               = "Error"
	MsgTypePong                = "Pong"
)

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeUnknownType    = "UNKNOWN_TYPE"
)

// Group name prefixes. A group is "<scope>:<id>".
const (
	GroupScopeConversation = "conversation"
	GroupScopeDepartment   = "department"
	GroupScopeUser         = "user"
)

// ConversationGroup returns the broadcast group of a conversation.
func ConversationGroup(conversationID string) string {
	return GroupScopeConversation + ":" + conversationID
}

// DepartmentGroup returns the broadcast group of a department.
func DepartmentGroup(departmentID string) string {
	return GroupScopeDepartment + ":" + departmentID
}

// UserGroup returns the personal group of a user, shared by all of the
// user's connections.
func UserGroup(userID string) string {
	return GroupScopeUser + ":" + userID
}

// SplitGroup splits a group name into its scope and id.
func SplitGroup(group string) (scope, id string, ok bool) {
	scope, id, ok = strings.Cut(group, ":")
	if !ok || scope == "" || id == "" {
		return "", "", false
	}
	return scope, id, true
}

// BaseMessage is the base structure for all realtime frames.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server frames

type ConversationMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type SendEphemeralMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
}

type MarkMessageReadMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// Server -> Client frames

type ConnectedMessage struct {
	Type         string   `json:"type"`
	ConnectionID string   `json:"connectionId"`
	UserID       string   `json:"userId"`
	DepartmentID *int64   `json:"departmentId,omitempty"`
	Groups       []string `json:"groups"`
}

type ConversationAckMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type EphemeralMessage struct {
	Type           string `json:"type"`
	EventID        string `json:"eventId"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId,omitempty"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp"`
}

type EphemeralSentMessage struct {
	Type           string `json:"type"`
	EventID        string `json:"eventId"`
	ConversationID string `json:"conversationId"`
}

type MessageReadMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	ReaderID       string `json:"readerId"`
	Timestamp      int64  `json:"timestamp"`
}

type ReceiveMessageMessage struct {
	Type    string          `json:"type"`
	Message MessageResponse `json:"message"`
}

type ReceiveNotificationMessage struct {
	Type         string               `json:"type"`
	Notification NotificationResponse `json:"notification"`
}

type ConversationCreatedMessage struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId"`
	CreatedBy      string   `json:"createdBy"`
	Participants   []string `json:"participants"`
}

type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
