package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID       = "user_id"
	FieldUsername     = "username"
	FieldRole         = "role"
	FieldDepartmentID = "department_id"

	// Messaging
	FieldConversationID = "conversation_id"
	FieldMessageID      = "message_id"
	FieldNotificationID = "notification_id"
	FieldConnectionID   = "connection_id"
	FieldGroup          = "group"
	FieldChannel        = "channel"
	FieldEventType      = "event_type"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
