package audit

import (
	"context"

	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// Audit actions for messaging-service.
const (
	ActionCreateConversation = "messaging.create_conversation"
	ActionSendMessage        = "messaging.send_message"
	ActionReadNotification   = "messaging.read_notification"
	ActionConnect            = "messaging.connect"
	ActionConnectFailed      = "messaging.connect_failed"
	ActionJoinConversation   = "messaging.join_conversation"
	ActionLeaveConversation  = "messaging.leave_conversation"
	ActionDisconnect         = "messaging.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about a specific object.
func LogTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
