package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/audit"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/config"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/hub"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/service"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
	"github.com/quy-trach/TaskManagement-sub000/pkg/jwt"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/middleware"
	"github.com/quy-trach/TaskManagement-sub000/pkg/response"
)

const Path = "/ws/messages"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authenticator resolves the identity behind a handshake request.
type Authenticator interface {
	Authenticate(r *http.Request) (*jwt.Identity, error)
}

// WSHandlerDeps wires the websocket handler.
type WSHandlerDeps struct {
	Hub           *hub.Hub
	Auth          Authenticator
	Broadcaster   *Broadcaster
	Membership    service.MembershipChecker
	ConnectionIDs idgen.Generator
	EventIDs      idgen.Generator
	WebSocket     config.WebSocketConfig
	// EnforceMembership rejects conversation-scoped operations from
	// connections whose user is not a participant.
	EnforceMembership bool
}

type WSHandler struct {
	hub               *hub.Hub
	auth              Authenticator
	broadcaster       *Broadcaster
	membership        service.MembershipChecker
	connectionIDs     idgen.Generator
	eventIDs          idgen.Generator
	wsCfg             config.WebSocketConfig
	enforceMembership bool
}

func NewWSHandler(deps WSHandlerDeps) *WSHandler {
	return &WSHandler{
		hub:               deps.Hub,
		auth:              deps.Auth,
		broadcaster:       deps.Broadcaster,
		membership:        deps.Membership,
		connectionIDs:     deps.ConnectionIDs,
		eventIDs:          deps.EventIDs,
		wsCfg:             deps.WebSocket,
		enforceMembership: deps.EnforceMembership,
	}
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(Path, h.HandleWebSocket)
}

// HandleWebSocket authenticates the handshake, upgrades, and places the
// connection in its department and personal groups.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.Ctx(r.Context())

	identity, err := h.auth.Authenticate(r)
	if err != nil {
		audit.LogWithDetail(r.Context(), audit.ActionConnectFailed, "", err.Error(), "realtime connection rejected")
		message := "invalid token"
		switch {
		case errors.Is(err, middleware.ErrMissingToken):
			message = "missing access token"
		case errors.Is(err, jwt.ErrExpiredToken):
			message = "token has expired"
		}
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
		return
	}

	connectionID, err := h.connectionIDs.Generate()
	if err != nil {
		l.Error().Err(err).Msg("failed to generate connection id")
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	caller := domain.Caller{
		UserID:       identity.UserID,
		Role:         domain.ParseRole(identity.Role),
		DepartmentID: identity.DepartmentID,
	}

	// The request context ends with this handler; the connection outlives it.
	connLogger := l.With().
		Str(log.FieldConnectionID, connectionID).
		Str(log.FieldUserID, caller.UserID).
		Logger()
	ctx := log.WithLogger(context.WithoutCancel(r.Context()), connLogger)

	client := hub.NewClient(connectionID, caller, h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	h.hub.Join(client, domain.UserGroup(caller.UserID))
	if caller.DepartmentID != nil {
		h.hub.Join(client, domain.DepartmentGroup(strconv.FormatInt(*caller.DepartmentID, 10)))
	}

	client.SendMessage(&domain.ConnectedMessage{
		Type:         domain.MsgTypeConnected,
		ConnectionID: connectionID,
		UserID:       caller.UserID,
		DepartmentID: caller.DepartmentID,
		Groups:       h.hub.Groups(client),
	})
	audit.LogTarget(ctx, audit.ActionConnect, caller.UserID, connectionID, "realtime connection opened")

	go client.WritePump()
	go func() {
		client.ReadPump(func(c *hub.Client, message []byte) {
			h.handleMessage(ctx, c, message)
		})
		audit.LogTarget(ctx, audit.ActionDisconnect, caller.UserID, connectionID, "realtime connection closed")
	}()
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidRequest, "invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeJoinConversation:
		var msg domain.ConversationMessage
		if !h.decode(client, message, &msg) {
			return
		}
		h.handleJoin(ctx, client, strings.TrimSpace(msg.ConversationID))

	case domain.MsgTypeLeaveConversation:
		var msg domain.ConversationMessage
		if !h.decode(client, message, &msg) {
			return
		}
		h.handleLeave(ctx, client, strings.TrimSpace(msg.ConversationID))

	case domain.MsgTypeSendEphemeral:
		var msg domain.SendEphemeralMessage
		if !h.decode(client, message, &msg) {
			return
		}
		h.handleEphemeral(ctx, client, &msg)

	case domain.MsgTypeMarkMessageRead:
		var msg domain.MarkMessageReadMessage
		if !h.decode(client, message, &msg) {
			return
		}
		h.handleMarkRead(ctx, client, &msg)

	case domain.MsgTypePing:
		client.SendMessage(&domain.PongMessage{Type: domain.MsgTypePong, Timestamp: time.Now().UnixMilli()})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnknownType, "unknown message type"))
	}
}

func (h *WSHandler) decode(client *hub.Client, message []byte, v interface{}) bool {
	if err := json.Unmarshal(message, v); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidRequest, "invalid message format"))
		return false
	}
	return true
}

func (h *WSHandler) handleJoin(ctx context.Context, client *hub.Client, conversationID string) {
	if !h.allowConversation(ctx, client, conversationID) {
		return
	}

	h.hub.Join(client, domain.ConversationGroup(conversationID))
	audit.LogTarget(ctx, audit.ActionJoinConversation, client.Caller.UserID, conversationID, "joined conversation group")
	client.SendMessage(&domain.ConversationAckMessage{
		Type:           domain.MsgTypeConversationJoined,
		ConversationID: conversationID,
	})
}

func (h *WSHandler) handleLeave(ctx context.Context, client *hub.Client, conversationID string) {
	if conversationID == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidRequest, "conversationId is required"))
		return
	}

	h.hub.Leave(client, domain.ConversationGroup(conversationID))
	audit.LogTarget(ctx, audit.ActionLeaveConversation, client.Caller.UserID, conversationID, "left conversation group")
	client.SendMessage(&domain.ConversationAckMessage{
		Type:           domain.MsgTypeConversationLeft,
		ConversationID: conversationID,
	})
}

func (h *WSHandler) handleEphemeral(ctx context.Context, client *hub.Client, msg *domain.SendEphemeralMessage) {
	conversationID := strings.TrimSpace(msg.ConversationID)
	if !h.allowConversation(ctx, client, conversationID) {
		return
	}

	eventID, err := h.eventIDs.Generate()
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to generate event id")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "internal error"))
		return
	}

	h.broadcaster.Publish(ctx, domain.ConversationGroup(conversationID), domain.MsgTypeReceiveEphemeral, &domain.EphemeralMessage{
		Type:           domain.MsgTypeReceiveEphemeral,
		EventID:        eventID,
		ConversationID: conversationID,
		SenderID:       client.Caller.UserID,
		ReceiverID:     msg.ReceiverID,
		Text:           msg.Text,
		Timestamp:      time.Now().UnixMilli(),
	})
	client.SendMessage(&domain.EphemeralSentMessage{
		Type:           domain.MsgTypeEphemeralSent,
		EventID:        eventID,
		ConversationID: conversationID,
	})
}

// handleMarkRead relays a read signal to the conversation. Nothing is
// persisted.
func (h *WSHandler) handleMarkRead(ctx context.Context, client *hub.Client, msg *domain.MarkMessageReadMessage) {
	conversationID := strings.TrimSpace(msg.ConversationID)
	if !h.allowConversation(ctx, client, conversationID) {
		return
	}
	if strings.TrimSpace(msg.MessageID) == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidRequest, "messageId is required"))
		return
	}

	h.broadcaster.Publish(ctx, domain.ConversationGroup(conversationID), domain.MsgTypeMessageRead, &domain.MessageReadMessage{
		Type:           domain.MsgTypeMessageRead,
		ConversationID: conversationID,
		MessageID:      msg.MessageID,
		ReaderID:       client.Caller.UserID,
		Timestamp:      time.Now().UnixMilli(),
	})
}

// allowConversation validates the conversation id and, when enforcement is
// on, the caller's membership. Failures are reported to the caller only.
func (h *WSHandler) allowConversation(ctx context.Context, client *hub.Client, conversationID string) bool {
	if conversationID == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidRequest, "conversationId is required"))
		return false
	}
	if !h.enforceMembership || h.membership == nil {
		return true
	}

	ok, err := h.membership.IsParticipant(ctx, conversationID, client.Caller.UserID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("membership check failed")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "internal error"))
		return false
	}
	if !ok {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeForbidden, "not a participant of this conversation"))
		return false
	}
	return true
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response.Response{Success: false, Code: code, Message: message})
}
