package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/service"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/middleware"
	"github.com/quy-trach/TaskManagement-sub000/pkg/response"
)

// Handler handles HTTP requests for the messaging API.
type Handler struct {
	messagingService service.MessagingService
	authMiddleware   *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(messagingService service.MessagingService, authMiddleware *middleware.AuthMiddleware) *Handler {
	registerFieldNames()
	return &Handler{
		messagingService: messagingService,
		authMiddleware:   authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/messages", h.authMiddleware.RequireAuth())
	{
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.POST("/conversations", h.CreateConversation)
		api.POST("/messages", h.SendMessage)
		api.GET("/users", h.ListUsers)
		api.GET("/notifications", h.ListNotifications)
		api.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// ListConversations lists the caller's conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.messagingService.ListConversations(ctx, caller(c), req.Page)
	if err != nil {
		writeError(c, err, "failed to list conversations")
		return
	}

	response.Success(c, result)
}

// GetConversation returns one page of a conversation's messages.
func (h *Handler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.messagingService.GetConversation(ctx, caller(c), c.Param("id"), req.Page)
	if err != nil {
		writeError(c, err, "failed to get conversation")
		return
	}

	response.Success(c, result)
}

// CreateConversation resolves or creates a 1:1 conversation. It answers 201
// when a conversation was created and 200 when it already existed.
func (h *Handler) CreateConversation(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.messagingService.CreateConversation(ctx, caller(c), &req)
	if err != nil {
		writeError(c, err, "failed to create conversation")
		return
	}

	if result.Created {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// SendMessage persists a message.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.messagingService.SendMessage(ctx, caller(c), &req)
	if err != nil {
		writeError(c, err, "failed to send message")
		return
	}

	response.Created(c, result)
}

// ListUsers lists the users the caller may start a conversation with.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	users, err := h.messagingService.ListUsers(ctx, caller(c), req.Search)
	if err != nil {
		writeError(c, err, "failed to list users")
		return
	}

	response.Success(c, gin.H{"users": users})
}

// ListNotifications lists the caller's notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.messagingService.ListNotifications(ctx, caller(c), req.Page)
	if err != nil {
		writeError(c, err, "failed to list notifications")
		return
	}

	response.Success(c, result)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	ctx := c.Request.Context()

	notificationID := c.Param("id")
	if err := h.messagingService.MarkNotificationRead(ctx, caller(c), notificationID); err != nil {
		writeError(c, err, "failed to mark notification read")
		return
	}

	response.Success(c, gin.H{"id": notificationID, "isRead": true})
}

// caller builds the acting identity from the verified token claims.
func caller(c *gin.Context) domain.Caller {
	return domain.Caller{
		UserID:       middleware.GetUserID(c),
		Role:         domain.ParseRole(middleware.GetRole(c)),
		DepartmentID: middleware.GetDepartmentID(c),
	}
}

// writeError maps the service error taxonomy onto HTTP responses. Internal
// causes are logged, never returned.
func writeError(c *gin.Context, err error, internalMessage string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.BadRequest(c, publicMessage(err, service.ErrInvalidRequest))
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, publicMessage(err, service.ErrNotFound))
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, publicMessage(err, service.ErrForbidden))
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, publicMessage(err, service.ErrConflict))
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(internalMessage)
		response.InternalError(c, internalMessage)
	}
}

// publicMessage strips the taxonomy prefix: "not found: conversation not
// found" becomes "conversation not found".
func publicMessage(err, kind error) string {
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
	if msg == "" {
		return kind.Error()
	}
	return msg
}

// badRequest reports binding failures with one detail per invalid field.
func badRequest(c *gin.Context, err error) {
	l := log.Ctx(c.Request.Context())
	l.Warn().Err(err).Msg("failed to bind request")

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, len(verrs))
		for i, fe := range verrs {
			details[i] = fieldDetail(fe)
		}
		response.BadRequest(c, "invalid request", details...)
		return
	}
	response.BadRequest(c, "invalid request", err.Error())
}

var fieldNamesOnce sync.Once

// registerFieldNames makes validation errors name fields by their JSON or
// query key.
func registerFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

func fieldDetail(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s item(s)", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag())
	}
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
