package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/service"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/testutil"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
	"github.com/quy-trach/TaskManagement-sub000/pkg/jwt"
	"github.com/quy-trach/TaskManagement-sub000/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Details []string        `json:"details"`
	Data    json.RawMessage `json:"data"`
}

type apiTest struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newAPITest(t *testing.T, svc service.MessagingService) *apiTest {
	t.Helper()

	tokens, err := jwt.NewManager("test-secret", "task-tracker", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/health", Health)
	NewHandler(svc, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(router)
	return &apiTest{router: router, tokens: tokens}
}

func newRealService(t *testing.T) (service.MessagingService, func(id string, role domain.Role, dept *int64)) {
	t.Helper()

	db := testutil.NewTestDB(t)
	users := repository.NewGormUserRepository(db)
	conversations := repository.NewGormConversationRepository(db)
	messages := repository.NewGormMessageRepository(db)
	notifications := repository.NewGormNotificationRepository(db)

	directory := service.NewDirectory(users, nil, time.Minute, nil, 0)
	gate := service.NewAccessGate(conversations)
	resolver := service.NewResolver(directory, conversations, idgen.NewUUIDGenerator(), service.DefaultResolveAttempts)
	pipeline := service.NewPipeline(gate, directory, conversations, messages,
		idgen.NewULIDGenerator(), idgen.NewULIDGenerator(), nil, service.PipelineOptions{})

	svc := service.NewMessagingService(service.Deps{
		Directory:     directory,
		Gate:          gate,
		Resolver:      resolver,
		Pipeline:      pipeline,
		Unread:        service.NewUnreadAccounting(messages, notifications),
		Conversations: conversations,
		Messages:      messages,
		Notifications: notifications,
	})
	seed := func(id string, role domain.Role, dept *int64) {
		testutil.SeedUser(t, db, id, role, dept)
	}
	return svc, seed
}

func (a *apiTest) token(t *testing.T, userID string, role domain.Role, dept *int64) string {
	t.Helper()
	token, _, err := a.tokens.GenerateAccessToken(jwt.Identity{UserID: userID, Role: string(role), DepartmentID: dept})
	require.NoError(t, err)
	return token
}

func (a *apiTest) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestAPI_RequiresAuth(t *testing.T) {
	svc, _ := newRealService(t)
	api := newAPITest(t, svc)

	code, env := api.do(t, http.MethodGet, "/api/messages/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	code, _ = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_ConversationFlow(t *testing.T) {
	svc, seed := newRealService(t)
	api := newAPITest(t, svc)
	seed("S1", domain.RoleStaff, testutil.Dept(5))
	seed("M1", domain.RoleManager, testutil.Dept(5))
	seed("S2", domain.RoleStaff, testutil.Dept(7))

	s1 := api.token(t, "S1", domain.RoleStaff, testutil.Dept(5))
	m1 := api.token(t, "M1", domain.RoleManager, testutil.Dept(5))
	s2 := api.token(t, "S2", domain.RoleStaff, testutil.Dept(7))

	code, env := api.do(t, http.MethodPost, "/api/messages/conversations", s1, map[string]interface{}{"participantIds": []string{"M1"}})
	require.Equal(t, http.StatusCreated, code)
	var created domain.CreateConversationResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.True(t, created.Created)

	code, env = api.do(t, http.MethodPost, "/api/messages/conversations", m1, map[string]interface{}{"participantIds": []string{"S1"}})
	require.Equal(t, http.StatusOK, code)
	var again domain.CreateConversationResponse
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, created.ConversationID, again.ConversationID)

	code, env = api.do(t, http.MethodPost, "/api/messages/conversations", s2, map[string]interface{}{"participantIds": []string{"M1"}})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	code, env = api.do(t, http.MethodPost, "/api/messages/messages", s1, map[string]interface{}{
		"conversationId": created.ConversationID,
		"content":        "Report is due Friday",
	})
	require.Equal(t, http.StatusCreated, code)
	var sent domain.SendMessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.NotEmpty(t, sent.MessageID)

	code, env = api.do(t, http.MethodGet, "/api/messages/conversations/"+created.ConversationID, m1, nil)
	require.Equal(t, http.StatusOK, code)
	var detail domain.ConversationDetailResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, "Report is due Friday", detail.Messages[0].Content)
	assert.Equal(t, int64(1), detail.Conversation.UnreadCount)

	code, _ = api.do(t, http.MethodGet, "/api/messages/conversations/"+created.ConversationID, s2, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = api.do(t, http.MethodGet, "/api/messages/conversations/nope", s2, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "conversation not found", env.Message)

	code, env = api.do(t, http.MethodGet, "/api/messages/notifications", m1, nil)
	require.Equal(t, http.StatusOK, code)
	var notifications domain.ListNotificationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &notifications))
	require.Len(t, notifications.Notifications, 1)
	assert.Equal(t, int64(1), notifications.UnreadTotal)
	notificationID := notifications.Notifications[0].ID

	code, _ = api.do(t, http.MethodPatch, "/api/messages/notifications/"+notificationID+"/read", s1, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = api.do(t, http.MethodPatch, "/api/messages/notifications/"+notificationID+"/read", m1, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodGet, "/api/messages/conversations?page=1", s1, nil)
	require.Equal(t, http.StatusOK, code)
	var list domain.ListConversationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, 20, list.PageSize)

	code, env = api.do(t, http.MethodGet, "/api/messages/users", s2, nil)
	require.Equal(t, http.StatusOK, code)
	var users struct {
		Users []domain.UserSummary `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Empty(t, users.Users)
}

func TestAPI_ValidationDetails(t *testing.T) {
	svc, seed := newRealService(t)
	api := newAPITest(t, svc)
	seed("a", domain.RoleDirector, nil)
	token := api.token(t, "a", domain.RoleDirector, nil)

	cases := []struct {
		name   string
		body   interface{}
		detail string
	}{
		{"no participants", map[string]interface{}{"participantIds": []string{}}, "participantIds"},
		{"two participants", map[string]interface{}{"participantIds": []string{"b", "c"}}, "participantIds must contain exactly 1 item(s)"},
		{"missing field", map[string]interface{}{}, "participantIds is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := api.do(t, http.MethodPost, "/api/messages/conversations", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "INVALID_REQUEST", env.Code)
			require.NotEmpty(t, env.Details)
			assert.Contains(t, env.Details[0], tc.detail)
		})
	}

	code, env := api.do(t, http.MethodPost, "/api/messages/messages", token, map[string]interface{}{"conversationId": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Details, "content is required")

	code, _ = api.do(t, http.MethodGet, "/api/messages/notifications?page=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

type brokenService struct {
	service.MessagingService
}

func (brokenService) ListNotifications(context.Context, domain.Caller, int) (*domain.ListNotificationsResponse, error) {
	return nil, fmt.Errorf("%w: list notifications: %w", service.ErrInternal, errors.New("dial tcp 10.0.0.3:5432: connection refused"))
}

func TestAPI_InternalErrorsHideCause(t *testing.T) {
	api := newAPITest(t, brokenService{})
	token := api.token(t, "a", domain.RoleStaff, testutil.Dept(1))

	code, env := api.do(t, http.MethodGet, "/api/messages/notifications", token, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.NotContains(t, env.Message, "10.0.0.3")
}
