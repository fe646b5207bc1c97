package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quy-trach/TaskManagement-sub000/pkg/jwt"
	"github.com/quy-trach/TaskManagement-sub000/pkg/response"
)

const (
	UserIDKey       = "user_id"
	UsernameKey     = "username"
	RoleKey         = "role"
	DepartmentIDKey = "department_id"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "

	// AccessTokenQuery carries the token for clients that cannot set headers
	// on a websocket handshake (browsers).
	AccessTokenQuery = "access_token"
)

var ErrMissingToken = errors.New("missing access token")

// TokenValidator verifies an access token.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Identity, error)
}

// AuthMiddleware validates JWT access tokens issued by the auth layer.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate resolves the caller's identity from an HTTP request.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*jwt.Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrMissingToken
	}
	return m.validator.ValidateToken(token)
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.Authenticate(c.Request)
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingToken):
				response.Unauthorized(c, "missing authorization header")
			case errors.Is(err, jwt.ErrExpiredToken):
				response.Unauthorized(c, "token has expired")
			default:
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UsernameKey, id.Username)
		c.Set(RoleKey, id.Role)
		if id.DepartmentID != nil {
			c.Set(DepartmentIDKey, *id.DepartmentID)
		}

		c.Next()
	}
}

// TokenFromRequest extracts a bearer token from the Authorization header or
// the access_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return r.URL.Query().Get(AccessTokenQuery)
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		return username.(string)
	}
	return ""
}

// GetRole extracts the role claim from Gin context.
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(RoleKey); exists {
		return role.(string)
	}
	return ""
}

// GetDepartmentID extracts the department claim; nil when the caller has none.
func GetDepartmentID(c *gin.Context) *int64 {
	if dept, exists := c.Get(DepartmentIDKey); exists {
		d := dept.(int64)
		return &d
	}
	return nil
}
