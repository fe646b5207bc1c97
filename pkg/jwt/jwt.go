package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("jwt signing secret is not configured")
)

// Claims are the identity claims the task tracker's auth layer puts in an
// access token. DepartmentID is absent for users outside any department.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// Identity is the verified subject of a token.
type Identity struct {
	UserID       string
	Username     string
	Role         string
	DepartmentID *int64
}

// Manager verifies (and, for tooling and tests, issues) HS256 access tokens.
type Manager struct {
	secret         []byte
	issuer         string
	accessDuration time.Duration
	leeway         time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(secret, issuer string, accessDuration time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	if accessDuration <= 0 {
		accessDuration = time.Hour
	}
	return &Manager{
		secret:         []byte(secret),
		issuer:         issuer,
		accessDuration: accessDuration,
		leeway:         30 * time.Second,
	}, nil
}

// GenerateAccessToken signs an access token for the identity.
func (m *Manager) GenerateAccessToken(id Identity) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessDuration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:       id.UserID,
		Username:     id.Username,
		Role:         id.Role,
		DepartmentID: id.DepartmentID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ValidateToken validates a token and returns the identity it carries.
func (m *Manager) ValidateToken(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:       userID,
		Username:     claims.Username,
		Role:         claims.Role,
		DepartmentID: claims.DepartmentID,
	}, nil
}
