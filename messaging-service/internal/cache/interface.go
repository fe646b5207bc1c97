package cache

import (
	"context"
	"errors"
	"time"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// UserCache caches directory entries by user id.
type UserCache interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User, ttl time.Duration) error
	Delete(ctx context.Context, userIDs ...string) error
	Close() error
}

// userEntry is the cached JSON form of a user.
type userEntry struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	AvatarKey    string `json:"avatar_key,omitempty"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	IsActive     bool   `json:"is_active"`
}

func toEntry(u *domain.User) userEntry {
	return userEntry{
		ID:           u.ID,
		DisplayName:  u.DisplayName,
		AvatarKey:    u.AvatarKey,
		Role:         string(u.Role),
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
	}
}

func (e userEntry) toDomain() *domain.User {
	return &domain.User{
		ID:           e.ID,
		DisplayName:  e.DisplayName,
		AvatarKey:    e.AvatarKey,
		Role:         domain.ParseRole(e.Role),
		DepartmentID: e.DepartmentID,
		IsActive:     e.IsActive,
	}
}

// NoopUserCache always misses. Used when caching is disabled.
type NoopUserCache struct{}

func (NoopUserCache) Get(context.Context, string) (*domain.User, error) { return nil, ErrCacheMiss }

func (NoopUserCache) Set(context.Context, *domain.User, time.Duration) error { return nil }

func (NoopUserCache) Delete(context.Context, ...string) error { return nil }

func (NoopUserCache) Close() error { return nil }
