package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/cache"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/storage"
)

// Directory is the read-only view of the user subsystem: cached lookups by id
// and projections with resolved avatar URLs.
type Directory struct {
	repo      repository.UserRepository
	cache     cache.UserCache
	cacheTTL  time.Duration
	avatars   storage.URLResolver
	avatarTTL time.Duration
	sf        singleflight.Group
}

// NewDirectory creates a Directory. cache and avatars may be nil.
func NewDirectory(
	repo repository.UserRepository,
	userCache cache.UserCache,
	cacheTTL time.Duration,
	avatars storage.URLResolver,
	avatarTTL time.Duration,
) *Directory {
	if userCache == nil {
		userCache = cache.NoopUserCache{}
	}
	return &Directory{
		repo:      repo,
		cache:     userCache,
		cacheTTL:  cacheTTL,
		avatars:   avatars,
		avatarTTL: avatarTTL,
	}
}

// GetUser returns the user with id, or ErrUserNotFound.
func (d *Directory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if cached, err := d.cache.Get(ctx, id); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, id).Msg("user cache get error")
	}

	// Use singleflight to prevent duplicate lookups for the same user. The
	// shared lookup outlives any one caller; each caller still honors its ctx.
	flight := d.sf.DoChan(id, func() (interface{}, error) {
		return d.repo.GetByID(context.WithoutCancel(ctx), id)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, internal("get user", ctx.Err())
	}
	result, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internal("get user", err)
	}

	user := result.(*domain.User)
	d.asyncCacheSet(user)
	return user, nil
}

// GetUsers returns the users with the given ids keyed by id. Unknown ids are
// absent from the map.
func (d *Directory) GetUsers(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	var misses []string
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if cached, err := d.cache.Get(ctx, id); err == nil {
			out[id] = cached
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	users, err := d.repo.GetByIDs(ctx, misses)
	if err != nil {
		return nil, internal("get users", err)
	}
	for i := range users {
		user := &users[i]
		out[user.ID] = user
		d.asyncCacheSet(user)
	}
	return out, nil
}

// ListActive returns active users other than excludeID matching search.
func (d *Directory) ListActive(ctx context.Context, search, excludeID string) ([]domain.User, error) {
	users, err := d.repo.ListActive(ctx, search, excludeID)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

// Summary projects a user for API responses.
func (d *Directory) Summary(ctx context.Context, user *domain.User) domain.UserSummary {
	return domain.UserSummary{
		ID:           user.ID,
		DisplayName:  user.DisplayName,
		AvatarURL:    d.AvatarURL(ctx, user),
		Role:         user.Role.String(),
		DepartmentID: user.DepartmentID,
	}
}

// AvatarURL resolves the user's avatar. Failures are logged and yield "".
func (d *Directory) AvatarURL(ctx context.Context, user *domain.User) string {
	if d.avatars == nil || user.AvatarKey == "" {
		return ""
	}
	url, err := d.avatars.GetURL(ctx, user.AvatarKey, d.avatarTTL)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to resolve avatar url")
		return ""
	}
	return url
}

func (d *Directory) asyncCacheSet(user *domain.User) {
	if _, ok := d.cache.(cache.NoopUserCache); ok {
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := d.cache.Set(cacheCtx, user, d.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("user cache set error")
		}
	}()
}
