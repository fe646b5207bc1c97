package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a directory entry. The user subsystem normally owns these
// rows; this exists for standalone deployments and seeding.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldUserID, user.ID).Msg("failed to create user in db")
		return result.Error
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to get user by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves every user in ids. Unknown ids are skipped.
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to get users by ids")
		return nil, err
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = *model.ToDomain()
	}
	return users, nil
}

// ListActive returns active users, optionally filtered by display name.
func (r *GormUserRepository) ListActive(ctx context.Context, search, excludeID string) ([]domain.User, error) {
	query := r.db.WithContext(ctx).Model(&domain.UserModel{}).Where("is_active = ?", true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(display_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var models []domain.UserModel
	if err := query.Order("display_name ASC, id ASC").Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list active users")
		return nil, err
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = *model.ToDomain()
	}
	return users, nil
}
