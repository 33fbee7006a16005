package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.TrimSpace(user.Email)
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Email, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	cache.InvalidateStats(ctx, u.cacheManager)
	return nil
}

// GetByID retrieves a user with caching. The cached copy never carries the password hash.
func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := u.cacheManager.User.CacheOrExecute(ctx, cache.UserKey(id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := u.db.WithContext(ctx).First(&dbUser, id).Error; err != nil {
			return nil, wrapNotFound(err, "failed to get user %d", id)
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks up a login identifier. It always reads the store.
func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		return nil, wrapNotFound(err, "failed to get user by email")
	}
	return &user, nil
}

func (u *UserPostgreSQL) List(ctx context.Context) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	if err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id, name, email, role, created_at").
		Order("created_at DESC").Order("id DESC").
		Scan(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (u *UserPostgreSQL) UpdateRole(ctx context.Context, id uint, role models.UserRole) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("failed to update role of user %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}

	cache.InvalidateUser(ctx, u.cacheManager, id)
	return nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", strings.TrimSpace(email)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user email: %w", err)
	}
	return count > 0, nil
}
