package repositories

import (
	"context"

	"github.com/campusdocs/proof-archive/internal/models"
)

// UserRepository is the store of accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns every account, newest first
	List(ctx context.Context) ([]models.UserSummary, error)

	UpdateRole(ctx context.Context, id uint, role models.UserRole) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
