package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/models"
)

// DashboardRepository counts rows for the admin dashboard.
// A non-nil tx runs the query inside that transaction.
type DashboardRepository interface {
	GetTotalUsers(ctx context.Context, tx *gorm.DB) (int64, error)
	GetTotalProofs(ctx context.Context, tx *gorm.DB) (int64, error)
	GetTotalEvents(ctx context.Context, tx *gorm.DB) (int64, error)
	GetProofCountsByStatus(ctx context.Context, tx *gorm.DB) (map[models.ProofStatus]int64, error)
}
