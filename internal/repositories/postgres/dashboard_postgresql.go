package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *dashboardRepository) count(ctx context.Context, tx *gorm.DB, model interface{}, what string) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total %s: %w", what, err)
	}
	return count, nil
}

func (r *dashboardRepository) GetTotalUsers(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.User{}, "users")
}

func (r *dashboardRepository) GetTotalProofs(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.Proof{}, "proofs")
}

func (r *dashboardRepository) GetTotalEvents(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.Event{}, "events")
}

func (r *dashboardRepository) GetProofCountsByStatus(ctx context.Context, tx *gorm.DB) (map[models.ProofStatus]int64, error) {
	var rows []struct {
		Status models.ProofStatus
		Count  int64
	}
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Proof{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count proofs by status: %w", err)
	}

	counts := map[models.ProofStatus]int64{
		models.ProofPending:  0,
		models.ProofApproved: 0,
		models.ProofRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
