package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/validator"
)

type adminService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     *cache.CacheManager
}

func NewAdminService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	cacheManager *cache.CacheManager,
) AdminService {
	return &adminService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cacheManager,
	}
}

// GetStats reads every counter from one snapshot
func (s *adminService) GetStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	err := s.cache.Stats.CacheOrExecute(ctx, cache.StatsKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		s.logger.Info("Computing admin stats")

		var fresh models.AdminStats
		err := s.repo.WithReadOnlyTransaction(ctx, func(txRepo repositories.Repository) error {
			var err error
			dashboard := txRepo.Dashboard()

			if fresh.TotalUsers, err = dashboard.GetTotalUsers(ctx, nil); err != nil {
				return fmt.Errorf("failed to get total users: %w", err)
			}
			if fresh.TotalProofs, err = dashboard.GetTotalProofs(ctx, nil); err != nil {
				return fmt.Errorf("failed to get total proofs: %w", err)
			}
			if fresh.TotalEvents, err = dashboard.GetTotalEvents(ctx, nil); err != nil {
				return fmt.Errorf("failed to get total events: %w", err)
			}

			byStatus, err := dashboard.GetProofCountsByStatus(ctx, nil)
			if err != nil {
				return fmt.Errorf("failed to get proof counts: %w", err)
			}
			fresh.PendingProofs = byStatus[models.ProofPending]
			fresh.ApprovedProofs = byStatus[models.ProofApproved]
			fresh.RejectedProofs = byStatus[models.ProofRejected]
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.repo.User().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, actor *models.User, userID uint, req *RoleUpdateRequest) (*RoleUpdateResponse, error) {
	if actor.Role != models.RoleAdmin {
		return nil, NewPermissionError(actor.ID, "user", "update_role", "Admin access required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed(validator.ToValidationErrors(err))
	}

	if err := s.repo.User().UpdateRole(ctx, userID, req.Role); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	s.logger.Info("User role updated", "user_id", userID, "new_role", req.Role, "changed_by", actor.ID)

	events.PublishSafe(ctx, s.publisher, s.logger, events.NewEvent(events.TypeUserRoleChanged, events.UserRoleChangedEvent{
		UserID:    userID,
		NewRole:   req.Role,
		ChangedBy: actor.ID,
	}))

	return &RoleUpdateResponse{
		Message: "User role updated successfully",
		UserID:  userID,
		NewRole: req.Role,
	}, nil
}
