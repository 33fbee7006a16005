package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

type ProofPostgreSQL struct {
	db *gorm.DB
}

func NewProofPostgreSQL(db *gorm.DB) repositories.ProofRepository {
	return &ProofPostgreSQL{db: db}
}

func (p *ProofPostgreSQL) Create(ctx context.Context, proof *models.Proof) error {
	if err := p.db.WithContext(ctx).Create(proof).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("proof file path %q: %w", proof.FilePath, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create proof: %w", err)
	}
	return nil
}

func (p *ProofPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Proof, error) {
	var proof models.Proof
	if err := p.db.WithContext(ctx).First(&proof, id).Error; err != nil {
		return nil, wrapNotFound(err, "failed to get proof %d", id)
	}
	return &proof, nil
}

func (p *ProofPostgreSQL) GetByFilePath(ctx context.Context, filePath string) (*models.Proof, error) {
	var proof models.Proof
	if err := p.db.WithContext(ctx).Where("file_path = ?", filePath).First(&proof).Error; err != nil {
		return nil, wrapNotFound(err, "failed to get proof by file")
	}
	return &proof, nil
}

// ===== JOINED VIEWS =====

func (p *ProofPostgreSQL) listQuery(ctx context.Context) *gorm.DB {
	return joinedProofs(p.db.WithContext(ctx)).Select(proofColumns+`,
		COALESCE(e.event_name, ?) AS event_name,
		COALESCE(e.event_type, ?) AS event_type,
		COALESCE(e.department, ?) AS department,
		COALESCE(e.academic_year, ?) AS academic_year,
		COALESCE(e.description, ?) AS event_description,
		u.name AS uploaded_by_name,
		u.email AS student_email`,
		models.PlaceholderOwnEventName,
		models.PlaceholderEventType,
		models.PlaceholderDepartment,
		models.PlaceholderAcademicYear,
		models.PlaceholderDescription,
	)
}

func (p *ProofPostgreSQL) GetListItem(ctx context.Context, id uint) (*models.ProofListItem, error) {
	var rows []models.ProofListItem
	if err := p.listQuery(ctx).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get proof %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("proof %d: %w", id, repositories.ErrNotFound)
	}
	return &rows[0], nil
}

func (p *ProofPostgreSQL) List(ctx context.Context, filters repositories.ProofFilters) ([]models.ProofListItem, error) {
	query := p.listQuery(ctx)
	if filters.UploadedBy != nil {
		query = query.Where("p.uploaded_by = ?", *filters.UploadedBy)
	}
	query = newestFirst(applyStatus(query, filters.Status))

	rows := []models.ProofListItem{}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}
	return rows, nil
}

func (p *ProofPostgreSQL) Search(ctx context.Context, filters repositories.SearchFilters) ([]models.SearchResult, error) {
	query := joinedProofs(p.db.WithContext(ctx)).Select(proofColumns+`,
		COALESCE(e.event_name, ?) AS event_name,
		COALESCE(e.event_type, ?) AS event_type,
		COALESCE(e.department, ?) AS department,
		COALESCE(e.academic_year, ?) AS academic_year,
		COALESCE(e.description, ?) AS description,
		u.name AS uploaded_by_name,
		u.email AS student_usn,
		u.role AS uploaded_by_role`,
		models.PlaceholderSearchEventName,
		models.PlaceholderEventType,
		models.PlaceholderDepartment,
		models.PlaceholderAcademicYear,
		models.PlaceholderDescription,
	).Where("u.role = ?", models.RoleStudent)

	if usn := strings.TrimSpace(filters.StudentUSN); usn != "" {
		query = query.Where(`LOWER(u.email) LIKE LOWER(?) ESCAPE '\'`, "%"+escapeLike(usn)+"%")
	}
	query = newestFirst(applyStatus(query, filters.Status))

	rows := []models.SearchResult{}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search proofs: %w", err)
	}
	return rows, nil
}

// ===== REVIEW =====

func (p *ProofPostgreSQL) UpdateReview(ctx context.Context, id uint, from, to models.ProofStatus, reason *string, reviewerID uint, at time.Time) error {
	result := p.db.WithContext(ctx).
		Model(&models.Proof{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":           to,
			"rejection_reason": reason,
			"reviewed_by":      reviewerID,
			"reviewed_at":      at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update proof %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("proof %d in status %s: %w", id, from, repositories.ErrNotFound)
	}
	return nil
}

func (p *ProofPostgreSQL) ReferencedPaths(ctx context.Context, names []string) (map[string]bool, error) {
	found := make(map[string]bool, len(names))
	if len(names) == 0 {
		return found, nil
	}

	const batchSize = 500
	for i := 0; i < len(names); i += batchSize {
		end := min(i+batchSize, len(names))
		var paths []string
		if err := p.db.WithContext(ctx).
			Model(&models.Proof{}).
			Where("file_path IN ?", names[i:end]).
			Pluck("file_path", &paths).Error; err != nil {
			return nil, fmt.Errorf("failed to look up proof files: %w", err)
		}
		for _, path := range paths {
			found[path] = true
		}
	}
	return found, nil
}

// ===== REVIEW HISTORY =====

type ReviewPostgreSQL struct {
	db *gorm.DB
}

func NewReviewPostgreSQL(db *gorm.DB) repositories.ReviewRepository {
	return &ReviewPostgreSQL{db: db}
}

func (r *ReviewPostgreSQL) Create(ctx context.Context, review *models.ProofReview) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to record review: %w", err)
	}
	return nil
}

func (r *ReviewPostgreSQL) ListByProof(ctx context.Context, proofID uint) ([]models.ProofReview, error) {
	reviews := []models.ProofReview{}
	if err := r.db.WithContext(ctx).
		Where("proof_id = ?", proofID).
		Order("created_at ASC").Order("id ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews for proof %d: %w", proofID, err)
	}
	return reviews, nil
}
