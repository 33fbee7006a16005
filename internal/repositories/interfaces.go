package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/campusdocs/proof-archive/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ===== FILTERS =====

// ProofFilters scopes the proof listing
type ProofFilters struct {
	UploadedBy *uint               // nil lists every uploader
	Status     *models.ProofStatus // nil lists every status
}

// SearchFilters scopes the reviewer search
type SearchFilters struct {
	StudentUSN string // case-insensitive substring of the uploader email; empty matches all
	Status     *models.ProofStatus
}

// ===== INTERFACES =====

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
}

type ProofRepository interface {
	Create(ctx context.Context, proof *models.Proof) error
	GetByID(ctx context.Context, id uint) (*models.Proof, error)
	GetByFilePath(ctx context.Context, filePath string) (*models.Proof, error)

	// Joined views
	GetListItem(ctx context.Context, id uint) (*models.ProofListItem, error)
	List(ctx context.Context, filters ProofFilters) ([]models.ProofListItem, error)
	Search(ctx context.Context, filters SearchFilters) ([]models.SearchResult, error)

	// UpdateReview moves a proof from one status to another. It returns ErrNotFound
	// when no proof with that id is still in status from.
	UpdateReview(ctx context.Context, id uint, from, to models.ProofStatus, reason *string, reviewerID uint, at time.Time) error

	// ReferencedPaths returns the subset of names that belong to a proof
	ReferencedPaths(ctx context.Context, names []string) (map[string]bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.ProofReview) error
	ListByProof(ctx context.Context, proofID uint) ([]models.ProofReview, error)
}

type TokenRepository interface {
	// Revoke records a token id; revoking twice is not an error
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
