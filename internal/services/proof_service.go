package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/export"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/validator"
)

type proofService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	store     BlobStore
	publisher events.EventPublisher
	cache     *cache.CacheManager
	now       func() time.Time
}

func NewProofService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	store BlobStore,
	publisher events.EventPublisher,
	cacheManager *cache.CacheManager,
) ProofService {
	return &proofService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		store:     store,
		publisher: publisher,
		cache:     cacheManager,
		now:       time.Now,
	}
}

// ===== UPLOAD =====

func (s *proofService) Upload(ctx context.Context, actor *models.User, req *UploadRequest, file *UploadFile, meta RequestMeta) (*UploadResponse, error) {
	if actor.Role != models.RoleStudent {
		return nil, NewPermissionError(actor.ID, "proof", "upload", "Only students can upload documents")
	}
	if file == nil || file.Reader == nil {
		return nil, ErrNoFile
	}
	if file.Size > s.store.MaxSize() {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, file.Size, s.store.MaxSize())
	}
	if _, ok := storage.LookupType(file.Name); !ok {
		return nil, fmt.Errorf("%w: extension of %q is not allowed", ErrUnsupportedFile, storage.SanitizeOriginalName(file.Name))
	}

	trimUploadRequest(req)
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed(validator.ToValidationErrors(err))
	}

	blob, err := s.store.Save(ctx, file.Name, file.Reader)
	if err != nil {
		return nil, mapStorageError(err)
	}

	metadata, err := json.Marshal(map[string]string{
		"declared_content_type": file.ContentType,
		"client_ip":             meta.ClientIP,
		"user_agent":            meta.UserAgent,
	})
	if err != nil {
		s.removeBlob(blob.Name)
		return nil, fmt.Errorf("failed to encode upload metadata: %w", err)
	}

	event := &models.Event{
		EventName:    req.EventName,
		EventType:    req.EventType,
		Department:   req.Department,
		AcademicYear: req.AcademicYear,
		Description:  req.Description,
		CreatedBy:    actor.ID,
	}
	proof := &models.Proof{
		ProofType:    req.ProofType,
		FileName:     blob.OriginalName,
		FilePath:     blob.Name,
		UploadedBy:   actor.ID,
		DocumentType: models.DocumentTypeEventProof,
		Status:       models.ProofPending,
		MimeType:     blob.DetectedType,
		SizeBytes:    blob.Size,
		Checksum:     blob.Checksum,
		Metadata:     datatypes.JSON(metadata),
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Event().Create(ctx, event); err != nil {
			return err
		}
		proof.EventID = &event.ID
		return txRepo.Proof().Create(ctx, proof)
	})
	if err != nil {
		s.removeBlob(blob.Name)
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	s.logger.Info("Proof uploaded",
		"proof_id", proof.ID,
		"event_id", event.ID,
		"user_id", actor.ID,
		"size_bytes", blob.Size,
		"mime_type", blob.DetectedType)

	cache.InvalidateStats(ctx, s.cache)
	events.PublishSafe(ctx, s.publisher, s.logger, events.NewEvent(events.TypeProofUploaded, events.ProofUploadedEvent{
		ProofID:    proof.ID,
		EventID:    event.ID,
		UploadedBy: actor.ID,
		FileName:   proof.FileName,
		MimeType:   proof.MimeType,
		SizeBytes:  proof.SizeBytes,
		UploadedAt: proof.UploadedAt,
	}))

	return &UploadResponse{
		Message:  "Document uploaded successfully! Awaiting approval.",
		ProofID:  proof.ID,
		EventID:  event.ID,
		FileName: proof.FileName,
		Status:   proof.Status,
	}, nil
}

func (s *proofService) removeBlob(name string) {
	if err := s.store.Remove(name); err != nil {
		s.logger.Error("Failed to remove blob after failed upload", "file", name, "error", err)
	}
}

func trimUploadRequest(req *UploadRequest) {
	req.EventName = strings.TrimSpace(req.EventName)
	req.EventType = strings.TrimSpace(req.EventType)
	req.Department = strings.TrimSpace(req.Department)
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	req.ProofType = strings.TrimSpace(req.ProofType)
	req.Description = strings.TrimSpace(req.Description)
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrContentMismatch):
		return fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	default:
		return fmt.Errorf("failed to store file: %w", err)
	}
}

// ===== REVIEW =====

func (s *proofService) UpdateStatus(ctx context.Context, actor *models.User, proofID uint, req *StatusUpdateRequest) (*StatusUpdateResponse, error) {
	if !actor.Role.IsReviewer() {
		return nil, NewPermissionError(actor.ID, "proof", "review", "Only staff/admin can update document status")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed(validator.ToValidationErrors(err))
	}

	bv := s.validator.GetBusinessValidator()
	if errs := bv.ValidateRejectionReason(req.Status, req.RejectionReason); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	reason := bv.NormalizeRejectionReason(req.Status, req.RejectionReason)
	reviewedAt := s.now().UTC()

	var proof *models.Proof
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		proof, err = txRepo.Proof().GetByID(ctx, proofID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrProofNotFound
			}
			return err
		}

		if errs := bv.ValidateStatusTransition(proof.Status, req.Status); len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, errs[0].Message)
		}

		if err := txRepo.Proof().UpdateReview(ctx, proofID, proof.Status, req.Status, reason, actor.ID, reviewedAt); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				// Another reviewer moved it first
				return fmt.Errorf("%w: proof %d was reviewed concurrently", ErrInvalidTransition, proofID)
			}
			return err
		}

		return txRepo.Review().Create(ctx, &models.ProofReview{
			ProofID:    proofID,
			FromStatus: proof.Status,
			ToStatus:   req.Status,
			Reason:     reason,
			ReviewedBy: actor.ID,
			CreatedAt:  reviewedAt,
		})
	})
	if err != nil {
		if errors.Is(err, ErrProofNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update proof status: %w", err)
	}

	s.logger.Info("Proof reviewed",
		"proof_id", proofID,
		"from", proof.Status,
		"to", req.Status,
		"reviewer_id", actor.ID)

	cache.InvalidateStats(ctx, s.cache)
	events.PublishSafe(ctx, s.publisher, s.logger, events.NewEvent(events.TypeProofReviewed, events.ProofReviewedEvent{
		ProofID:         proofID,
		UploadedBy:      proof.UploadedBy,
		FromStatus:      proof.Status,
		ToStatus:        req.Status,
		RejectionReason: reason,
		ReviewedBy:      actor.ID,
		ReviewedAt:      reviewedAt,
	}))

	return &StatusUpdateResponse{
		Message: fmt.Sprintf("Document %s successfully", req.Status),
		ProofID: proofID,
		Status:  req.Status,
	}, nil
}

// ===== LISTING =====

func (s *proofService) List(ctx context.Context, actor *models.User, status string) ([]models.ProofListItem, error) {
	statusFilter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	filters := repositories.ProofFilters{Status: statusFilter}
	if actor.Role == models.RoleStudent {
		filters.UploadedBy = &actor.ID
	}

	proofs, err := s.repo.Proof().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}
	return proofs, nil
}

func (s *proofService) Get(ctx context.Context, actor *models.User, proofID uint) (*models.ProofListItem, error) {
	item, err := s.repo.Proof().GetListItem(ctx, proofID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProofNotFound
		}
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	if !canView(actor, item.UploadedBy) {
		return nil, NewPermissionError(actor.ID, "proof", "read", "You can only view your own documents")
	}
	return item, nil
}

func (s *proofService) History(ctx context.Context, actor *models.User, proofID uint) ([]models.ProofReview, error) {
	proof, err := s.repo.Proof().GetByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProofNotFound
		}
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	if !canView(actor, proof.UploadedBy) {
		return nil, NewPermissionError(actor.ID, "proof", "read", "You can only view your own documents")
	}

	reviews, err := s.repo.Review().ListByProof(ctx, proofID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	return reviews, nil
}

// ===== SEARCH =====

func (s *proofService) Search(ctx context.Context, actor *models.User, studentUSN, status string) ([]models.SearchResult, error) {
	if !actor.Role.IsReviewer() {
		return nil, NewPermissionError(actor.ID, "proof", "search", "Students cannot search other documents")
	}
	statusFilter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.Proof().Search(ctx, repositories.SearchFilters{
		StudentUSN: strings.TrimSpace(studentUSN),
		Status:     statusFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search proofs: %w", err)
	}
	return results, nil
}

func (s *proofService) ExportSearch(ctx context.Context, actor *models.User, studentUSN, status string) ([]byte, error) {
	results, err := s.Search(ctx, actor, studentUSN, status)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteSearchResults(&buf, results); err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}

	s.logger.Info("Search exported", "user_id", actor.ID, "rows", len(results))
	return buf.Bytes(), nil
}

// ===== HELPERS =====

// parseStatusFilter maps "" and "all" to no filter
func parseStatusFilter(status string) (*models.ProofStatus, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return nil, nil
	}
	st := models.ProofStatus(status)
	if !st.IsValid() {
		return nil, fieldError("status", "must be one of all, pending, approved, rejected", status, "proof_status")
	}
	return &st, nil
}

// canView reports whether actor may read a proof uploaded by ownerID
func canView(actor *models.User, ownerID uint) bool {
	return actor.Role.IsReviewer() || actor.ID == ownerID
}
