package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/storage"
)

type fileService struct {
	repo   repositories.Repository
	logger *slog.Logger
	store  BlobStore
	now    func() time.Time
}

func NewFileService(repo repositories.Repository, logger *slog.Logger, store BlobStore) FileService {
	return &fileService{
		repo:   repo,
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

func (s *fileService) Open(ctx context.Context, actor *models.User, name string, width int) (*FileContent, error) {
	if !storage.ValidName(name) {
		return nil, ErrInvalidFileName
	}
	if width != 0 && (width < storage.MinThumbnailWidth || width > storage.MaxThumbnailWidth) {
		return nil, fieldError("width", storage.ErrInvalidWidth.Error(), width, "range")
	}

	proof, err := s.repo.Proof().GetByFilePath(ctx, name)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to look up file: %w", err)
	}
	if !canView(actor, proof.UploadedBy) {
		return nil, NewPermissionError(actor.ID, "file", "read", "You can only view your own documents")
	}

	f, info, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Proof references a missing blob", "proof_id", proof.ID, "file", name)
			return nil, ErrFileNotFound
		}
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, ErrInvalidFileName
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	content := &FileContent{
		Name:         name,
		OriginalName: proof.FileName,
		ContentType:  "application/octet-stream",
		ModTime:      info.ModTime(),
		File:         f,
	}

	ft, known := storage.LookupType(name)
	if !known {
		// Files stored before the allow-list existed are only downloadable
		content.Disposition = storage.Disposition(storage.FileType{Kind: storage.KindDocument}, proof.FileName)
		return content, nil
	}
	content.ContentType = ft.ContentType
	content.Disposition = storage.Disposition(ft, proof.FileName)

	if width > 0 && ft.Resizable() {
		data, err := storage.Thumbnail(f, ft, width)
		_ = f.Close()
		switch {
		case err == nil:
			content.File = nil
			content.Data = data
		case errors.Is(err, storage.ErrUndecodableImage):
			// Serve the uploaded bytes as they are
			s.logger.Warn("Cannot resize stored image", "proof_id", proof.ID, "file", name, "error", err)
			if content.File, _, err = s.store.Open(name); err != nil {
				return nil, fmt.Errorf("failed to reopen file: %w", err)
			}
		default:
			return nil, fmt.Errorf("failed to resize image: %w", err)
		}
	}

	return content, nil
}

func (s *fileService) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	candidates, err := s.store.ListOlderThan(s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := s.repo.Proof().ReferencedPaths(ctx, candidates)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range candidates {
		if referenced[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.store.Remove(name); err != nil {
			s.logger.Warn("Failed to remove orphaned file", "file", name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed orphaned files", "count", removed)
	}
	return removed, nil
}
