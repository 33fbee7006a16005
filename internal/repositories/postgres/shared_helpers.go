package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

// proofColumns selects every column of models.ProofColumns from alias p
const proofColumns = `p.id, p.event_id, p.proof_type, p.file_name, p.file_path, p.uploaded_by,
	p.document_type, p.status, p.rejection_reason, p.uploaded_at, p.mime_type, p.size_bytes,
	p.reviewed_by, p.reviewed_at`

// wrapNotFound maps gorm's not-found error to repositories.ErrNotFound
func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, repositories.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// isUniqueViolation reports whether err is a unique constraint failure on either dialect
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// joinedProofs returns the proofs/events/users join every listing reads from
func joinedProofs(db *gorm.DB) *gorm.DB {
	return db.Table("proofs AS p").
		Joins("LEFT JOIN events e ON p.event_id = e.id").
		Joins("JOIN users u ON p.uploaded_by = u.id")
}

func applyStatus(query *gorm.DB, status *models.ProofStatus) *gorm.DB {
	if status != nil {
		query = query.Where("p.status = ?", *status)
	}
	return query
}

func newestFirst(query *gorm.DB) *gorm.DB {
	return query.Order("p.uploaded_at DESC").Order("p.id DESC")
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
