package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusdocs/proof-archive/internal/models"
)

const (
	EventSource  = "proof-archive"
	EventVersion = "1.0"
)

// Event types, also used as topic suffixes
const (
	TypeProofUploaded   = "proofs.uploaded"
	TypeProofReviewed   = "proofs.reviewed"
	TypeUserRoleChanged = "users.role_changed"
)

// Event is the envelope of every published domain event
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ProofUploadedEvent struct {
	ProofID    uint      `json:"proof_id"`
	EventID    uint      `json:"event_id"`
	UploadedBy uint      `json:"uploaded_by"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ProofReviewedEvent struct {
	ProofID         uint               `json:"proof_id"`
	UploadedBy      uint               `json:"uploaded_by"`
	FromStatus      models.ProofStatus `json:"from_status"`
	ToStatus        models.ProofStatus `json:"to_status"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	ReviewedBy      uint               `json:"reviewed_by"`
	ReviewedAt      time.Time          `json:"reviewed_at"`
}

type UserRoleChangedEvent struct {
	UserID    uint            `json:"user_id"`
	NewRole   models.UserRole `json:"new_role"`
	ChangedBy uint            `json:"changed_by"`
}
