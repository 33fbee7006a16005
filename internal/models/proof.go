package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofApproved ProofStatus = "approved"
	ProofRejected ProofStatus = "rejected"
)

// DocumentTypeEventProof is the only document type the upload flow produces
const DocumentTypeEventProof = "event_proof"

// IsValid reports whether s is a known proof status
func (s ProofStatus) IsValid() bool {
	switch s {
	case ProofPending, ProofApproved, ProofRejected:
		return true
	}
	return false
}

// proofTransitions lists the statuses reachable from each status.
// Reviewed proofs are final.
var proofTransitions = map[ProofStatus][]ProofStatus{
	ProofPending:  {ProofApproved, ProofRejected},
	ProofApproved: {},
	ProofRejected: {},
}

// CanTransitionTo reports whether a review may move a proof from s to next
func (s ProofStatus) CanTransitionTo(next ProofStatus) bool {
	for _, allowed := range proofTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Event struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EventName    string    `json:"event_name" gorm:"not null;size:200"`
	EventType    string    `json:"event_type" gorm:"size:100"`
	Department   string    `json:"department" gorm:"size:100"`
	AcademicYear string    `json:"academic_year" gorm:"size:20"`
	Description  string    `json:"description" gorm:"type:text"`
	CreatedBy    uint      `json:"created_by" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`

	Creator *User `json:"-" gorm:"foreignKey:CreatedBy"`
}

func (Event) TableName() string {
	return "events"
}

type Proof struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	EventID         *uint       `json:"event_id" gorm:"index"`
	ProofType       string      `json:"proof_type" gorm:"size:100"`
	FileName        string      `json:"file_name" gorm:"not null;size:255"`
	FilePath        string      `json:"file_path" gorm:"not null;uniqueIndex;size:255"`
	UploadedBy      uint        `json:"uploaded_by" gorm:"not null;index"`
	DocumentType    string      `json:"document_type" gorm:"size:50;default:event_proof"`
	Status          ProofStatus `json:"status" gorm:"not null;size:20;default:pending;index"`
	RejectionReason *string     `json:"rejection_reason" gorm:"type:text"`
	UploadedAt      time.Time   `json:"uploaded_at" gorm:"autoCreateTime;index"`

	// Blob metadata
	MimeType  string         `json:"mime_type" gorm:"size:100"`
	SizeBytes int64          `json:"size_bytes"`
	Checksum  string         `json:"checksum" gorm:"size:64"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	// Review
	ReviewedBy *uint      `json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`

	Event    *Event `json:"-" gorm:"foreignKey:EventID"`
	Uploader *User  `json:"-" gorm:"foreignKey:UploadedBy"`
}

func (Proof) TableName() string {
	return "proofs"
}

// ProofReview records one status change of a proof
type ProofReview struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	ProofID    uint        `json:"proof_id" gorm:"not null;index"`
	FromStatus ProofStatus `json:"from_status" gorm:"size:20"`
	ToStatus   ProofStatus `json:"to_status" gorm:"size:20"`
	Reason     *string     `json:"reason" gorm:"type:text"`
	ReviewedBy uint        `json:"reviewed_by" gorm:"not null"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (ProofReview) TableName() string {
	return "proof_reviews"
}

// RevokedToken holds the jti of a logged-out session until it would have expired
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenID   string    `gorm:"uniqueIndex;not null;size:64"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
