package models

import (
	"time"
)

// Placeholder texts substituted for proofs that have no event row
const (
	PlaceholderEventType    = "Student Upload"
	PlaceholderDepartment   = "Student Department"
	PlaceholderAcademicYear = "2024-25"
	PlaceholderDescription  = "Student uploaded document"

	PlaceholderOwnEventName    = "My Document"
	PlaceholderSearchEventName = "Student Document"
)

// ProofColumns are the proof fields shared by every joined view
type ProofColumns struct {
	ID              uint        `json:"id"`
	EventID         *uint       `json:"event_id"`
	ProofType       string      `json:"proof_type"`
	FileName        string      `json:"file_name"`
	FilePath        string      `json:"file_path"`
	UploadedBy      uint        `json:"uploaded_by"`
	DocumentType    string      `json:"document_type"`
	Status          ProofStatus `json:"status"`
	RejectionReason *string     `json:"rejection_reason"`
	UploadedAt      time.Time   `json:"uploaded_at"`
	MimeType        string      `json:"mime_type"`
	SizeBytes       int64       `json:"size_bytes"`
	ReviewedBy      *uint       `json:"reviewed_by"`
	ReviewedAt      *time.Time  `json:"reviewed_at"`
}

// ProofListItem is a row of the role-scoped proof listing
type ProofListItem struct {
	ProofColumns
	EventName        string `json:"event_name"`
	EventType        string `json:"event_type"`
	Department       string `json:"department"`
	AcademicYear     string `json:"academic_year"`
	EventDescription string `json:"event_description"`
	UploadedByName   string `json:"uploaded_by_name"`
	StudentEmail     string `json:"student_email"`
}

// SearchResult is a row of the student-identifier search
type SearchResult struct {
	ProofColumns
	EventName      string   `json:"event_name"`
	EventType      string   `json:"event_type"`
	Department     string   `json:"department"`
	AcademicYear   string   `json:"academic_year"`
	Description    string   `json:"description"`
	UploadedByName string   `json:"uploaded_by_name"`
	StudentUSN     string   `json:"student_usn" gorm:"column:student_usn"`
	UploadedByRole UserRole `json:"uploaded_by_role" gorm:"column:uploaded_by_role"`
}

// AdminStats aggregates row counts for the admin dashboard
type AdminStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalProofs    int64 `json:"totalProofs"`
	TotalEvents    int64 `json:"totalEvents"`
	PendingProofs  int64 `json:"pendingProofs"`
	ApprovedProofs int64 `json:"approvedProofs"`
	RejectedProofs int64 `json:"rejectedProofs"`
}
