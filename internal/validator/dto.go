package validator

import (
	"github.com/campusdocs/proof-archive/internal/models"
)

// LegacyIdentity carries the identity fields older clients send with each request.
// They are only cross-checked against the session.
type LegacyIdentity struct {
	UserID   string `json:"userId" form:"userId"`
	UserRole string `json:"userRole" form:"userRole"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// UploadRequest holds the multipart metadata fields of POST /api/upload
type UploadRequest struct {
	EventName    string `form:"eventName" validate:"required,max=200,printable"`
	EventType    string `form:"eventType" validate:"max=100,printable"`
	Department   string `form:"department" validate:"max=100,printable"`
	AcademicYear string `form:"academicYear" validate:"max=20,printable"`
	ProofType    string `form:"proofType" validate:"required,max=100,printable"`
	Description  string `form:"description" validate:"max=2000,printable"`
	LegacyIdentity
}

// StatusUpdateRequest is the body of PUT /api/proofs/:id/status
type StatusUpdateRequest struct {
	Status          models.ProofStatus `json:"status" validate:"required,proof_status"`
	RejectionReason *string            `json:"rejection_reason"`
	LegacyIdentity
}

// RoleUpdateRequest is the body of PUT /api/admin/users/:id/role
type RoleUpdateRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}

// CreateUserRequest is used by the provisioning CLI
type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100,printable"`
	Email    string          `json:"email" validate:"required,max=255"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"required,user_role"`
}
