package services

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type LoginRequest = validator.LoginRequest
type UploadRequest = validator.UploadRequest
type StatusUpdateRequest = validator.StatusUpdateRequest
type RoleUpdateRequest = validator.RoleUpdateRequest
type CreateUserRequest = validator.CreateUserRequest
type LegacyIdentity = validator.LegacyIdentity

type LoginResponse struct {
	Message   string            `json:"message"`
	User      models.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// UploadFile is the file part of an upload
type UploadFile struct {
	Name        string // client supplied name
	Size        int64  // declared size, -1 when unknown
	ContentType string // client supplied content type
	Reader      io.Reader
}

// RequestMeta records where a request came from
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

type UploadResponse struct {
	Message  string             `json:"message"`
	ProofID  uint               `json:"proofId"`
	EventID  uint               `json:"eventId"`
	FileName string             `json:"fileName"`
	Status   models.ProofStatus `json:"status"`
}

type StatusUpdateResponse struct {
	Message string             `json:"message"`
	ProofID uint               `json:"proofId"`
	Status  models.ProofStatus `json:"status"`
}

type RoleUpdateResponse struct {
	Message string          `json:"message"`
	UserID  uint            `json:"userId"`
	NewRole models.UserRole `json:"newRole"`
}

// FileContent is an opened blob ready to be written to a response.
// Exactly one of File and Data is set. The caller closes File.
type FileContent struct {
	Name         string
	OriginalName string
	ContentType  string
	Disposition  string
	ModTime      time.Time
	File         *os.File
	Data         []byte
}

func (f *FileContent) Close() error {
	if f.File != nil {
		return f.File.Close()
	}
	return nil
}

// ===== COLLABORATORS =====

// BlobStore is the file store used for uploads
type BlobStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*storage.Blob, error)
	Open(name string) (*os.File, fs.FileInfo, error)
	Remove(name string) error
	ListOlderThan(cutoff time.Time) ([]string, error)
	MaxSize() int64
}

// TokenIssuer issues and verifies session tokens
type TokenIssuer interface {
	Issue(user *models.User) (string, *auth.Session, error)
	Parse(token string) (*auth.Session, error)
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, session *auth.Session) error

	// Authenticate verifies a token and loads the current account
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Session, error)

	// CheckLegacyIdentity compares client-asserted identity fields with the session user
	CheckLegacyIdentity(user *models.User, legacy LegacyIdentity) error

	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	PurgeRevokedTokens(ctx context.Context) (int64, error)
}

type ProofService interface {
	Upload(ctx context.Context, actor *models.User, req *UploadRequest, file *UploadFile, meta RequestMeta) (*UploadResponse, error)
	UpdateStatus(ctx context.Context, actor *models.User, proofID uint, req *StatusUpdateRequest) (*StatusUpdateResponse, error)

	List(ctx context.Context, actor *models.User, status string) ([]models.ProofListItem, error)
	Get(ctx context.Context, actor *models.User, proofID uint) (*models.ProofListItem, error)
	History(ctx context.Context, actor *models.User, proofID uint) ([]models.ProofReview, error)

	Search(ctx context.Context, actor *models.User, studentUSN, status string) ([]models.SearchResult, error)
	ExportSearch(ctx context.Context, actor *models.User, studentUSN, status string) ([]byte, error)
}

type FileService interface {
	// Open authorizes access to a stored file. width > 0 asks for a resized image.
	Open(ctx context.Context, actor *models.User, name string, width int) (*FileContent, error)

	// SweepOrphans removes blobs older than grace that no proof references
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

type AdminService interface {
	GetStats(ctx context.Context) (*models.AdminStats, error)
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	UpdateUserRole(ctx context.Context, actor *models.User, userID uint, req *RoleUpdateRequest) (*RoleUpdateResponse, error)
}
