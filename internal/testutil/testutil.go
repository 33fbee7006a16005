package testutil

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/pkg"
)

const (
	TestSecret   = "test-secret-do-not-use"
	TestPassword = "correct horse battery"
)

// OpenTestDB opens a migrated in-memory SQLite database private to t.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	db, err := pkg.OpenDatabase("sqlite", "file:"+name+"?mode=memory&cache=shared", logger.Silent)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SeedUser inserts a user whose password is TestPassword
func SeedUser(t *testing.T, db *gorm.DB, name, email string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{Name: name, Email: email, Role: role, Password: string(hash)}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

// SeedProof inserts a proof without an event row
func SeedProof(t *testing.T, db *gorm.DB, owner *models.User, filePath string, status models.ProofStatus) *models.Proof {
	t.Helper()

	proof := &models.Proof{
		ProofType:    "certificate",
		FileName:     "original-" + filePath,
		FilePath:     filePath,
		UploadedBy:   owner.ID,
		DocumentType: models.DocumentTypeEventProof,
		Status:       status,
	}
	if err := db.Create(proof).Error; err != nil {
		t.Fatalf("seed proof %s: %v", filePath, err)
	}
	return proof
}

// TokenManager returns a token manager signing with TestSecret
func TokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()

	tm, err := auth.NewTokenManager(TestSecret, time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return tm
}

// Token issues a session token for user
func Token(t *testing.T, tm *auth.TokenManager, user *models.User) string {
	t.Helper()

	token, _, err := tm.Issue(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// Logger discards output
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// PNG returns an encoded solid image of the given size
func PNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 40, G: 90, B: 200, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PDF returns a minimal document that content sniffing accepts as a PDF
func PDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}
