package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/testutil"
)

func validUpload() *UploadRequest {
	return &UploadRequest{
		EventName:    "  Hackathon 2024 ",
		EventType:    "Technical",
		Department:   "CSE",
		AcademicYear: "2024-25",
		ProofType:    "certificate",
		Description:  "First place",
	}
}

func pdfFile(name string) *UploadFile {
	data := testutil.PDF()
	return &UploadFile{Name: name, Size: int64(len(data)), ContentType: "application/pdf", Reader: bytes.NewReader(data)}
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProofService_Upload(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Proof()
	ctx := context.Background()

	resp, err := svc.Upload(ctx, f.student, validUpload(), pdfFile(`C:\Users\asha\cert.pdf`), RequestMeta{ClientIP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "Document uploaded successfully! Awaiting approval.", resp.Message)
	assert.Equal(t, models.ProofPending, resp.Status)
	assert.Equal(t, "cert.pdf", resp.FileName)
	assert.NotZero(t, resp.ProofID)
	assert.NotZero(t, resp.EventID)

	var proof models.Proof
	require.NoError(t, f.db.First(&proof, resp.ProofID).Error)
	assert.Equal(t, f.student.ID, proof.UploadedBy)
	assert.Equal(t, models.ProofPending, proof.Status)
	assert.Nil(t, proof.RejectionReason)
	assert.Equal(t, models.DocumentTypeEventProof, proof.DocumentType)
	assert.True(t, strings.HasSuffix(proof.FilePath, ".pdf"))
	assert.NotEqual(t, "cert.pdf", proof.FilePath)
	assert.Equal(t, "application/pdf", proof.MimeType)
	assert.Len(t, proof.Checksum, 64)
	require.NotNil(t, proof.EventID)
	assert.Equal(t, resp.EventID, *proof.EventID)

	var event models.Event
	require.NoError(t, f.db.First(&event, resp.EventID).Error)
	assert.Equal(t, "Hackathon 2024", event.EventName)
	assert.Equal(t, f.student.ID, event.CreatedBy)

	assert.Equal(t, []string{proof.FilePath}, storedFiles(t, f.store.Dir()))

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeProofUploaded, published[0].Type)
}

func TestProofService_Upload_Rejections(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Proof()

	missingName := validUpload()
	missingName.EventName = "   "

	tests := []struct {
		name    string
		actor   *models.User
		req     *UploadRequest
		file    *UploadFile
		wantErr error
	}{
		{
			name:    "staff cannot upload",
			actor:   f.staff,
			req:     validUpload(),
			file:    pdfFile("cert.pdf"),
			wantErr: ErrForbidden,
		},
		{
			name:    "admin without file is still forbidden",
			actor:   f.admin,
			req:     validUpload(),
			wantErr: ErrForbidden,
		},
		{
			name:    "no file",
			actor:   f.student,
			req:     validUpload(),
			wantErr: ErrNoFile,
		},
		{
			name:    "declared size over limit",
			actor:   f.student,
			req:     validUpload(),
			file:    &UploadFile{Name: "big.pdf", Size: testMaxUpload + 1, Reader: strings.NewReader("")},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "streamed size over limit",
			actor:   f.student,
			req:     validUpload(),
			file:    &UploadFile{Name: "big.txt", Size: -1, Reader: bytes.NewReader(make([]byte, testMaxUpload+10))},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "extension not allowed",
			actor:   f.student,
			req:     validUpload(),
			file:    &UploadFile{Name: "run.exe", Size: 3, Reader: strings.NewReader("MZ!")},
			wantErr: ErrUnsupportedFile,
		},
		{
			name:    "content does not match image extension",
			actor:   f.student,
			req:     validUpload(),
			file:    &UploadFile{Name: "photo.png", Size: int64(len(testutil.PDF())), Reader: bytes.NewReader(testutil.PDF())},
			wantErr: ErrUnsupportedFile,
		},
		{
			name:    "event name required",
			actor:   f.student,
			req:     missingName,
			file:    pdfFile("cert.pdf"),
			wantErr: ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.actor, tt.req, tt.file, RequestMeta{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.Zero(t, f.count(t, &models.Proof{}))
	assert.Zero(t, f.count(t, &models.Event{}))
	assert.Empty(t, storedFiles(t, f.store.Dir()))
	assert.Empty(t, f.publisher.GetPublishedEvents())
}

func TestProofService_Upload_ValidationDetails(t *testing.T) {
	f := newFixture(t)

	req := validUpload()
	req.ProofType = ""
	_, err := f.manager.Proof().Upload(context.Background(), f.student, req, pdfFile("cert.pdf"), RequestMeta{})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "proofType", verrs[0].Field)
	assert.Equal(t, "required", verrs[0].Rule)
}

func TestProofService_Upload_RollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&models.Proof{}))

	_, err := f.manager.Proof().Upload(context.Background(), f.student, validUpload(), pdfFile("cert.pdf"), RequestMeta{})
	require.Error(t, err)

	assert.Zero(t, f.count(t, &models.Event{}))
	assert.Empty(t, storedFiles(t, f.store.Dir()))
	assert.Empty(t, f.publisher.GetPublishedEvents())
}

func TestProofService_UpdateStatus(t *testing.T) {
	reason := func(s string) *string { return &s }

	tests := []struct {
		name       string
		actor      func(f *fixture) *models.User
		initial    models.ProofStatus
		req        StatusUpdateRequest
		wantErr    error
		wantReason *string
	}{
		{
			name:    "staff approves pending",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofApproved, RejectionReason: reason("ignored")},
		},
		{
			name:       "admin rejects with trimmed reason",
			actor:      func(f *fixture) *models.User { return f.admin },
			initial:    models.ProofPending,
			req:        StatusUpdateRequest{Status: models.ProofRejected, RejectionReason: reason("  blurry scan ")},
			wantReason: reason("blurry scan"),
		},
		{
			name:    "reject without reason",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofRejected, RejectionReason: reason("   ")},
		},
		{
			name:    "approve ignores an overlong reason",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofApproved, RejectionReason: reason(strings.Repeat("x", 1500))},
		},
		{
			name:    "reject with overlong reason",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofRejected, RejectionReason: reason(strings.Repeat("x", 1001))},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "student forbidden",
			actor:   func(f *fixture) *models.User { return f.student },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofApproved},
			wantErr: ErrForbidden,
		},
		{
			name:    "unknown status",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: "archived"},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "approved is final",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofApproved,
			req:     StatusUpdateRequest{Status: models.ProofRejected},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "pending to pending",
			actor:   func(f *fixture) *models.User { return f.staff },
			initial: models.ProofPending,
			req:     StatusUpdateRequest{Status: models.ProofPending},
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			proof := testutil.SeedProof(t, f.db, f.student, "a.pdf", tt.initial)
			actor := tt.actor(f)

			resp, err := f.manager.Proof().UpdateStatus(context.Background(), actor, proof.ID, &tt.req)

			var stored models.Proof
			require.NoError(t, f.db.First(&stored, proof.ID).Error)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, tt.initial, stored.Status)
				assert.Zero(t, f.count(t, &models.ProofReview{}))
				assert.Empty(t, f.publisher.GetPublishedEvents())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Document "+string(tt.req.Status)+" successfully", resp.Message)
			assert.Equal(t, tt.req.Status, stored.Status)
			assert.Equal(t, tt.wantReason, stored.RejectionReason)
			require.NotNil(t, stored.ReviewedBy)
			assert.Equal(t, actor.ID, *stored.ReviewedBy)
			assert.NotNil(t, stored.ReviewedAt)

			var reviews []models.ProofReview
			require.NoError(t, f.db.Find(&reviews).Error)
			require.Len(t, reviews, 1)
			assert.Equal(t, tt.initial, reviews[0].FromStatus)
			assert.Equal(t, tt.req.Status, reviews[0].ToStatus)

			published := f.publisher.GetPublishedEvents()
			require.Len(t, published, 1)
			assert.Equal(t, events.TypeProofReviewed, published[0].Type)
		})
	}
}

func TestProofService_UpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Proof().UpdateStatus(context.Background(), f.staff, 999, &StatusUpdateRequest{Status: models.ProofApproved})
	assert.ErrorIs(t, err, ErrProofNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProofService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.manager.Proof()

	mine := testutil.SeedProof(t, f.db, f.student, "mine.pdf", models.ProofPending)
	testutil.SeedProof(t, f.db, f.other, "theirs.pdf", models.ProofApproved)

	rows, err := svc.List(ctx, f.student, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)
	assert.Equal(t, models.PlaceholderOwnEventName, rows[0].EventName)
	assert.Equal(t, f.student.Email, rows[0].StudentEmail)

	rows, err = svc.List(ctx, f.staff, "all")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.List(ctx, f.admin, "approved")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ProofApproved, rows[0].Status)

	_, err = svc.List(ctx, f.staff, "archived")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestProofService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.manager.Proof()

	testutil.SeedProof(t, f.db, f.student, "s1.pdf", models.ProofPending)
	testutil.SeedProof(t, f.db, f.other, "s2.pdf", models.ProofPending)
	testutil.SeedProof(t, f.db, f.staff, "staff.pdf", models.ProofPending)

	_, err := svc.Search(ctx, f.student, "", "")
	assert.ErrorIs(t, err, ErrForbidden)

	rows, err := svc.Search(ctx, f.staff, "", "")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "only proofs uploaded by students are searchable")

	rows, err = svc.Search(ctx, f.staff, "  1MS21CS001 ", "pending")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.student.Email, rows[0].StudentUSN)
	assert.Equal(t, models.RoleStudent, rows[0].UploadedByRole)
	assert.Equal(t, models.PlaceholderSearchEventName, rows[0].EventName)

	rows, err = svc.Search(ctx, f.staff, "%", "")
	require.NoError(t, err)
	assert.Empty(t, rows, "wildcards match literally")

	data, err := svc.ExportSearch(ctx, f.admin, "", "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")
}

func TestProofService_GetAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.manager.Proof()

	proof := testutil.SeedProof(t, f.db, f.student, "h.pdf", models.ProofPending)
	_, err := svc.UpdateStatus(ctx, f.staff, proof.ID, &StatusUpdateRequest{Status: models.ProofApproved})
	require.NoError(t, err)

	item, err := svc.Get(ctx, f.student, proof.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProofApproved, item.Status)

	_, err = svc.Get(ctx, f.other, proof.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, f.staff, 12345)
	assert.ErrorIs(t, err, ErrProofNotFound)

	history, err := svc.History(ctx, f.student, proof.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ProofPending, history[0].FromStatus)
	assert.Equal(t, models.ProofApproved, history[0].ToStatus)
	assert.Equal(t, f.staff.ID, history[0].ReviewedBy)

	_, err = svc.History(ctx, f.other, proof.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
