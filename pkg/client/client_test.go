package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/handlers"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories/postgres"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/testutil"
	"github.com/campusdocs/proof-archive/internal/utils"
	"github.com/campusdocs/proof-archive/internal/validator"
)

type env struct {
	client  *Client
	student *models.User
	staff   *models.User
	admin   *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	manager := services.NewDefaultServiceManager(services.Dependencies{
		DB:        db,
		Repo:      postgres.NewSQLRepository(postgres.RepositoryConfig{DB: db}),
		Logger:    testutil.Logger(),
		Validator: validator.New(),
		Tokens:    testutil.TokenManager(t),
		Store:     store,
		Publisher: events.NewMockEventPublisher(testutil.Logger()),
	})
	require.NoError(t, manager.Initialize(context.Background()))

	logger := utils.NewSlogLogger(testutil.Logger())
	router := gin.New()
	handlers.SetupMiddleware(router, logger, []string{"*"})
	handlers.NewHandlerManager(manager, logger, handlers.RouterConfig{
		Cookie:        handlers.CookieConfig{Name: "access_token"},
		MaxUploadSize: 1 << 20,
	}).SetupRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &env{
		client:  New(srv.URL + "/"),
		admin:   testutil.SeedUser(t, db, "Admin", "admin@college.edu", models.RoleAdmin),
		staff:   testutil.SeedUser(t, db, "Staff", "staff@college.edu", models.RoleStaff),
		student: testutil.SeedUser(t, db, "Asha", "1ms21cs001@college.edu", models.RoleStudent),
	}
}

func (e *env) login(t *testing.T, user *models.User) *Session {
	t.Helper()
	s, err := e.client.Login(context.Background(), user.Email, testutil.TestPassword)
	require.NoError(t, err)
	return s
}

func TestClient_LoginLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.client.Ping(ctx))

	_, err := e.client.Login(ctx, e.student.Email, "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "Invalid email or password")

	s := e.login(t, e.student)
	assert.Equal(t, e.student.ID, s.User.ID)
	assert.False(t, s.Expired(s.ExpiresAt.Add(-1)))

	me, err := e.client.Me(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, me.Role)

	require.NoError(t, e.client.Logout(ctx, s))
	_, err = e.client.Me(ctx, s)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	_, err = e.client.Me(ctx, nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_DocumentFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	student := e.login(t, e.student)
	staff := e.login(t, e.staff)
	admin := e.login(t, e.admin)

	meta := UploadMeta{EventName: "Tech Fest", ProofType: "certificate", Department: "CSE"}
	up, err := e.client.Upload(ctx, student, meta, "certificate.pdf", bytes.NewReader(testutil.PDF()))
	require.NoError(t, err)
	assert.Equal(t, models.ProofPending, up.Status)

	_, err = e.client.Upload(ctx, staff, meta, "certificate.pdf", bytes.NewReader(testutil.PDF()))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	own, err := e.client.ListProofs(ctx, student, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Tech Fest", own[0].EventName)

	preview, err := e.client.Preview(ctx, student, own[0].FilePath, 0)
	require.NoError(t, err)
	assert.Equal(t, PreviewPDF, preview.Kind)
	assert.Equal(t, "certificate.pdf", preview.FileName)
	require.NoError(t, preview.Close())

	_, err = e.client.Search(ctx, student, "", "")
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	found, err := e.client.Search(ctx, staff, "1MS21", "pending")
	require.NoError(t, err)
	require.Len(t, found, 1)

	var book bytes.Buffer
	require.NoError(t, e.client.ExportSearch(ctx, staff, "", "", &book))
	assert.True(t, strings.HasPrefix(book.String(), "PK"), "xlsx is a zip archive")

	reviewed, err := e.client.UpdateStatus(ctx, staff, up.ProofID, models.ProofRejected, "wrong event")
	require.NoError(t, err)
	assert.Equal(t, "Document rejected successfully", reviewed.Message)

	_, err = e.client.UpdateStatus(ctx, staff, up.ProofID, models.ProofApproved, "")
	assert.Equal(t, http.StatusConflict, StatusCode(err))

	history, err := e.client.ProofHistory(ctx, student, up.ProofID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	stats, err := e.client.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RejectedProofs)

	users, err := e.client.Users(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	changed, err := e.client.UpdateRole(ctx, admin, e.student.ID, models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, changed.NewRole)

	// The existing session now carries staff rights
	_, err = e.client.Search(ctx, student, "", "")
	assert.NoError(t, err)
}

func TestPreviewKind(t *testing.T) {
	tests := []struct {
		contentType string
		disposition string
		want        PreviewKind
	}{
		{"image/png", "inline", PreviewImage},
		{"application/pdf", "inline", PreviewPDF},
		{"text/plain; charset=utf-8", "attachment", PreviewDownload},
		{"application/octet-stream", "", PreviewDownload},
		{"image/png", "attachment", PreviewDownload},
	}
	for _, tt := range tests {
		t.Run(tt.contentType+"/"+tt.disposition, func(t *testing.T) {
			assert.Equal(t, tt.want, previewKind(tt.contentType, tt.disposition))
		})
	}
}
