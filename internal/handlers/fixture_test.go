package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories/postgres"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/testutil"
	"github.com/campusdocs/proof-archive/internal/utils"
	"github.com/campusdocs/proof-archive/internal/validator"
)

const (
	testCookie    = "access_token"
	testMaxUpload = 64 << 10
)

type server struct {
	router *gin.Engine
	db     *gorm.DB
	store  *storage.LocalStore
	tokens *auth.TokenManager

	student *models.User
	other   *models.User
	staff   *models.User
	admin   *models.User
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), testMaxUpload)
	require.NoError(t, err)
	tokens := testutil.TokenManager(t)

	manager := services.NewDefaultServiceManager(services.Dependencies{
		DB:        db,
		Repo:      postgres.NewSQLRepository(postgres.RepositoryConfig{DB: db}),
		Logger:    testutil.Logger(),
		Validator: validator.New(),
		Tokens:    tokens,
		Store:     store,
		Publisher: events.NewMockEventPublisher(testutil.Logger()),
	})
	require.NoError(t, manager.Initialize(t.Context()))

	logger := utils.NewSlogLogger(testutil.Logger())
	router := gin.New()
	SetupMiddleware(router, logger, []string{"http://localhost:3000"})
	NewHandlerManager(manager, logger, RouterConfig{
		Cookie:        CookieConfig{Name: testCookie},
		MaxUploadSize: testMaxUpload,
	}).SetupRoutes(router)

	return &server{
		router:  router,
		db:      db,
		store:   store,
		tokens:  tokens,
		admin:   testutil.SeedUser(t, db, "Admin", "admin@college.edu", models.RoleAdmin),
		staff:   testutil.SeedUser(t, db, "Staff", "staff@college.edu", models.RoleStaff),
		student: testutil.SeedUser(t, db, "Asha", "1ms21cs001@college.edu", models.RoleStudent),
		other:   testutil.SeedUser(t, db, "Ravi", "1ms21cs002@college.edu", models.RoleStudent),
	}
}

func (s *server) token(t *testing.T, user *models.User) string {
	return testutil.Token(t, s.tokens, user)
}

func (s *server) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) doJSON(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

type part struct {
	fileName string
	data     []byte
}

// uploadRequest builds a multipart upload. A nil file omits the file part.
func uploadRequest(t *testing.T, fields map[string]string, file *part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", file.fileName)
		require.NoError(t, err)
		_, err = fw.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"eventName":    "Hackathon 2024",
		"eventType":    "Competition",
		"department":   "CSE",
		"academicYear": "2024-25",
		"proofType":    "certificate",
		"description":  "First place",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// upload stores a document as the seeded student and returns the new proof
func (s *server) upload(t *testing.T, name string, data []byte) *models.Proof {
	t.Helper()

	w := s.do(uploadRequest(t, validFields(), &part{fileName: name, data: data}), s.token(t, s.student))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[services.UploadResponse](t, w)

	var proof models.Proof
	require.NoError(t, s.db.First(&proof, resp.ProofID).Error)
	return &proof
}
