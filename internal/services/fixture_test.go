package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/repositories/postgres"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/testutil"
	"github.com/campusdocs/proof-archive/internal/validator"
)

const testMaxUpload = 1 << 20

type fixture struct {
	db        *gorm.DB
	repo      repositories.Repository
	store     *storage.LocalStore
	tokens    *auth.TokenManager
	publisher *events.MockEventPublisher
	manager   ServiceManager

	student *models.User
	other   *models.User
	staff   *models.User
	admin   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), testMaxUpload)
	require.NoError(t, err)

	f := &fixture{
		db:        db,
		repo:      postgres.NewSQLRepository(postgres.RepositoryConfig{DB: db}),
		store:     store,
		tokens:    testutil.TokenManager(t),
		publisher: events.NewMockEventPublisher(testutil.Logger()),
	}

	f.manager = NewDefaultServiceManager(Dependencies{
		DB:        db,
		Repo:      f.repo,
		Logger:    testutil.Logger(),
		Validator: validator.New(),
		Tokens:    f.tokens,
		Store:     store,
		Publisher: f.publisher,
		Cache:     cache.NewCacheManager(nil),
	})
	require.NoError(t, f.manager.Initialize(t.Context()))

	f.admin = testutil.SeedUser(t, db, "Admin", "admin@college.edu", models.RoleAdmin)
	f.staff = testutil.SeedUser(t, db, "Staff", "staff@college.edu", models.RoleStaff)
	f.student = testutil.SeedUser(t, db, "Asha", "1ms21cs001@college.edu", models.RoleStudent)
	f.other = testutil.SeedUser(t, db, "Ravi", "1ms21cs002@college.edu", models.RoleStudent)
	return f
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
