package postgres

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/testutil"
)

func TestUserPostgreSQL_GetByIDCaches(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := testutil.OpenTestDB(t)
	repo := NewSQLRepository(RepositoryConfig{DB: db, RedisClient: client})
	user := testutil.SeedUser(t, db, "Asha", "asha@college.edu", models.RoleStudent)
	key := cache.UserCacheConfig.Prefix + cache.UserKey(user.ID)

	got, err := repo.User().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Empty(t, got.Password, "password hash is never cached")

	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.NotContains(t, cached, user.Password)

	// A direct write is hidden by the cache until the role update invalidates it
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("name", "Asha K").Error)
	got, err = repo.User().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	require.NoError(t, repo.User().UpdateRole(ctx, user.ID, models.RoleStaff))
	assert.False(t, mr.Exists(key))

	got, err = repo.User().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Equal(t, models.RoleStaff, got.Role)
}
