package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

// SQLRepository implements repositories.Repository on gorm.
// The same code serves the postgres and sqlite dialects.
type SQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	user      repositories.UserRepository
	event     repositories.EventRepository
	proof     repositories.ProofRepository
	review    repositories.ReviewRepository
	token     repositories.TokenRepository
	dashboard repositories.DashboardRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewSQLRepository wires every sub-repository onto db
func NewSQLRepository(config RepositoryConfig) repositories.Repository {
	return newSQLRepository(config.DB, config.RedisClient, cache.NewCacheManager(config.RedisClient))
}

func newSQLRepository(db *gorm.DB, redisClient *redis.Client, cm *cache.CacheManager) *SQLRepository {
	return &SQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cm,
		user:         NewUserPostgreSQL(db, cm),
		event:        NewEventPostgreSQL(db),
		proof:        NewProofPostgreSQL(db),
		review:       NewReviewPostgreSQL(db),
		token:        NewTokenPostgreSQL(db),
		dashboard:    NewDashboardRepository(db),
	}
}

func (r *SQLRepository) User() repositories.UserRepository           { return r.user }
func (r *SQLRepository) Event() repositories.EventRepository         { return r.event }
func (r *SQLRepository) Proof() repositories.ProofRepository         { return r.proof }
func (r *SQLRepository) Review() repositories.ReviewRepository       { return r.review }
func (r *SQLRepository) Token() repositories.TokenRepository         { return r.token }
func (r *SQLRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction executes a function within a database transaction
func (r *SQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSQLRepository(tx, r.redisClient, r.cacheManager))
	})
}

// WithReadOnlyTransaction executes fn within a read-only transaction
func (r *SQLRepository) WithReadOnlyTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSQLRepository(tx, r.redisClient, r.cacheManager))
	}, &sql.TxOptions{ReadOnly: true})
}

// Ping checks the health of database and cache connections
func (r *SQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection. The redis client is owned by the caller.
func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize verifies connections and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if err := rm.config.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewSQLRepository(rm.config)
	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown closes repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
