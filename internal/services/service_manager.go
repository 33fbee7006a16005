package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/validator"
)

// ServiceManager owns every service and their shared dependencies
type ServiceManager interface {
	Initialize(ctx context.Context) error

	Auth() AuthService
	Proof() ProofService
	File() FileService
	Admin() AdminService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Dependencies are the collaborators shared by the services
type Dependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Tokens    TokenIssuer
	Store     BlobStore
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// HealthCheckTimeout bounds each dependency probe
	HealthCheckTimeout time.Duration

	// RequireCache makes HealthCheck fail when Redis is unreachable
	RequireCache bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	authService  AuthService
	proofService ProofService
	fileService  FileService
	adminService AdminService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	return &serviceManager{deps: deps, config: config}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		HealthCheckTimeout: 3 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	d := sm.deps
	if d.Repo == nil || d.Logger == nil || d.Validator == nil {
		return errors.New("service manager requires a repository, logger and validator")
	}
	if d.Tokens == nil || d.Store == nil {
		return errors.New("service manager requires a token issuer and blob store")
	}

	d.Logger.Info("Initializing service manager")

	sm.authService = NewAuthService(d.Repo, d.DB, d.Logger, d.Validator, d.Tokens)
	sm.proofService = NewProofService(d.Repo, d.DB, d.Logger, d.Validator, d.Store, d.Publisher, d.Cache)
	sm.fileService = NewFileService(d.Repo, d.Logger, d.Store)
	sm.adminService = NewAdminService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher, d.Cache)

	sm.initialized = true
	d.Logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Proof() ProofService {
	sm.mustBeInitialized()
	return sm.proofService
}

func (sm *serviceManager) File() FileService {
	sm.mustBeInitialized()
	return sm.fileService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mustBeInitialized()
	return sm.adminService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.config.HealthCheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.HealthCheckTimeout)
		defer cancel()
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
		if sm.config.RequireCache || !errors.Is(err, cache.ErrCacheNotAvailable) {
			return err
		}
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return nil
}
