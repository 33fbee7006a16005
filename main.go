package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/cache"
	"github.com/campusdocs/proof-archive/internal/config"
	"github.com/campusdocs/proof-archive/internal/events"
	"github.com/campusdocs/proof-archive/internal/handlers"
	"github.com/campusdocs/proof-archive/internal/repositories/postgres"
	"github.com/campusdocs/proof-archive/internal/scheduler"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/storage"
	"github.com/campusdocs/proof-archive/internal/utils"
	"github.com/campusdocs/proof-archive/internal/validator"
	"github.com/campusdocs/proof-archive/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)
	logger.Info("Configuration loaded", "config", cfg.String())

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize token manager: %v", err)
	}

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}

	// Domain events
	publisher := events.NewPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.Events.KafkaBrokers,
		TopicPrefix:  cfg.Events.TopicPrefix,
	}, slogLogger)

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	if sub := publisher.Subscriber(); sub != nil {
		err := events.StartAuditLog(eventsCtx, sub, publisher.Topic, slogLogger,
			events.TypeProofUploaded, events.TypeProofReviewed, events.TypeUserRoleChanged)
		if err != nil {
			logger.Warn("Event audit log disabled", "error", err)
		}
	}

	cacheManager := cache.NewCacheManager(redisClient)
	// Roles may have been edited offline with archivectl
	cache.SafeInvalidatePattern(context.Background(), cacheManager.User, "*")

	// Initialize services
	serviceManager := services.NewDefaultServiceManager(services.Dependencies{
		DB:        db,
		Repo:      repoManager.GetRepository(),
		Logger:    slogLogger,
		Validator: validator.New(),
		Tokens:    tokens,
		Store:     store,
		Publisher: publisher,
		Cache:     cacheManager,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Background jobs
	jobs, err := scheduler.New(scheduler.Config{
		OrphanSweepSchedule: cfg.Scheduler.OrphanSweepSchedule,
		OrphanGracePeriod:   cfg.Scheduler.OrphanGracePeriod,
		TokenPurgeSchedule:  cfg.Scheduler.TokenPurgeSchedule,
	}, serviceManager.File(), serviceManager.Auth(), slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	jobs.Start()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)
	handlers.NewHandlerManager(serviceManager, logger, handlers.RouterConfig{
		Cookie: handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.IsProduction(),
		},
		MaxUploadSize: cfg.Storage.MaxUploadSize,
	}).SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := jobs.Stop(ctx); err != nil {
		logger.Error("Scheduler did not stop in time", "error", err)
	}

	// Closes the event publisher
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	stopEvents()

	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}

	logger.Info("Server exited")
}
