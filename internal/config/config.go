package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database  DatabaseConfig
	RedisURL  string
	Auth      AuthConfig
	Storage   StorageConfig
	Events    EventsConfig
	Scheduler SchedulerConfig

	CORSAllowedOrigins []string
}

// DatabaseConfig contains relational store settings
type DatabaseConfig struct {
	Driver       string // "postgres" | "sqlite"
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// AuthConfig contains session token settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	CookieName string
}

// StorageConfig contains blob store settings
type StorageConfig struct {
	UploadDir     string
	MaxUploadSize int64
}

// EventsConfig contains domain event transport settings
type EventsConfig struct {
	KafkaBrokers []string
	TopicPrefix  string
}

// SchedulerConfig contains background job settings
type SchedulerConfig struct {
	OrphanSweepSchedule string
	OrphanGracePeriod   time.Duration
	TokenPurgeSchedule  string
}

const devJWTSecret = "dev-secret-change-me"

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	logLevel, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt64("MAX_UPLOAD_SIZE", 10<<20)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	grace, err := getEnvDuration("ORPHAN_GRACE_PERIOD", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    logLevel,
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
		},
		RedisURL: getEnv("REDIS_URL", ""),
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   tokenTTL,
			CookieName: getEnv("SESSION_COOKIE_NAME", "access_token"),
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadSize: maxUpload,
		},
		Events: EventsConfig{
			KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
			TopicPrefix:  getEnv("EVENT_TOPIC_PREFIX", "proof-archive"),
		},
		Scheduler: SchedulerConfig{
			OrphanSweepSchedule: getEnv("ORPHAN_SWEEP_SCHEDULE", "*/30 * * * *"),
			OrphanGracePeriod:   grace,
			TokenPurgeSchedule:  getEnv("TOKEN_PURGE_SCHEDULE", "15 3 * * *"),
		},
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			c.Database.DSN = "host=localhost user=postgres password=postgres dbname=proof_archive port=5432 sslmode=disable"
		}
	case "sqlite":
		if c.Database.DSN == "" {
			c.Database.DSN = "proof_archive.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q: must be postgres or sqlite", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}

	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String returns a representation of the config with secrets masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Env: %s, DB: %s, Redis: %t, Uploads: %s, Kafka: %v, Auth: *** (masked) ***}",
		c.Port, c.Environment, c.Database.Driver, c.RedisURL != "", c.Storage.UploadDir, c.Events.KafkaBrokers)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return l, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
