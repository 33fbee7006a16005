package utils

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the structured logger handed to handlers and middleware
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) Slog() *slog.Logger {
	return s.l
}

const ginLoggerKey = "logger"

// GetLogger returns the request-scoped logger set by ContextLogger
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return fallback
}

// ContextLogger attaches a logger carrying the request id to the gin context.
// RequestIDMiddleware must run first.
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := logger.With("request_id", c.GetString("request_id"))
		c.Set(ginLoggerKey, reqLogger)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request after it completes
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		l := GetLogger(c, logger)
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if uid, ok := c.Get("user_id"); ok {
			args = append(args, "user_id", uid)
		}

		switch {
		case status >= 500:
			l.Error("request completed", args...)
		case status >= 400:
			l.Warn("request completed", args...)
		default:
			l.Info("request completed", args...)
		}
	}
}
