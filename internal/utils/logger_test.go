package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success", http.StatusOK, "INFO"},
		{"client error", http.StatusForbidden, "WARN"},
		{"server error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set("request_id", "req-1")
				c.Next()
			})
			router.Use(ContextLogger(logger), LoggerMiddleware(logger))
			router.GET("/api/proofs", func(c *gin.Context) {
				c.Set("user_id", uint(7))
				GetLogger(c, nil).Info("handler ran")
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proofs", nil))

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)

			var handlerLine, accessLine map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &handlerLine))
			require.NoError(t, json.Unmarshal([]byte(lines[1]), &accessLine))

			assert.Equal(t, "req-1", handlerLine["request_id"])
			assert.Equal(t, tt.wantLevel, accessLine["level"])
			assert.Equal(t, "req-1", accessLine["request_id"])
			assert.Equal(t, "/api/proofs", accessLine["path"])
			assert.Equal(t, float64(tt.status), accessLine["status"])
			assert.Equal(t, float64(7), accessLine["user_id"])
		})
	}
}

func TestGetLogger_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	fallback := NewSlogLogger(nil)

	assert.Same(t, fallback, GetLogger(c, fallback))
	assert.NotNil(t, fallback.Slog())
}
