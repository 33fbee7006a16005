package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/utils"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// MessageResponse is returned by endpoints that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}

// BaseHandler carries the logger shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, h.withUser(c, args)...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(h.withUser(c, args), "error", err)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

func (h *BaseHandler) withUser(c *gin.Context, args []any) []any {
	if uid, ok := c.Get(ctxUserID); ok {
		return append([]any{"user_id", uid}, args...)
	}
	return args
}

// parseIDParam reads a positive numeric path parameter. It writes a 400 and
// returns 0 when the value is missing or malformed.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: raw,
		})
		return 0
	}
	return uint(id)
}
