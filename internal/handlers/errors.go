package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/services"
)

// handleServiceError maps service errors to HTTP status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: permissionError.Reason,
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNoFile):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "No file uploaded"})
	case errors.Is(err, services.ErrUnsupportedFile):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported file",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidFileName):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid file name"})
	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File too large",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid email or password"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
	case errors.Is(err, services.ErrIdentityMismatch):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Client identity does not match session"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	case errors.Is(err, services.ErrProofNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Document not found"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
	case errors.Is(err, services.ErrFileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "File not found"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid status transition",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Conflict",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
