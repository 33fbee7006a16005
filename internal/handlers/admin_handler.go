package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

type AdminHandler struct {
	BaseHandler
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  NewBaseHandler(logger),
		adminService: adminService,
	}
}

// GetStats returns archive-wide counters
// @Summary Admin statistics
// @Tags admin
// @Produce json
// @Success 200 {object} models.AdminStats
// @Failure 403 {object} ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers lists all accounts, newest first
// @Summary List users
// @Tags admin
// @Produce json
// @Success 200 {array} models.UserSummary
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateUserRole changes the role of an account
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body services.RoleUpdateRequest true "New role"
// @Success 200 {object} services.RoleUpdateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating user role", "target_user_id", id, "role", req.Role)

	resp, err := h.adminService.UpdateUserRole(c.Request.Context(), user, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
