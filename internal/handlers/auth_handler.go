package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

// CookieConfig controls the session cookie set at login
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	cookie      CookieConfig
	now         func() time.Time
}

func NewAuthHandler(authService services.AuthService, cookie CookieConfig, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		cookie:      cookie,
		now:         time.Now,
	}
}

// Login verifies credentials and starts a session
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Login attempt")

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	maxAge := int(resp.ExpiresAt.Sub(h.now()).Seconds())
	h.setCookie(c, resp.Token, maxAge)

	c.JSON(http.StatusOK, resp)
}

// Logout revokes the current session
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session, err := GetSessionFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me returns the session user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.PublicUser
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
