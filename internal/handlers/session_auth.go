package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

// Context keys set by SessionAuth
const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
	ctxUser     = "user"
	ctxSession  = "session"
)

// SessionAuth authenticates requests with the session token issued at login
type SessionAuth struct {
	BaseHandler
	authService services.AuthService
	cookieName  string
}

func NewSessionAuth(authService services.AuthService, cookieName string, logger utils.Logger) *SessionAuth {
	return &SessionAuth{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		cookieName:  cookieName,
	}
}

// AuthMiddleware requires a valid session. The token is read from the
// Authorization header first and from the session cookie otherwise.
func (sa *SessionAuth) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sa.extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
			})
			return
		}

		user, session, err := sa.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				sa.LogError(c, err, "Session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal server error",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired session",
			})
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUserRole, user.Role)
		c.Set(ctxUser, user)
		c.Set(ctxSession, session)

		// Older clients repeat their identity in the query string
		if !sa.checkLegacyIdentity(c, services.LegacyIdentity{
			UserID:   c.Query("userId"),
			UserRole: c.Query("userRole"),
		}) {
			c.Abort()
			return
		}

		c.Next()
	}
}

func (sa *SessionAuth) extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if cookie, err := c.Cookie(sa.cookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// RequireRoleMiddleware checks if user has one of the required roles
func (sa *SessionAuth) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
			})
			return
		}

		if !slices.Contains(requiredRoles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: fmt.Sprintf("requires role: %v", requiredRoles),
			})
			return
		}

		c.Next()
	}
}

// checkLegacyIdentity writes a 403 and returns false when client-asserted
// identity fields disagree with the session
func (sa *SessionAuth) checkLegacyIdentity(c *gin.Context, legacy services.LegacyIdentity) bool {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Authentication required"})
		return false
	}
	if err := sa.authService.CheckLegacyIdentity(user, legacy); err != nil {
		sa.logger.Warn("Client identity mismatch",
			"user_id", user.ID,
			"claimed_user_id", legacy.UserID,
			"claimed_role", legacy.UserRole,
		)
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Client identity does not match session"})
		return false
	}
	return true
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get(ctxUser)
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetSessionFromContext extracts the verified session from Gin context
func GetSessionFromContext(c *gin.Context) (*auth.Session, error) {
	session, exists := c.Get(ctxSession)
	if !exists {
		return nil, fmt.Errorf("session not found in context")
	}

	s, ok := session.(*auth.Session)
	if !ok {
		return nil, fmt.Errorf("invalid session type in context")
	}

	return s, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}

// currentUser returns the session user or writes a 401
func currentUser(c *gin.Context) (*models.User, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return nil, false
	}
	return user, true
}
