package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

const serviceName = "proof-archive"

// RouterConfig carries the HTTP settings handlers need
type RouterConfig struct {
	Cookie        CookieConfig
	MaxUploadSize int64
}

type HandlerManager struct {
	authHandler  *AuthHandler
	proofHandler *ProofHandler
	fileHandler  *FileHandler
	adminHandler *AdminHandler
	sessionAuth  *SessionAuth
	services     services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	config RouterConfig,
) *HandlerManager {
	sessionAuth := NewSessionAuth(serviceManager.Auth(), config.Cookie.Name, logger)

	return &HandlerManager{
		authHandler:  NewAuthHandler(serviceManager.Auth(), config.Cookie, logger),
		proofHandler: NewProofHandler(serviceManager.Proof(), sessionAuth, config.MaxUploadSize, logger),
		fileHandler:  NewFileHandler(serviceManager.File(), logger),
		adminHandler: NewAdminHandler(serviceManager.Admin(), logger),
		sessionAuth:  sessionAuth,
		services:     serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	public := router.Group("/api")
	{
		public.POST("/login", hm.authHandler.Login)
		public.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, MessageResponse{Message: "Backend working!"})
		})
	}

	api := router.Group("/api")
	api.Use(hm.sessionAuth.AuthMiddleware())
	{
		api.POST("/logout", hm.authHandler.Logout)
		api.GET("/me", hm.authHandler.Me)

		// Only students upload
		api.POST("/upload", hm.sessionAuth.RequireRoleMiddleware(models.RoleStudent), hm.proofHandler.Upload)

		proofs := api.Group("/proofs")
		{
			proofs.GET("", hm.proofHandler.ListProofs)
			proofs.GET("/:id", hm.proofHandler.GetProof)
			proofs.GET("/:id/history", hm.proofHandler.GetHistory)
			proofs.PUT("/:id/status", hm.sessionAuth.RequireRoleMiddleware(models.RoleStaff, models.RoleAdmin), hm.proofHandler.UpdateStatus)
		}

		// Students are rejected by the service with a specific message
		api.GET("/search", hm.proofHandler.Search)
		api.GET("/search/export", hm.proofHandler.ExportSearch)

		api.GET("/preview/:filename", hm.fileHandler.Preview)

		admin := api.Group("/admin")
		admin.Use(hm.sessionAuth.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/stats", hm.adminHandler.GetStats)
			admin.GET("/users", hm.adminHandler.ListUsers)
			admin.PUT("/users/:id/role", hm.adminHandler.UpdateUserRole)
		}
	}

	uploads := router.Group("/uploads")
	uploads.Use(hm.sessionAuth.AuthMiddleware())
	{
		uploads.GET("/:filename", hm.fileHandler.Raw)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.services.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}
