package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rex103240/IronLock-Server/internal/config"
	"github.com/rex103240/IronLock-Server/internal/handlers"
	"github.com/rex103240/IronLock-Server/internal/metrics"
	"github.com/rex103240/IronLock-Server/internal/middleware"
	"github.com/rex103240/IronLock-Server/internal/service"
	"github.com/rex103240/IronLock-Server/internal/store"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

// Dependencies are the wired components the router exposes.
type Dependencies struct {
	Config       *config.Config
	Store        *store.Store
	Verification *service.VerificationService
	Admin        *service.AdminService
	Metrics      *metrics.Metrics
	Auth         *middleware.AuthMiddleware
	// VerifyLimiter throttles /api/verify per client IP; nil disables it.
	VerifyLimiter *middleware.RateLimiter
	// WebSocket is nil when live events are disabled.
	WebSocket    *websocket.WebSocketHandler
	PublicKeyPEM []byte
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	verifyHandler := handlers.NewVerifyHandler(deps.Verification)
	systemHandler := handlers.NewSystemHandler(deps.Store, deps.Verification.SignerDegraded(), deps.PublicKeyPEM)
	authHandler := handlers.NewAuthHandler(deps.Store, deps.Auth)
	adminHandler := handlers.NewAdminHandler(deps.Admin)
	logHandler := handlers.NewLogHandler(deps.Admin)

	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(deps.Config.APIKeyRequired, deps.Config.APIKeys)

	router.GET("/", systemHandler.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if deps.WebSocket != nil {
		router.GET("/ws", deps.WebSocket.HandleWebSocket)
	}

	api := router.Group("/api")
	api.GET("/public-key", systemHandler.PublicKey)

	verify := []gin.HandlerFunc{}
	if deps.VerifyLimiter != nil {
		verify = append(verify, deps.VerifyLimiter.Middleware(nil))
	}
	api.POST("/verify", append(verify, verifyHandler.Verify)...)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", deps.Auth.AuthRequired(), authHandler.GetMe)
		auth.POST("/change-password", deps.Auth.AuthRequired(), authHandler.ChangePassword)
	}

	admin := api.Group("/admin")
	admin.Use(apiKeyMiddleware.APIKeyRequired(), deps.Auth.AuthRequired())
	{
		admin.POST("/create_key", adminHandler.CreateKey)
		admin.POST("/diagnose", adminHandler.Diagnose)

		licenses := admin.Group("/licenses")
		{
			licenses.GET("", adminHandler.GetLicenses)
			licenses.POST("", adminHandler.IssueLicenses)
			licenses.GET("/:key", adminHandler.GetLicense)
			licenses.POST("/:key/activate", adminHandler.ActivateLicense)
			licenses.POST("/:key/suspend", adminHandler.SuspendLicense)
			licenses.POST("/:key/extend", adminHandler.ExtendLicense)
			licenses.POST("/:key/reset-hwid", adminHandler.ResetHardware)
		}

		admin.GET("/gyms", logHandler.GetGyms)
		admin.GET("/logs", logHandler.GetLogs)
		admin.GET("/stats", logHandler.GetStats)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	return router
}
