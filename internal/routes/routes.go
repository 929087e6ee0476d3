package routes

import (
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inventory-sync-backend/internal/config"
	"inventory-sync-backend/internal/handlers"
	"inventory-sync-backend/internal/middleware"
	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/platforms/shopify"
	"inventory-sync-backend/internal/platforms/square"
	"inventory-sync-backend/internal/repository"
	"inventory-sync-backend/internal/services/snapshot"
	syncsvc "inventory-sync-backend/internal/services/sync"
)

// RegisterRoutes wires repositories, services and handlers onto the engine
// and returns the pieces the scheduler needs.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, locker *redislock.Client) (*syncsvc.Service, *repository.UserRepository) {
	log := config.GetLogger()

	userRepo := repository.NewUserRepository(db)
	runRepo := repository.NewSyncRunRepository(db)

	shopifyClient := shopify.NewClient()
	newSquare := func(cfg models.SquareConfig) (snapshot.SquareAPI, error) {
		return square.NewClient(cfg.AccessToken, cfg.Environment)
	}

	syncService := syncsvc.NewService(runRepo, userRepo, shopifyClient, newSquare, locker, log)

	authHandler := handlers.NewAuthHandler(userRepo, config.JWTSecret())
	connectHandler := handlers.NewConnectHandler(userRepo)
	syncHandler := handlers.NewSyncHandler(syncService)
	webhookHandler := handlers.NewWebhookHandler(userRepo, syncService, config.ShopifyWebhookSecret(), log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Webhooks authenticate via HMAC, not JWT.
	webhooks := api.Group("/webhooks")
	webhooks.POST("/square", webhookHandler.HandleSquare)
	webhooks.POST("/shopify", webhookHandler.HandleShopify)

	authed := api.Group("")
	authed.Use(middleware.Auth(config.JWTSecret()))

	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/square/connect", connectHandler.SquareConnect)
	authed.POST("/shopify/connect", connectHandler.ShopifyConnect)

	sync := authed.Group("/sync")
	sync.GET("/status", syncHandler.GetStatus)
	sync.POST("/trigger", syncHandler.TriggerSync)
	sync.GET("/history", syncHandler.GetHistory)
	sync.PUT("/settings", syncHandler.UpdateSettings)

	return syncService, userRepo
}
