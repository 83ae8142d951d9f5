package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/vendra/vendra/internal/api/cron"
	v1 "github.com/vendra/vendra/internal/api/v1"
	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/rest/middleware"
	"github.com/vendra/vendra/internal/types"
)

type Handlers struct {
	Health        *v1.HealthHandler
	Deletion      *v1.DeletionHandler
	CronRetention *cron.RetentionHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Local mode skips the gateway JWT so the API is usable without an
	// identity service
	authMiddleware := middleware.AuthenticateMiddleware(cfg, logger)
	if cfg.Deployment.Mode == types.ModeLocal {
		authMiddleware = middleware.GuestAuthenticateMiddleware
	}

	v1Group := router.Group("/v1", authMiddleware)
	registerV1Routes(v1Group, handlers)

	// Cron routes sit outside the user-facing auth; deployments front them
	// with network policy
	cronGroup := router.Group("/cron")
	cronGroup.POST("/retention/purge", handlers.CronRetention.PurgeExpired)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	deletions := router.Group("/deletions")
	{
		deletions.GET("", handlers.Deletion.ListDeleted)
		deletions.GET("/:type/:id", handlers.Deletion.GetDeletionDetails)
		deletions.GET("/:type/:id/preview", handlers.Deletion.PreviewDelete)
		deletions.POST("/:type/:id", handlers.Deletion.SoftDelete)
		deletions.POST("/:type/:id/restore", handlers.Deletion.Restore)
		deletions.DELETE("/:type/:id", handlers.Deletion.PermanentlyDelete)
	}
}
