package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/vendra/vendra/internal/api"
	"github.com/vendra/vendra/internal/api/cron"
	v1 "github.com/vendra/vendra/internal/api/v1"
	"github.com/vendra/vendra/internal/cache"
	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/httpclient"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/postgres"
	"github.com/vendra/vendra/internal/repository"
	"github.com/vendra/vendra/internal/scheduler"
	"github.com/vendra/vendra/internal/service"
	"github.com/vendra/vendra/internal/types"
	"github.com/vendra/vendra/internal/validator"
)

// @title Vendra Deletion API
// @version 1.0
// @description Soft-delete cascade and retention engine for the Vendra admin backend
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Enter the gateway JWT as *Bearer &lt;token&gt;*

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,
			providePostgresClient,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Cache
			cache.NewInMemoryCache,

			// Repositories
			repository.NewDeletionLogRepository,
			repository.NewEntityStores,
			repository.NewScopeResolver,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewDeletionService,
			service.NewComplianceService,
			service.NewRetentionService,
			scheduler.NewRetentionScheduler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePostgresClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	deletionService service.DeletionService,
	complianceService service.ComplianceService,
	retentionScheduler *scheduler.RetentionScheduler,
) api.Handlers {
	return api.Handlers{
		Health:        v1.NewHealthHandler(logger),
		Deletion:      v1.NewDeletionHandler(deletionService, complianceService, logger),
		CronRetention: cron.NewRetentionHandler(retentionScheduler, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	retentionScheduler *scheduler.RetentionScheduler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startScheduler(lc, retentionScheduler, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeScheduler:
		startScheduler(lc, retentionScheduler, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startScheduler(
	lc fx.Lifecycle,
	retentionScheduler *scheduler.RetentionScheduler,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting retention scheduler...")
			retentionScheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			retentionScheduler.Stop()
			return nil
		},
	})
}
