package repository

import (
	"github.com/vendra/vendra/internal/cache"
	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/domain/entity"
	domainhierarchy "github.com/vendra/vendra/internal/domain/hierarchy"
	"github.com/vendra/vendra/internal/httpclient"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/postgres"
	hierarchyRepo "github.com/vendra/vendra/internal/repository/hierarchy"
	postgresRepo "github.com/vendra/vendra/internal/repository/postgres"
)

func NewDeletionLogRepository(db *postgres.DB, logger *logger.Logger) deletion.Repository {
	return postgresRepo.NewDeletionLogRepository(db, logger)
}

func NewEntityStores(db *postgres.DB, logger *logger.Logger) *entity.StoreSet {
	return postgresRepo.NewEntityStores(db, logger)
}

func NewScopeResolver(httpClient httpclient.Client, cfg *config.Configuration, cacheStore cache.Cache, logger *logger.Logger) domainhierarchy.ScopeResolver {
	return hierarchyRepo.NewScopeResolver(httpClient, cfg, cacheStore, logger)
}
