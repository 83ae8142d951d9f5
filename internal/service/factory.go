package service

import (
	"context"

	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/domain/entity"
	"github.com/vendra/vendra/internal/domain/hierarchy"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/postgres"
	"github.com/vendra/vendra/internal/types"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	DeletionLogRepo deletion.Repository
	EntityStores    *entity.StoreSet

	// Scope is the external tenant-scope resolution service
	Scope hierarchy.ScopeResolver
}

// NewServiceParams assembles the common dependency set services embed
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	deletionLogRepo deletion.Repository,
	entityStores *entity.StoreSet,
	scope hierarchy.ScopeResolver,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		DB:              db,
		DeletionLogRepo: deletionLogRepo,
		EntityStores:    entityStores,
		Scope:           scope,
	}
}

// authorizeScope checks the caller's organizational scope against the
// entity's owning company, or against the organization level for types that
// sit above companies
func (p ServiceParams) authorizeScope(ctx context.Context, entityType types.EntityType, companyID string) error {
	if entityType.IsOrgScoped() {
		ok, err := p.Scope.IsOrgScoped(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ierr.NewError("organization scope required").
				WithHintf("Acting on '%s' entities requires organization-level scope", entityType).
				Mark(ierr.ErrPermissionDenied)
		}
		return nil
	}

	ok, err := p.Scope.CanAccessCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if !ok {
		return ierr.NewError("company not in caller scope").
			WithHint("Your scope does not cover the company owning this entity").
			WithReportableDetails(map[string]any{"company_id": companyID}).
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
