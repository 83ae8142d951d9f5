package testutil

import (
	"context"

	"github.com/vendra/vendra/internal/domain/hierarchy"
)

var _ hierarchy.ScopeResolver = (*StubScopeResolver)(nil)

// StubScopeResolver resolves scope from fixed values instead of the
// hierarchy service
type StubScopeResolver struct {
	OrgScoped  bool
	CompanyIDs []string
}

// NewStubScopeResolver returns a resolver granting organization-wide scope
func NewStubScopeResolver() *StubScopeResolver {
	return &StubScopeResolver{OrgScoped: true}
}

func (r *StubScopeResolver) AccessibleCompanyIDs(ctx context.Context) ([]string, error) {
	return r.CompanyIDs, nil
}

func (r *StubScopeResolver) CanAccessCompany(ctx context.Context, companyID string) (bool, error) {
	if r.OrgScoped {
		return true, nil
	}
	for _, id := range r.CompanyIDs {
		if id == companyID {
			return true, nil
		}
	}
	return false, nil
}

func (r *StubScopeResolver) IsOrgScoped(ctx context.Context) (bool, error) {
	return r.OrgScoped, nil
}
