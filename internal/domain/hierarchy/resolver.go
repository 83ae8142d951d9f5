// Package hierarchy declares the boundary to the external tenant-scope
// resolution service. The engine consumes scope decisions; it never
// reimplements them.
package hierarchy

import (
	"context"
)

// ScopeResolver answers whether the caller (identified by the tenant, user
// and roles carried in the context) may act on a given organizational node.
type ScopeResolver interface {
	// AccessibleCompanyIDs returns every company id the caller's scope
	// covers, used to bound ledger listings
	AccessibleCompanyIDs(ctx context.Context) ([]string, error)

	// CanAccessCompany reports whether the caller's scope covers the company
	CanAccessCompany(ctx context.Context, companyID string) (bool, error)

	// IsOrgScoped reports whether the caller is scoped at the organization
	// level, required for acting on organization-level entity types
	IsOrgScoped(ctx context.Context) (bool, error)
}
