// Package entity gives the cascade engine a uniform view over the rows of
// every soft-deletable table. The engine never needs the full typed models
// of the feature modules; it needs identity, ownership, deletion state, and
// the raw row for snapshotting.
package entity

import (
	"time"
)

// Record is the engine's view of one soft-deletable row
type Record struct {
	ID string

	// Name is the row's human label (company name, customer name, webhook
	// url), used for ledger entries and previews
	Name string

	// CompanyID is the owning company, denormalized onto every
	// company-scoped table. Empty for organization-level types.
	CompanyID string

	// ParentID is the value of the type's parent link column, empty for
	// cascade roots
	ParentID string

	DeletedAt *time.Time
	DeletedBy string
	CascadeID string

	// Fields is the full row state as read from storage, serialized into
	// the ledger snapshot
	Fields map[string]any
}

// IsDeleted reports whether the row is currently soft-deleted
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}
