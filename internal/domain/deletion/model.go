package deletion

import (
	"encoding/json"
	"time"

	"github.com/vendra/vendra/internal/types"
)

// LogEntry is one append-only row of the deletion ledger. The historical
// fields (DeletedAt, Snapshot, CascadeID, CascadedFrom) are immutable once
// written; only the restore and purge status fields ever change.
type LogEntry struct {
	ID string `db:"id" json:"id"`

	// EntityType and EntityID identify the soft-deleted record
	EntityType types.EntityType `db:"entity_type" json:"entity_type"`
	EntityID   string           `db:"entity_id" json:"entity_id"`

	// EntityName is a human label snapshot taken at deletion time
	EntityName string `db:"entity_name" json:"entity_name"`

	// CompanyID is the owning company, denormalized for scoped listing.
	// Empty for organization-level types.
	CompanyID string `db:"company_id" json:"company_id"`

	TenantID string `db:"tenant_id" json:"tenant_id"`

	DeletedBy string    `db:"deleted_by" json:"deleted_by"`
	DeletedAt time.Time `db:"deleted_at" json:"deleted_at"`

	// Reason is optional operator-provided free text
	Reason string `db:"reason" json:"reason,omitempty"`

	// CascadeID groups every entity deleted in the same cascade operation
	CascadeID string `db:"cascade_id" json:"cascade_id"`

	// CascadedFrom is the parent entity's id, nil for the cascade root
	CascadedFrom *string `db:"cascaded_from" json:"cascaded_from,omitempty"`

	// Snapshot is the full serialized entity state at deletion time,
	// wrapped in a versioned envelope
	Snapshot json.RawMessage `db:"snapshot" json:"snapshot"`

	RestoredAt *time.Time `db:"restored_at" json:"restored_at,omitempty"`
	RestoredBy *string    `db:"restored_by" json:"restored_by,omitempty"`

	PurgedAt    *time.Time `db:"purged_at" json:"purged_at,omitempty"`
	PurgeReason *string    `db:"purge_reason" json:"purge_reason,omitempty"`
}

// IsActive reports whether the entry is the live ledger record for a
// currently soft-deleted entity: neither restored nor purged.
func (e *LogEntry) IsActive() bool {
	return e.RestoredAt == nil && e.PurgedAt == nil
}

// IsPurged reports whether the entry reached its terminal purged state
func (e *LogEntry) IsPurged() bool {
	return e.PurgedAt != nil
}

// ExpiresAt is the instant the entry becomes eligible for the retention
// purge sweep
func (e *LogEntry) ExpiresAt() time.Time {
	return e.DeletedAt.AddDate(0, 0, e.EntityType.RetentionDays())
}
