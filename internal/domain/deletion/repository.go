package deletion

import (
	"context"
	"time"

	"github.com/vendra/vendra/internal/types"
)

// Repository defines the contract of the append-only deletion ledger.
//
// Record must run inside the same transaction as the entity mutation it
// documents. MarkRestored and MarkPurged are idempotent: re-marking an entry
// that already carries the terminal state is a no-op, not an error, and the
// originally recorded timestamp is kept.
type Repository interface {
	Record(ctx context.Context, entry *LogEntry) error

	// FindActiveByEntity returns the single non-restored, non-purged entry
	// for the entity, or a not found error when none exists
	FindActiveByEntity(ctx context.Context, entityType types.EntityType, entityID string) (*LogEntry, error)

	// ListByCascade returns every entry sharing the cascade grouping,
	// ordered by deleted_at ascending (insertion order as tie-break) so a
	// restore can replay parents before children. excludeID skips one ledger
	// entry id, typically the cascade root's.
	ListByCascade(ctx context.Context, cascadeID string, excludeID string) ([]*LogEntry, error)

	MarkRestored(ctx context.Context, entityType types.EntityType, entityID string, restoredBy string) error
	MarkPurged(ctx context.Context, entityType types.EntityType, entityID string, reason types.PurgeReason) error

	// List and Count serve the scoped ledger listing
	List(ctx context.Context, filter *types.DeletionLogFilter) ([]*LogEntry, error)
	Count(ctx context.Context, filter *types.DeletionLogFilter) (int, error)

	// ListExpired returns active entries of the type deleted before cutoff.
	// The retention sweep runs outside any caller's request, so this query
	// is not tenant-scoped.
	ListExpired(ctx context.Context, entityType types.EntityType, cutoff time.Time, limit int) ([]*LogEntry, error)
}
