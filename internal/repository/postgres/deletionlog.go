package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vendra/vendra/internal/domain/deletion"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/postgres"
	"github.com/vendra/vendra/internal/types"
)

type deletionLogRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDeletionLogRepository(db *postgres.DB, logger *logger.Logger) deletion.Repository {
	return &deletionLogRepository{db: db, logger: logger}
}

func (r *deletionLogRepository) Record(ctx context.Context, entry *deletion.LogEntry) error {
	query := `
		INSERT INTO deletion_logs (
			id, tenant_id, entity_type, entity_id, entity_name, company_id,
			deleted_by, deleted_at, reason, cascade_id, cascaded_from, snapshot
		) VALUES (
			:id, :tenant_id, :entity_type, :entity_id, :entity_name, :company_id,
			:deleted_by, :deleted_at, :reason, :cascade_id, :cascaded_from, :snapshot
		)`

	r.logger.Debugw("recording deletion ledger entry",
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"cascade_id", entry.CascadeID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record deletion ledger entry").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *deletionLogRepository) FindActiveByEntity(ctx context.Context, entityType types.EntityType, entityID string) (*deletion.LogEntry, error) {
	var e deletion.LogEntry
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT * FROM deletion_logs
		WHERE tenant_id = :tenant_id
		  AND entity_type = :entity_type
		  AND entity_id = :entity_id
		  AND restored_at IS NULL
		  AND purged_at IS NULL`,
		map[string]interface{}{
			"tenant_id":   types.GetTenantID(ctx),
			"entity_type": entityType,
			"entity_id":   entityID,
		})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query deletion ledger").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("no active deletion record").
			WithHintf("No active deletion record exists for %s '%s'", entityType, entityID).
			WithReportableDetails(map[string]any{
				"entity_type": entityType,
				"entity_id":   entityID,
			}).
			Mark(ierr.ErrNotFound)
	}

	if err := rows.StructScan(&e); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read deletion ledger entry").
			Mark(ierr.ErrDatabase)
	}

	return &e, nil
}

func (r *deletionLogRepository) ListByCascade(ctx context.Context, cascadeID string, excludeID string) ([]*deletion.LogEntry, error) {
	// Ledger ids are ULIDs, so ordering by id replays insertion order when
	// several cascade members share a deleted_at timestamp
	query := `
		SELECT * FROM deletion_logs
		WHERE tenant_id = :tenant_id
		  AND cascade_id = :cascade_id`
	args := map[string]interface{}{
		"tenant_id":  types.GetTenantID(ctx),
		"cascade_id": cascadeID,
	}
	if excludeID != "" {
		query += ` AND id != :exclude_id`
		args["exclude_id"] = excludeID
	}
	query += ` ORDER BY deleted_at ASC, id ASC`

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list cascade ledger entries").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var entries []*deletion.LogEntry
	for rows.Next() {
		var e deletion.LogEntry
		if err := rows.StructScan(&e); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read deletion ledger entry").
				Mark(ierr.ErrDatabase)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// MarkRestored is idempotent: an entry already restored or purged is left
// untouched and no error is returned.
func (r *deletionLogRepository) MarkRestored(ctx context.Context, entityType types.EntityType, entityID string, restoredBy string) error {
	query := `
		UPDATE deletion_logs SET
			restored_at = :restored_at,
			restored_by = :restored_by
		WHERE tenant_id = :tenant_id
		  AND entity_type = :entity_type
		  AND entity_id = :entity_id
		  AND restored_at IS NULL
		  AND purged_at IS NULL`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"restored_at": time.Now().UTC(),
		"restored_by": restoredBy,
		"tenant_id":   types.GetTenantID(ctx),
		"entity_type": entityType,
		"entity_id":   entityID,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark ledger entry restored").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// MarkPurged is idempotent in the same way as MarkRestored.
func (r *deletionLogRepository) MarkPurged(ctx context.Context, entityType types.EntityType, entityID string, reason types.PurgeReason) error {
	query := `
		UPDATE deletion_logs SET
			purged_at = :purged_at,
			purge_reason = :purge_reason
		WHERE tenant_id = :tenant_id
		  AND entity_type = :entity_type
		  AND entity_id = :entity_id
		  AND purged_at IS NULL`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"purged_at":    time.Now().UTC(),
		"purge_reason": string(reason),
		"tenant_id":    types.GetTenantID(ctx),
		"entity_type":  entityType,
		"entity_id":    entityID,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark ledger entry purged").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *deletionLogRepository) List(ctx context.Context, filter *types.DeletionLogFilter) ([]*deletion.LogEntry, error) {
	where, args := r.buildFilter(ctx, filter)

	query := fmt.Sprintf(`
		SELECT * FROM deletion_logs
		WHERE %s
		ORDER BY deleted_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, filter.GetLimit(), filter.GetOffset())

	var entries []*deletion.LogEntry
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list deletion ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

func (r *deletionLogRepository) Count(ctx context.Context, filter *types.DeletionLogFilter) (int, error) {
	where, args := r.buildFilter(ctx, filter)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM deletion_logs WHERE %s`, where)
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count deletion ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *deletionLogRepository) buildFilter(ctx context.Context, filter *types.DeletionLogFilter) (string, []interface{}) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{types.GetTenantID(ctx)}

	next := func() int { return len(args) + 1 }

	if len(filter.CompanyIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("company_id = ANY($%d)", next()))
		args = append(args, pq.Array(filter.CompanyIDs))
	}
	if filter.EntityType != nil {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", next()))
		args = append(args, *filter.EntityType)
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("entity_name ILIKE $%d", next()))
		args = append(args, "%"+*filter.Search+"%")
	}
	if filter.DeletedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("deleted_at >= $%d", next()))
		args = append(args, *filter.DeletedAfter)
	}
	if filter.DeletedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("deleted_at <= $%d", next()))
		args = append(args, *filter.DeletedBefore)
	}

	return strings.Join(conditions, " AND "), args
}

// ListExpired feeds the retention sweep. The sweep has no caller and no
// tenant context, so this is the one deliberately tenant-unscoped read.
func (r *deletionLogRepository) ListExpired(ctx context.Context, entityType types.EntityType, cutoff time.Time, limit int) ([]*deletion.LogEntry, error) {
	var entries []*deletion.LogEntry
	query := `
		SELECT * FROM deletion_logs
		WHERE entity_type = $1
		  AND deleted_at < $2
		  AND restored_at IS NULL
		  AND purged_at IS NULL
		ORDER BY deleted_at ASC
		LIMIT $3`

	err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, query, entityType, cutoff, limit)
	if err != nil && err != sql.ErrNoRows {
		return nil, ierr.WithError(err).
			WithHint("Failed to list expired deletion ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}
