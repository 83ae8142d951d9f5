package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/types"
)

func seedEntry(t *testing.T, store *InMemoryDeletionLogStore) *deletion.LogEntry {
	t.Helper()
	ctx := SetupContext()
	entry := &deletion.LogEntry{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DELETION_LOG),
		TenantID:   types.DefaultTenantID,
		EntityType: types.EntityTypeCustomer,
		EntityID:   "customer-1",
		EntityName: "Customer 1",
		CompanyID:  "company-1",
		DeletedBy:  types.DefaultUserID,
		DeletedAt:  time.Now().UTC().Add(-time.Hour),
		CascadeID:  "cas_terminal",
		Snapshot:   []byte(`{"v":1,"data":{}}`),
	}
	require.NoError(t, store.Record(ctx, entry))
	return entry
}

// Terminal marks are guarded updates: only the active entry transitions, so
// repeating a mark keeps the first timestamp and a restored entry can never
// be purged afterwards.
func TestMarkRestoredKeepsFirstTimestamp(t *testing.T) {
	ctx := SetupContext()
	store := NewInMemoryDeletionLogStore()
	seedEntry(t, store)

	require.NoError(t, store.MarkRestored(ctx, types.EntityTypeCustomer, "customer-1", "first-actor"))

	entries, err := store.ListByCascade(ctx, "cas_terminal", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].RestoredAt)
	firstAt := *entries[0].RestoredAt

	require.NoError(t, store.MarkRestored(ctx, types.EntityTypeCustomer, "customer-1", "second-actor"))

	entries, err = store.ListByCascade(ctx, "cas_terminal", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, firstAt, *entries[0].RestoredAt)
	require.NotNil(t, entries[0].RestoredBy)
	assert.Equal(t, "first-actor", *entries[0].RestoredBy)
}

func TestMarkPurgedKeepsFirstReason(t *testing.T) {
	ctx := SetupContext()
	store := NewInMemoryDeletionLogStore()
	seedEntry(t, store)

	require.NoError(t, store.MarkPurged(ctx, types.EntityTypeCustomer, "customer-1", types.PurgeReasonGDPRRequest))

	entries, err := store.ListByCascade(ctx, "cas_terminal", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].PurgedAt)
	firstAt := *entries[0].PurgedAt

	require.NoError(t, store.MarkPurged(ctx, types.EntityTypeCustomer, "customer-1", types.PurgeReasonRetentionExpired))

	entries, err = store.ListByCascade(ctx, "cas_terminal", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, firstAt, *entries[0].PurgedAt)
	require.NotNil(t, entries[0].PurgeReason)
	assert.Equal(t, string(types.PurgeReasonGDPRRequest), *entries[0].PurgeReason)
}

func TestTerminalStatesAreExclusive(t *testing.T) {
	ctx := SetupContext()
	store := NewInMemoryDeletionLogStore()
	seedEntry(t, store)

	require.NoError(t, store.MarkRestored(ctx, types.EntityTypeCustomer, "customer-1", "actor"))
	require.NoError(t, store.MarkPurged(ctx, types.EntityTypeCustomer, "customer-1", types.PurgeReasonAdminRequest))

	entries, err := store.ListByCascade(ctx, "cas_terminal", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].RestoredAt)
	assert.Nil(t, entries[0].PurgedAt)
}
