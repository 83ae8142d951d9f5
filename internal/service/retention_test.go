package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/domain/entity"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/testutil"
	"github.com/vendra/vendra/internal/types"
)

type RetentionServiceSuite struct {
	suite.Suite
	ctx       context.Context
	retention RetentionService
	ledger    *testutil.InMemoryDeletionLogStore
	storeSet  *entity.StoreSet
	stores    map[types.EntityType]*testutil.InMemoryEntityStore
}

func TestRetentionServiceSuite(t *testing.T) {
	suite.Run(t, new(RetentionServiceSuite))
}

func (s *RetentionServiceSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.ctx = testutil.SetupContext()
	s.ledger = testutil.NewInMemoryDeletionLogStore()
	storeSet, stores := testutil.NewInMemoryEntityStores()
	s.storeSet = storeSet
	s.stores = stores
	params := ServiceParams{
		Logger:          log,
		Config:          cfg,
		DB:              testutil.NewMockPostgresClient(log),
		DeletionLogRepo: s.ledger,
		EntityStores:    storeSet,
		Scope:           testutil.NewStubScopeResolver(),
	}
	s.retention = NewRetentionService(params)
}

// seedDeletedCustomer plants a soft-deleted customer whose ledger entry is
// backdated by the given number of days
func (s *RetentionServiceSuite) seedDeletedCustomer(id string, daysAgo int) {
	deletedAt := time.Now().UTC().AddDate(0, 0, -daysAgo)
	s.stores[types.EntityTypeCustomer].Add(&entity.Record{
		ID: id, Name: "Customer " + id, CompanyID: "company-1", ParentID: "company-1",
		DeletedAt: &deletedAt, DeletedBy: types.DefaultUserID, CascadeID: "cas_" + id,
	})
	s.Require().NoError(s.ledger.Record(s.ctx, &deletion.LogEntry{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DELETION_LOG),
		TenantID:   types.DefaultTenantID,
		EntityType: types.EntityTypeCustomer,
		EntityID:   id,
		EntityName: "Customer " + id,
		CompanyID:  "company-1",
		DeletedBy:  types.DefaultUserID,
		DeletedAt:  deletedAt,
		CascadeID:  "cas_" + id,
		Snapshot:   []byte(`{"v":1,"data":{}}`),
	}))
}

func (s *RetentionServiceSuite) TestPurgeExpiredBoundary() {
	// customer retention is 90 days: 91 days old purges, 89 does not
	s.seedDeletedCustomer("old", 91)
	s.seedDeletedCustomer("fresh", 89)

	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(1, resp.PurgedCountByType[types.EntityTypeCustomer])

	s.False(s.stores[types.EntityTypeCustomer].Has("old"))
	s.True(s.stores[types.EntityTypeCustomer].Has("fresh"))

	// the purged entry reached its terminal state with the sweep reason
	entries, err := s.ledger.ListByCascade(s.ctx, "cas_old", "")
	s.NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].IsPurged())
	s.Require().NotNil(entries[0].PurgeReason)
	s.Equal(string(types.PurgeReasonRetentionExpired), *entries[0].PurgeReason)
}

func (s *RetentionServiceSuite) TestPurgeExpiredEmptySweep() {
	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(0, resp.Total)
	s.Empty(resp.PurgedCountByType)
}

func (s *RetentionServiceSuite) TestPurgeExpiredSkipsRestored() {
	s.seedDeletedCustomer("revived", 120)
	s.Require().NoError(s.ledger.MarkRestored(s.ctx, types.EntityTypeCustomer, "revived", "someone"))
	s.Require().NoError(s.stores[types.EntityTypeCustomer].ClearDeleted(s.ctx, "revived"))

	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(0, resp.Total)
	s.True(s.stores[types.EntityTypeCustomer].Has("revived"))
}

func (s *RetentionServiceSuite) TestPurgeExpiredToleratesRowFailure() {
	s.seedDeletedCustomer("stuck", 100)
	s.seedDeletedCustomer("gone", 100)
	s.stores[types.EntityTypeCustomer].FailHardDelete = true

	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(0, resp.Total)

	// failed rows keep their active ledger entry for the next sweep
	_, err = s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeCustomer, "stuck")
	s.NoError(err)
}

func (s *RetentionServiceSuite) TestPurgeUsesPerTypeWindows() {
	// 100 days exceeds the customer window (90) but not the subscription
	// window (180)
	s.seedDeletedCustomer("expired", 100)
	deletedAt := time.Now().UTC().AddDate(0, 0, -100)
	s.stores[types.EntityTypeSubscription].Add(&entity.Record{
		ID: "sub-1", Name: "Plan", CompanyID: "company-1", ParentID: "expired",
		DeletedAt: &deletedAt, CascadeID: "cas_sub",
	})
	s.Require().NoError(s.ledger.Record(s.ctx, &deletion.LogEntry{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DELETION_LOG),
		TenantID:   types.DefaultTenantID,
		EntityType: types.EntityTypeSubscription,
		EntityID:   "sub-1",
		DeletedBy:  types.DefaultUserID,
		DeletedAt:  deletedAt,
		CascadeID:  "cas_sub",
		Snapshot:   []byte(`{"v":1,"data":{}}`),
	}))

	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.False(s.stores[types.EntityTypeCustomer].Has("expired"))
	s.True(s.stores[types.EntityTypeSubscription].Has("sub-1"))
}

// hardDeleteRecorder journals hard-delete calls so sweep order is observable
type hardDeleteRecorder struct {
	entity.Store
	journal *[]string
}

func (r *hardDeleteRecorder) HardDelete(ctx context.Context, id string) error {
	*r.journal = append(*r.journal, id)
	return r.Store.HardDelete(ctx, id)
}

func (s *RetentionServiceSuite) TestPurgeSweepsChildrenBeforeParents() {
	// customer and customer_address share a 90-day window; when both expire
	// in the same sweep the address row must go before the customer row its
	// foreign key points at
	s.seedDeletedCustomer("cust-1", 91)
	deletedAt := time.Now().UTC().AddDate(0, 0, -91)
	s.stores[types.EntityTypeCustomerAddress].Add(&entity.Record{
		ID: "addr-1", Name: "Home", CompanyID: "company-1", ParentID: "cust-1",
		DeletedAt: &deletedAt, CascadeID: "cas_addr",
	})
	s.Require().NoError(s.ledger.Record(s.ctx, &deletion.LogEntry{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DELETION_LOG),
		TenantID:   types.DefaultTenantID,
		EntityType: types.EntityTypeCustomerAddress,
		EntityID:   "addr-1",
		CompanyID:  "company-1",
		DeletedBy:  types.DefaultUserID,
		DeletedAt:  deletedAt,
		CascadeID:  "cas_addr",
		Snapshot:   []byte(`{"v":1,"data":{}}`),
	}))

	var journal []string
	s.storeSet.Customer = &hardDeleteRecorder{Store: s.storeSet.Customer, journal: &journal}
	s.storeSet.CustomerAddress = &hardDeleteRecorder{Store: s.storeSet.CustomerAddress, journal: &journal}

	resp, err := s.retention.PurgeExpired(s.ctx)
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Equal([]string{"addr-1", "cust-1"}, journal)
}
