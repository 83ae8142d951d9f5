package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/domain/entity"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/testutil"
	"github.com/vendra/vendra/internal/types"
)

type ComplianceServiceSuite struct {
	suite.Suite
	ctx        context.Context
	service    DeletionService
	compliance ComplianceService
	ledger     *testutil.InMemoryDeletionLogStore
	stores     map[types.EntityType]*testutil.InMemoryEntityStore
}

func TestComplianceServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceServiceSuite))
}

func (s *ComplianceServiceSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.ctx = testutil.SetupContext()
	s.ledger = testutil.NewInMemoryDeletionLogStore()
	storeSet, stores := testutil.NewInMemoryEntityStores()
	s.stores = stores
	params := ServiceParams{
		Logger:          log,
		Config:          cfg,
		DB:              testutil.NewMockPostgresClient(log),
		DeletionLogRepo: s.ledger,
		EntityStores:    storeSet,
		Scope:           testutil.NewStubScopeResolver(),
	}
	s.service = NewDeletionService(params)
	s.compliance = NewComplianceService(params)
}

func (s *ComplianceServiceSuite) seedDeletedCustomerTree() {
	s.stores[types.EntityTypeCustomer].Add(&entity.Record{
		ID: "customer-1", Name: "Jane Doe", CompanyID: "company-1", ParentID: "company-1",
		Fields: map[string]any{"id": "customer-1", "name": "Jane Doe", "email": "jane@example.com"},
	})
	s.stores[types.EntityTypeSubscription].Add(&entity.Record{
		ID: "sub-1", Name: "Gold", CompanyID: "company-1", ParentID: "customer-1",
	})
	s.stores[types.EntityTypeOrder].Add(&entity.Record{
		ID: "order-1", Name: "ORD-1", CompanyID: "company-1", ParentID: "customer-1",
	})

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) TestGDPRAnonymizesPersonalData() {
	s.seedDeletedCustomerTree()

	resp, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonGDPRRequest})
	s.NoError(err)
	s.True(resp.Anonymized)
	s.Equal(1, resp.PurgedCount)

	// the row survives with its identity scrubbed
	rec, err := s.stores[types.EntityTypeCustomer].Get(s.ctx, "customer-1")
	s.NoError(err)
	s.Equal("REDACTED", rec.Name)

	// its ledger entry is terminal
	_, err = s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeCustomer, "customer-1")
	s.True(ierr.IsNotFound(err))

	// cascade members were left alone; retention will collect them
	s.True(s.stores[types.EntityTypeSubscription].Has("sub-1"))
}

func (s *ComplianceServiceSuite) TestGDPRAnonymizeFailureKeepsLedgerActive() {
	s.seedDeletedCustomerTree()
	s.stores[types.EntityTypeCustomer].FailAnonymize = true

	_, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonGDPRRequest})
	s.Error(err)
	s.True(ierr.IsDatabase(err))

	// the failed transaction never marked the entry, so a retry still finds it
	entry, err := s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeCustomer, "customer-1")
	s.NoError(err)
	s.Nil(entry.PurgedAt)

	rec, err := s.stores[types.EntityTypeCustomer].Get(s.ctx, "customer-1")
	s.NoError(err)
	s.Equal("Jane Doe", rec.Name)
}

func (s *ComplianceServiceSuite) TestAdminRequestHardDeletesCascade() {
	s.seedDeletedCustomerTree()

	resp, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonAdminRequest})
	s.NoError(err)
	s.False(resp.Anonymized)
	s.Equal(3, resp.PurgedCount)

	s.False(s.stores[types.EntityTypeCustomer].Has("customer-1"))
	s.False(s.stores[types.EntityTypeSubscription].Has("sub-1"))
	s.False(s.stores[types.EntityTypeOrder].Has("order-1"))
}

func (s *ComplianceServiceSuite) TestGDPRHardDeletesNonPersonalTypes() {
	s.stores[types.EntityTypeSubscription].Add(&entity.Record{
		ID: "sub-solo", Name: "Solo", CompanyID: "company-1", ParentID: "customer-x",
	})
	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeSubscription, "sub-solo", dto.SoftDeleteRequest{})
	s.Require().NoError(err)

	// subscriptions carry no personal data, so GDPR falls through to the
	// hard-delete path
	resp, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeSubscription, "sub-solo", dto.PermanentDeleteRequest{Reason: types.PurgeReasonGDPRRequest})
	s.NoError(err)
	s.False(resp.Anonymized)
	s.False(s.stores[types.EntityTypeSubscription].Has("sub-solo"))
}

func (s *ComplianceServiceSuite) TestPermanentDeleteRequiresSoftDelete() {
	s.stores[types.EntityTypeCustomer].Add(&entity.Record{
		ID: "live", Name: "Live Customer", CompanyID: "company-1",
	})

	_, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "live", dto.PermanentDeleteRequest{Reason: types.PurgeReasonAdminRequest})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ComplianceServiceSuite) TestPermanentDeleteOwnerOnly() {
	s.seedDeletedCustomerTree()
	ctx := testutil.SetupContextWithRoles(types.RoleAdmin)

	_, err := s.compliance.PermanentlyDelete(ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonAdminRequest})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ComplianceServiceSuite) TestPermanentDeleteInvalidReason() {
	s.seedDeletedCustomerTree()

	_, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReason("whim")})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ComplianceServiceSuite) TestCascadePurgeLeavesRootOnMemberFailure() {
	s.seedDeletedCustomerTree()
	s.stores[types.EntityTypeOrder].FailHardDelete = true

	_, err := s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonAdminRequest})
	s.Error(err)

	// the root stays for a retry; the member that could be purged is gone
	s.True(s.stores[types.EntityTypeCustomer].Has("customer-1"))
	s.False(s.stores[types.EntityTypeSubscription].Has("sub-1"))
	s.True(s.stores[types.EntityTypeOrder].Has("order-1"))
}
