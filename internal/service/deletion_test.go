package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/config"
	"github.com/vendra/vendra/internal/domain/entity"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/testutil"
	"github.com/vendra/vendra/internal/types"
)

type DeletionServiceSuite struct {
	suite.Suite
	ctx        context.Context
	service    DeletionService
	compliance ComplianceService
	ledger     *testutil.InMemoryDeletionLogStore
	stores     map[types.EntityType]*testutil.InMemoryEntityStore
	storeSet   *entity.StoreSet
	scope      *testutil.StubScopeResolver
	params     ServiceParams
}

func TestDeletionServiceSuite(t *testing.T) {
	suite.Run(t, new(DeletionServiceSuite))
}

func (s *DeletionServiceSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.ctx = testutil.SetupContext()
	s.ledger = testutil.NewInMemoryDeletionLogStore()
	s.storeSet, s.stores = testutil.NewInMemoryEntityStores()
	s.scope = testutil.NewStubScopeResolver()
	s.params = ServiceParams{
		Logger:          log,
		Config:          cfg,
		DB:              testutil.NewMockPostgresClient(log),
		DeletionLogRepo: s.ledger,
		EntityStores:    s.storeSet,
		Scope:           s.scope,
	}
	s.service = NewDeletionService(s.params)
	s.compliance = NewComplianceService(s.params)
}

// seedCompanyTree creates a company under a client with three customers,
// each holding two subscriptions: ten company-rooted entities in total
func (s *DeletionServiceSuite) seedCompanyTree() {
	s.stores[types.EntityTypeClient].Add(&entity.Record{
		ID: "client-1", Name: "Acme Holdings",
	})
	s.stores[types.EntityTypeCompany].Add(&entity.Record{
		ID: "company-1", Name: "Acme GmbH", CompanyID: "company-1", ParentID: "client-1",
	})
	for i := 1; i <= 3; i++ {
		customerID := fmt.Sprintf("customer-%d", i)
		s.stores[types.EntityTypeCustomer].Add(&entity.Record{
			ID: customerID, Name: fmt.Sprintf("Customer %d", i), CompanyID: "company-1", ParentID: "company-1",
		})
		for j := 1; j <= 2; j++ {
			s.stores[types.EntityTypeSubscription].Add(&entity.Record{
				ID:        fmt.Sprintf("sub-%d-%d", i, j),
				Name:      fmt.Sprintf("Plan %d-%d", i, j),
				CompanyID: "company-1",
				ParentID:  customerID,
			})
		}
	}
}

func (s *DeletionServiceSuite) TestSoftDeleteCascadeCount() {
	s.seedCompanyTree()

	resp, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{Reason: "offboarding"})
	s.NoError(err)
	s.Equal(10, resp.AffectedCount)
	s.NotEmpty(resp.CascadeID)

	// every entity in the subtree is marked with the same cascade id
	for _, id := range []string{"customer-1", "customer-2", "customer-3"} {
		rec, err := s.stores[types.EntityTypeCustomer].Get(s.ctx, id)
		s.NoError(err)
		s.True(rec.IsDeleted())
		s.Equal(resp.CascadeID, rec.CascadeID)
	}
	sub, err := s.stores[types.EntityTypeSubscription].Get(s.ctx, "sub-3-2")
	s.NoError(err)
	s.True(sub.IsDeleted())

	// the client above the deleted root is untouched
	client, err := s.stores[types.EntityTypeClient].Get(s.ctx, "client-1")
	s.NoError(err)
	s.False(client.IsDeleted())
}

func (s *DeletionServiceSuite) TestSoftDeleteLedgerLineage() {
	s.seedCompanyTree()

	resp, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	root, err := s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeCompany, "company-1")
	s.NoError(err)
	s.Nil(root.CascadedFrom)
	s.Equal(resp.CascadeID, root.CascadeID)

	sub, err := s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeSubscription, "sub-1-1")
	s.NoError(err)
	s.Require().NotNil(sub.CascadedFrom)
	s.Equal("customer-1", *sub.CascadedFrom)
	s.NotEmpty(sub.Snapshot)
}

func (s *DeletionServiceSuite) TestSoftDeleteWithoutCascade() {
	s.seedCompanyTree()

	cascade := false
	resp, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{Cascade: &cascade})
	s.NoError(err)
	s.Equal(1, resp.AffectedCount)

	customer, err := s.stores[types.EntityTypeCustomer].Get(s.ctx, "customer-1")
	s.NoError(err)
	s.False(customer.IsDeleted())
}

func (s *DeletionServiceSuite) TestSoftDeleteAlreadyDeleted() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	_, err = s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *DeletionServiceSuite) TestSoftDeleteUnknownType() {
	_, err := s.service.SoftDelete(s.ctx, types.EntityType("invoice"), "x", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DeletionServiceSuite) TestSoftDeleteNotFound() {
	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "missing", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *DeletionServiceSuite) TestSoftDeleteInsufficientRole() {
	s.seedCompanyTree()
	ctx := testutil.SetupContextWithRoles(types.RoleManager)

	// company deletion needs owner
	_, err := s.service.SoftDelete(ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	// the same manager may delete a customer
	_, err = s.service.SoftDelete(ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.NoError(err)
}

func (s *DeletionServiceSuite) TestSoftDeleteOutOfScope() {
	s.seedCompanyTree()
	s.scope.OrgScoped = false
	s.scope.CompanyIDs = []string{"company-other"}

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *DeletionServiceSuite) TestSoftDeleteAbortsOnMidCascadeFailure() {
	s.seedCompanyTree()
	s.stores[types.EntityTypeSubscription].FailMarkDeleted = true

	// a storage failure on any cascade member surfaces as the operation's
	// error, so the wrapping transaction rolls the whole walk back
	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.Error(err)
	s.True(ierr.IsDatabase(err))
}

func (s *DeletionServiceSuite) TestPreviewDelete() {
	s.seedCompanyTree()

	resp, err := s.service.PreviewDelete(s.ctx, types.EntityTypeCompany, "company-1")
	s.NoError(err)
	s.Equal("Acme GmbH", resp.EntityName)
	s.Equal(10, resp.TotalAffected)
	s.Equal(3, resp.CascadeCountByType[types.EntityTypeCustomer])
	s.Equal(6, resp.CascadeCountByType[types.EntityTypeSubscription])

	// preview mutates nothing
	rec, err := s.stores[types.EntityTypeCompany].Get(s.ctx, "company-1")
	s.NoError(err)
	s.False(rec.IsDeleted())
	count, err := s.ledger.Count(s.ctx, &types.DeletionLogFilter{})
	s.NoError(err)
	s.Equal(0, count)
}

func (s *DeletionServiceSuite) TestPreviewWarnsOnPersonalData() {
	s.seedCompanyTree()

	resp, err := s.service.PreviewDelete(s.ctx, types.EntityTypeCompany, "company-1")
	s.NoError(err)
	s.NotEmpty(resp.Warnings)
}

func (s *DeletionServiceSuite) TestRestoreCascade() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	resp, err := s.service.Restore(s.ctx, types.EntityTypeCompany, "company-1", dto.RestoreRequest{})
	s.NoError(err)
	s.Equal(10, resp.RestoredCount)

	for _, id := range []string{"customer-1", "customer-2", "customer-3"} {
		rec, err := s.stores[types.EntityTypeCustomer].Get(s.ctx, id)
		s.NoError(err)
		s.False(rec.IsDeleted())
	}
	sub, err := s.stores[types.EntityTypeSubscription].Get(s.ctx, "sub-2-1")
	s.NoError(err)
	s.False(sub.IsDeleted())

	// the ledger holds no active entries afterwards
	_, err = s.ledger.FindActiveByEntity(s.ctx, types.EntityTypeCompany, "company-1")
	s.True(ierr.IsNotFound(err))
}

func (s *DeletionServiceSuite) TestRestoreChildWhileParentDeleted() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	_, err = s.service.Restore(s.ctx, types.EntityTypeSubscription, "sub-1-1", dto.RestoreRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// the subscription stays deleted
	rec, err := s.stores[types.EntityTypeSubscription].Get(s.ctx, "sub-1-1")
	s.NoError(err)
	s.True(rec.IsDeleted())
}

func (s *DeletionServiceSuite) TestRestoreNotDeleted() {
	s.seedCompanyTree()

	_, err := s.service.Restore(s.ctx, types.EntityTypeCompany, "company-1", dto.RestoreRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *DeletionServiceSuite) TestRestoreSkipsIndependentlyRestoredMembers() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	// one customer is restored on its own first; the company restore must
	// not double-count it
	s.Require().NoError(s.stores[types.EntityTypeCustomer].ClearDeleted(s.ctx, "customer-2"))
	s.Require().NoError(s.ledger.MarkRestored(s.ctx, types.EntityTypeCustomer, "customer-2", "someone"))

	resp, err := s.service.Restore(s.ctx, types.EntityTypeCompany, "company-1", dto.RestoreRequest{})
	s.NoError(err)
	s.Equal(9, resp.RestoredCount)
}

func (s *DeletionServiceSuite) TestRestoreAfterPurgeIsTerminal() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	// a GDPR permanent delete anonymizes the customer in place
	_, err = s.compliance.PermanentlyDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.PermanentDeleteRequest{Reason: types.PurgeReasonGDPRRequest})
	s.NoError(err)

	_, err = s.service.Restore(s.ctx, types.EntityTypeCustomer, "customer-1", dto.RestoreRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *DeletionServiceSuite) TestListDeletedScoped() {
	s.seedCompanyTree()
	s.stores[types.EntityTypeCompany].Add(&entity.Record{
		ID: "company-2", Name: "Beta Ltd", CompanyID: "company-2", ParentID: "client-1",
	})

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.NoError(err)
	_, err = s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-2", dto.SoftDeleteRequest{})
	s.NoError(err)

	// a caller scoped to company-2 sees only its entries
	s.scope.OrgScoped = false
	s.scope.CompanyIDs = []string{"company-2"}

	resp, err := s.service.ListDeleted(s.ctx, &types.DeletionLogFilter{})
	s.NoError(err)
	s.Equal(1, resp.Pagination.Total)
	s.Equal("company-2", resp.Items[0].CompanyID)
}

func (s *DeletionServiceSuite) TestListDeletedFilters() {
	s.seedCompanyTree()

	_, err := s.service.SoftDelete(s.ctx, types.EntityTypeCustomer, "customer-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	customerType := types.EntityTypeCustomer
	resp, err := s.service.ListDeleted(s.ctx, &types.DeletionLogFilter{EntityType: &customerType})
	s.NoError(err)
	s.Equal(1, resp.Pagination.Total)

	search := "Customer 1"
	resp, err = s.service.ListDeleted(s.ctx, &types.DeletionLogFilter{Search: &search})
	s.NoError(err)
	s.Equal(1, resp.Pagination.Total)

	orderType := types.EntityTypeOrder
	resp, err = s.service.ListDeleted(s.ctx, &types.DeletionLogFilter{EntityType: &orderType})
	s.NoError(err)
	s.Equal(0, resp.Pagination.Total)
}

func (s *DeletionServiceSuite) TestGetDeletionDetails() {
	s.seedCompanyTree()

	deleteResp, err := s.service.SoftDelete(s.ctx, types.EntityTypeCompany, "company-1", dto.SoftDeleteRequest{})
	s.NoError(err)

	details, err := s.service.GetDeletionDetails(s.ctx, types.EntityTypeCompany, "company-1")
	s.NoError(err)
	s.Equal(deleteResp.CascadeID, details.CascadeID)
	s.Len(details.CascadeRecords, 9)
	s.Equal(365, details.RetentionDays)
	s.WithinDuration(details.DeletedAt.AddDate(0, 0, 365), details.ExpiresAt, time.Second)
}
