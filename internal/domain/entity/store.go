package entity

import (
	"context"
	"time"

	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/types"
)

// Store is the per-type storage accessor the cascade engine mutates rows
// through. Implementations are tenant-scoped: every query filters by the
// tenant resolved from the context.
type Store interface {
	// Get returns the row regardless of deletion state
	Get(ctx context.Context, id string) (*Record, error)

	// ListLiveByParent returns every live row whose parent link column
	// equals parentID
	ListLiveByParent(ctx context.Context, parentLinkColumn string, parentID string) ([]*Record, error)

	// MarkDeleted sets deleted_at/deleted_by/cascade_id on a live row
	MarkDeleted(ctx context.Context, id string, deletedBy string, cascadeID string, at time.Time) error

	// ClearDeleted nulls the three deletion fields, returning the row to
	// live state
	ClearDeleted(ctx context.Context, id string) error

	// HardDelete irreversibly removes the row
	HardDelete(ctx context.Context, id string) error

	// Anonymize overwrites the row's identifying fields with redacted
	// placeholders, leaving the row and its relations intact
	Anonymize(ctx context.Context, id string) error
}

// StoreSet binds every registered entity type to its storage accessor at
// compile time. Adding a soft-deletable type means adding a field here and a
// case to ForType; a type the switch does not cover cannot be dispatched.
type StoreSet struct {
	Client          Store
	Company         Store
	Department      Store
	User            Store
	Customer        Store
	CustomerAddress Store
	Subscription    Store
	Order           Store
	Product         Store
	MerchantAccount Store
	RoutingRule     Store
	Webhook         Store
}

// ForType resolves the accessor for the type. Unregistered types are
// rejected rather than dispatched.
func (s *StoreSet) ForType(t types.EntityType) (Store, error) {
	switch t {
	case types.EntityTypeClient:
		return s.Client, nil
	case types.EntityTypeCompany:
		return s.Company, nil
	case types.EntityTypeDepartment:
		return s.Department, nil
	case types.EntityTypeUser:
		return s.User, nil
	case types.EntityTypeCustomer:
		return s.Customer, nil
	case types.EntityTypeCustomerAddress:
		return s.CustomerAddress, nil
	case types.EntityTypeSubscription:
		return s.Subscription, nil
	case types.EntityTypeOrder:
		return s.Order, nil
	case types.EntityTypeProduct:
		return s.Product, nil
	case types.EntityTypeMerchantAccount:
		return s.MerchantAccount, nil
	case types.EntityTypeRoutingRule:
		return s.RoutingRule, nil
	case types.EntityTypeWebhook:
		return s.Webhook, nil
	default:
		return nil, ierr.NewError("no store registered for entity type").
			WithHintf("Entity type '%s' is not soft-deletable", t).
			Mark(ierr.ErrValidation)
	}
}
