package types

import (
	ierr "github.com/vendra/vendra/internal/errors"
)

// EntityType identifies a kind of soft-deletable record
type EntityType string

const (
	EntityTypeClient          EntityType = "client"
	EntityTypeCompany         EntityType = "company"
	EntityTypeDepartment      EntityType = "department"
	EntityTypeUser            EntityType = "user"
	EntityTypeCustomer        EntityType = "customer"
	EntityTypeCustomerAddress EntityType = "customer_address"
	EntityTypeSubscription    EntityType = "subscription"
	EntityTypeOrder           EntityType = "order"
	EntityTypeProduct         EntityType = "product"
	EntityTypeMerchantAccount EntityType = "merchant_account"
	EntityTypeRoutingRule     EntityType = "routing_rule"
	EntityTypeWebhook         EntityType = "webhook"
)

// SoftDeletableTypes lists every registered type in a stable order.
// Parents are listed before their cascade children.
func SoftDeletableTypes() []EntityType {
	return []EntityType{
		EntityTypeClient,
		EntityTypeCompany,
		EntityTypeDepartment,
		EntityTypeUser,
		EntityTypeCustomer,
		EntityTypeCustomerAddress,
		EntityTypeSubscription,
		EntityTypeOrder,
		EntityTypeProduct,
		EntityTypeMerchantAccount,
		EntityTypeRoutingRule,
		EntityTypeWebhook,
	}
}

func (t EntityType) String() string {
	return string(t)
}

// Validate rejects types that are not registered as soft-deletable
func (t EntityType) Validate() error {
	if !t.IsSoftDeletable() {
		return ierr.NewError("unknown entity type").
			WithHintf("Entity type '%s' is not soft-deletable", t).
			WithReportableDetails(map[string]any{"entity_type": t}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
