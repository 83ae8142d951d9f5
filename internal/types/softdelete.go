package types

// SoftDeletePolicy declares, per entity type, how deletion behaves: how long
// the record is retained before purge, which child types cascade with it, how
// a child row points back at its parent, and who may delete or restore it.
// The tables are static; changing them is a compile-time registry edit.
type SoftDeletePolicy struct {
	// RetentionDays is the window after soft-deletion during which restore
	// remains possible
	RetentionDays int

	// Children are the entity types cascade-deleted along with this type,
	// processed in declared order
	Children []EntityType

	// ParentType is the owning type, zero for cascade roots
	ParentType EntityType

	// ParentLinkColumn is the column on this type's table holding the
	// parent's id, empty for cascade roots
	ParentLinkColumn string

	// MinDeleteRole is the least privileged role allowed to soft-delete or
	// restore this type
	MinDeleteRole Role

	// PersonalData marks types whose rows are anonymized instead of
	// hard-deleted under a GDPR-class permanent delete
	PersonalData bool
}

var softDeletePolicies = map[EntityType]SoftDeletePolicy{
	EntityTypeClient: {
		RetentionDays: 365,
		Children:      []EntityType{EntityTypeCompany},
		MinDeleteRole: RoleOwner,
	},
	EntityTypeCompany: {
		RetentionDays: 365,
		Children: []EntityType{
			EntityTypeDepartment,
			EntityTypeCustomer,
			EntityTypeMerchantAccount,
			EntityTypeProduct,
			EntityTypeWebhook,
		},
		ParentType:       EntityTypeClient,
		ParentLinkColumn: "client_id",
		MinDeleteRole:    RoleOwner,
	},
	EntityTypeDepartment: {
		RetentionDays:    365,
		Children:         []EntityType{EntityTypeUser},
		ParentType:       EntityTypeCompany,
		ParentLinkColumn: "company_id",
		MinDeleteRole:    RoleAdmin,
	},
	EntityTypeUser: {
		RetentionDays:    90,
		ParentType:       EntityTypeDepartment,
		ParentLinkColumn: "department_id",
		MinDeleteRole:    RoleAdmin,
		PersonalData:     true,
	},
	EntityTypeCustomer: {
		RetentionDays: 90,
		Children: []EntityType{
			EntityTypeCustomerAddress,
			EntityTypeSubscription,
			EntityTypeOrder,
		},
		ParentType:       EntityTypeCompany,
		ParentLinkColumn: "company_id",
		MinDeleteRole:    RoleManager,
		PersonalData:     true,
	},
	EntityTypeCustomerAddress: {
		RetentionDays:    90,
		ParentType:       EntityTypeCustomer,
		ParentLinkColumn: "customer_id",
		MinDeleteRole:    RoleManager,
		PersonalData:     true,
	},
	EntityTypeSubscription: {
		RetentionDays:    180,
		ParentType:       EntityTypeCustomer,
		ParentLinkColumn: "customer_id",
		MinDeleteRole:    RoleManager,
	},
	EntityTypeOrder: {
		RetentionDays:    180,
		ParentType:       EntityTypeCustomer,
		ParentLinkColumn: "customer_id",
		MinDeleteRole:    RoleManager,
	},
	EntityTypeProduct: {
		RetentionDays:    120,
		ParentType:       EntityTypeCompany,
		ParentLinkColumn: "company_id",
		MinDeleteRole:    RoleManager,
	},
	EntityTypeMerchantAccount: {
		RetentionDays:    365,
		Children:         []EntityType{EntityTypeRoutingRule},
		ParentType:       EntityTypeCompany,
		ParentLinkColumn: "company_id",
		MinDeleteRole:    RoleOwner,
	},
	EntityTypeRoutingRule: {
		RetentionDays:    30,
		ParentType:       EntityTypeMerchantAccount,
		ParentLinkColumn: "merchant_account_id",
		MinDeleteRole:    RoleAdmin,
	},
	EntityTypeWebhook: {
		RetentionDays:    30,
		ParentType:       EntityTypeCompany,
		ParentLinkColumn: "company_id",
		MinDeleteRole:    RoleAdmin,
	},
}

// SoftDeletePolicy returns the policy for the type. The second return is
// false for unregistered types, which are not soft-deletable at all.
func (t EntityType) SoftDeletePolicy() (SoftDeletePolicy, bool) {
	p, ok := softDeletePolicies[t]
	return p, ok
}

// IsSoftDeletable reports whether the type is registered
func (t EntityType) IsSoftDeletable() bool {
	_, ok := softDeletePolicies[t]
	return ok
}

// RetentionDays returns the retention window for the type in days
func (t EntityType) RetentionDays() int {
	return softDeletePolicies[t].RetentionDays
}

// CascadeChildren returns the declared cascade child types, in order
func (t EntityType) CascadeChildren() []EntityType {
	return softDeletePolicies[t].Children
}

// ParentType returns the declared owning type, zero for cascade roots
func (t EntityType) ParentType() EntityType {
	return softDeletePolicies[t].ParentType
}

// ParentLinkColumn returns the column on the child table holding the
// parent's id, empty for cascade roots
func (t EntityType) ParentLinkColumn() string {
	return softDeletePolicies[t].ParentLinkColumn
}

// IsOrgScoped reports whether the type sits above the company level of the
// hierarchy, so authorization uses the organization check instead of a
// company scope check
func (t EntityType) IsOrgScoped() bool {
	return t == EntityTypeClient
}

// HasPersonalData reports whether rows of this type are anonymized instead
// of hard-deleted under a GDPR-class permanent delete
func (t EntityType) HasPersonalData() bool {
	return softDeletePolicies[t].PersonalData
}

// CanDelete reports whether the role may soft-delete entities of the type
func CanDelete(role Role, t EntityType) bool {
	p, ok := softDeletePolicies[t]
	if !ok {
		return false
	}
	return role.AtLeast(p.MinDeleteRole)
}

// CanRestore reports whether the role may restore entities of the type.
// Restore is gated by the same minimum role as delete.
func CanRestore(role Role, t EntityType) bool {
	return CanDelete(role, t)
}

// CanPermanentlyDelete reports whether the role may irreversibly destroy
// entities of the type. Only the highest role qualifies.
func CanPermanentlyDelete(role Role, t EntityType) bool {
	if !t.IsSoftDeletable() {
		return false
	}
	return role.AtLeast(RoleOwner)
}
