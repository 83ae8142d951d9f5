package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryTypeHasAPolicy(t *testing.T) {
	for _, et := range SoftDeletableTypes() {
		p, ok := et.SoftDeletePolicy()
		assert.True(t, ok, "type %s has no policy", et)
		assert.Greater(t, p.RetentionDays, 0, "type %s has no retention window", et)
		assert.NotZero(t, p.MinDeleteRole.Rank(), "type %s has an unranked delete role", et)
	}
}

func TestCascadeGraphIsAcyclic(t *testing.T) {
	// walk down from every type; revisiting a node on the current path
	// means the registry declares a cycle
	var walk func(et EntityType, path map[EntityType]bool)
	walk = func(et EntityType, path map[EntityType]bool) {
		assert.False(t, path[et], "cascade cycle through %s", et)
		if path[et] {
			return
		}
		path[et] = true
		for _, child := range et.CascadeChildren() {
			walk(child, path)
		}
		delete(path, et)
	}
	for _, et := range SoftDeletableTypes() {
		walk(et, map[EntityType]bool{})
	}
}

func TestParentLinksMatchChildDeclarations(t *testing.T) {
	for _, parent := range SoftDeletableTypes() {
		for _, child := range parent.CascadeChildren() {
			assert.Equal(t, parent, child.ParentType(),
				"%s cascades to %s but %s declares parent %s", parent, child, child, child.ParentType())
			assert.NotEmpty(t, child.ParentLinkColumn(),
				"%s has a parent but no parent link column", child)
		}
	}
}

func TestParentsPrecedeChildrenInStableOrder(t *testing.T) {
	position := map[EntityType]int{}
	for i, et := range SoftDeletableTypes() {
		position[et] = i
	}
	for _, et := range SoftDeletableTypes() {
		if parent := et.ParentType(); parent != "" {
			assert.Less(t, position[parent], position[et],
				"%s is listed before its parent %s", et, parent)
		}
	}
}

func TestRoleGates(t *testing.T) {
	assert.True(t, CanDelete(RoleOwner, EntityTypeCompany))
	assert.False(t, CanDelete(RoleAdmin, EntityTypeCompany))
	assert.True(t, CanDelete(RoleManager, EntityTypeCustomer))
	assert.False(t, CanDelete(RoleSupport, EntityTypeCustomer))

	// restore mirrors delete
	assert.Equal(t, CanDelete(RoleManager, EntityTypeSubscription), CanRestore(RoleManager, EntityTypeSubscription))

	// permanent deletion is owner-only regardless of the type's gate
	assert.True(t, CanPermanentlyDelete(RoleOwner, EntityTypeWebhook))
	assert.False(t, CanPermanentlyDelete(RoleAdmin, EntityTypeWebhook))

	// unknown types are never deletable
	assert.False(t, CanDelete(RoleOwner, EntityType("invoice")))
}

func TestHighestRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, HighestRole([]Role{RoleSupport, RoleAdmin, RoleManager}))
	assert.Equal(t, Role(""), HighestRole(nil))
	assert.Equal(t, Role(""), HighestRole([]Role{Role("bogus")}))
}

func TestValidateRejectsUnknownTypes(t *testing.T) {
	assert.NoError(t, EntityTypeRoutingRule.Validate())
	assert.Error(t, EntityType("invoice").Validate())
	assert.Error(t, EntityType("").Validate())
}

func TestPersonalDataFlags(t *testing.T) {
	assert.True(t, EntityTypeUser.HasPersonalData())
	assert.True(t, EntityTypeCustomer.HasPersonalData())
	assert.True(t, EntityTypeCustomerAddress.HasPersonalData())
	assert.False(t, EntityTypeSubscription.HasPersonalData())
	assert.False(t, EntityTypeCompany.HasPersonalData())
}
