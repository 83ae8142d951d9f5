package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendra/vendra/internal/domain/entity"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/postgres"
	"github.com/vendra/vendra/internal/types"
)

// tableSpec describes how one soft-deletable table maps onto the engine's
// uniform Record view. The specs live in NewEntityStores, so every
// registered entity type is bound to its table at compile time.
type tableSpec struct {
	entityType types.EntityType
	table      string

	// nameColumn holds the row's human label
	nameColumn string

	// companyColumn holds the owning company id: "id" for the companies
	// table itself, empty for organization-level tables
	companyColumn string

	// anonymizeColumns are overwritten with redacted placeholders by a
	// GDPR-class permanent delete
	anonymizeColumns []string
}

type entityStore struct {
	db     *postgres.DB
	logger *logger.Logger
	spec   tableSpec
}

func newEntityStore(db *postgres.DB, logger *logger.Logger, spec tableSpec) entity.Store {
	return &entityStore{db: db, logger: logger, spec: spec}
}

// NewEntityStores binds every soft-deletable table to its accessor.
// The table layout here must match the migrations.
func NewEntityStores(db *postgres.DB, logger *logger.Logger) *entity.StoreSet {
	return &entity.StoreSet{
		Client: newEntityStore(db, logger, tableSpec{
			entityType: types.EntityTypeClient,
			table:      "clients",
			nameColumn: "name",
		}),
		Company: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeCompany,
			table:         "companies",
			nameColumn:    "name",
			companyColumn: "id",
		}),
		Department: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeDepartment,
			table:         "departments",
			nameColumn:    "name",
			companyColumn: "company_id",
		}),
		User: newEntityStore(db, logger, tableSpec{
			entityType:       types.EntityTypeUser,
			table:            "users",
			nameColumn:       "full_name",
			companyColumn:    "company_id",
			anonymizeColumns: []string{"full_name", "email", "phone"},
		}),
		Customer: newEntityStore(db, logger, tableSpec{
			entityType:       types.EntityTypeCustomer,
			table:            "customers",
			nameColumn:       "name",
			companyColumn:    "company_id",
			anonymizeColumns: []string{"name", "email", "phone"},
		}),
		CustomerAddress: newEntityStore(db, logger, tableSpec{
			entityType:       types.EntityTypeCustomerAddress,
			table:            "customer_addresses",
			nameColumn:       "label",
			companyColumn:    "company_id",
			anonymizeColumns: []string{"line1", "line2", "city", "postal_code"},
		}),
		Subscription: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeSubscription,
			table:         "subscriptions",
			nameColumn:    "plan_name",
			companyColumn: "company_id",
		}),
		Order: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeOrder,
			table:         "orders",
			nameColumn:    "order_number",
			companyColumn: "company_id",
		}),
		Product: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeProduct,
			table:         "products",
			nameColumn:    "name",
			companyColumn: "company_id",
		}),
		MerchantAccount: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeMerchantAccount,
			table:         "merchant_accounts",
			nameColumn:    "name",
			companyColumn: "company_id",
		}),
		RoutingRule: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeRoutingRule,
			table:         "routing_rules",
			nameColumn:    "name",
			companyColumn: "company_id",
		}),
		Webhook: newEntityStore(db, logger, tableSpec{
			entityType:    types.EntityTypeWebhook,
			table:         "webhooks",
			nameColumn:    "url",
			companyColumn: "company_id",
		}),
	}
}

func (s *entityStore) Get(ctx context.Context, id string) (*entity.Record, error) {
	query := fmt.Sprintf(
		`SELECT * FROM %s WHERE id = :id AND tenant_id = :tenant_id`,
		s.spec.table,
	)
	rows, err := s.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to load %s", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("entity not found").
			WithHintf("No %s exists with id '%s'", s.spec.entityType, id).
			WithReportableDetails(map[string]any{
				"entity_type": s.spec.entityType,
				"entity_id":   id,
			}).
			Mark(ierr.ErrNotFound)
	}

	fields := map[string]interface{}{}
	if err := rows.MapScan(fields); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to read %s row", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}

	return s.toRecord(fields), nil
}

func (s *entityStore) ListLiveByParent(ctx context.Context, parentLinkColumn string, parentID string) ([]*entity.Record, error) {
	query := fmt.Sprintf(
		`SELECT * FROM %s WHERE %s = :parent_id AND tenant_id = :tenant_id AND deleted_at IS NULL ORDER BY created_at ASC`,
		s.spec.table, parentLinkColumn,
	)
	rows, err := s.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"parent_id": parentID,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to list live %s children", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var records []*entity.Record
	for rows.Next() {
		fields := map[string]interface{}{}
		if err := rows.MapScan(fields); err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Failed to read %s row", s.spec.entityType).
				Mark(ierr.ErrDatabase)
		}
		records = append(records, s.toRecord(fields))
	}
	return records, nil
}

func (s *entityStore) MarkDeleted(ctx context.Context, id string, deletedBy string, cascadeID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			deleted_at = :deleted_at,
			deleted_by = :deleted_by,
			cascade_id = :cascade_id,
			updated_at = :deleted_at,
			updated_by = :deleted_by
		WHERE id = :id AND tenant_id = :tenant_id AND deleted_at IS NULL`,
		s.spec.table,
	)

	result, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"deleted_at": at,
		"deleted_by": deletedBy,
		"cascade_id": cascadeID,
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to mark %s deleted", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}

	// The guarded WHERE clause loses the race against a concurrent delete
	// of the same row; surface that as a conflict instead of corrupting the
	// ledger with a second entry
	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("entity is no longer live").
			WithHintf("The %s '%s' was deleted concurrently", s.spec.entityType, id).
			Mark(ierr.ErrConflict)
	}
	return nil
}

func (s *entityStore) ClearDeleted(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			deleted_at = NULL,
			deleted_by = NULL,
			cascade_id = NULL,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND deleted_at IS NOT NULL`,
		s.spec.table,
	)

	_, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to restore %s", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *entityStore) HardDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id = :id AND tenant_id = :tenant_id`,
		s.spec.table,
	)
	_, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to hard-delete %s", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *entityStore) Anonymize(ctx context.Context, id string) error {
	if len(s.spec.anonymizeColumns) == 0 {
		return ierr.NewError("entity type does not support anonymization").
			WithHintf("Entity type '%s' carries no personal data", s.spec.entityType).
			Mark(ierr.ErrInvalidOperation)
	}

	assignments := make([]string, 0, len(s.spec.anonymizeColumns))
	for _, col := range s.spec.anonymizeColumns {
		assignments = append(assignments, fmt.Sprintf("%s = '%s'", col, redactedValue(col)))
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			%s,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`,
		s.spec.table, strings.Join(assignments, ",\n\t\t\t"),
	)

	_, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to anonymize %s", s.spec.entityType).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// redactedValue keeps email columns syntactically valid so downstream
// consumers that parse addresses do not choke on anonymized rows
func redactedValue(col string) string {
	if strings.Contains(col, "email") {
		return "redacted@redacted.invalid"
	}
	return "REDACTED"
}

// toRecord projects a raw row onto the engine's uniform view
func (s *entityStore) toRecord(fields map[string]interface{}) *entity.Record {
	// NUMERIC columns scan as []byte; convert money values to decimals so
	// ledger snapshots serialize them as numbers instead of base64 blobs
	if raw, ok := fields["amount"].([]byte); ok {
		if d, err := decimal.NewFromString(string(raw)); err == nil {
			fields["amount"] = d
		}
	}

	rec := &entity.Record{
		ID:     asString(fields["id"]),
		Name:   asString(fields[s.spec.nameColumn]),
		Fields: fields,
	}
	if s.spec.companyColumn != "" {
		rec.CompanyID = asString(fields[s.spec.companyColumn])
	}
	if link := s.spec.entityType.ParentLinkColumn(); link != "" {
		rec.ParentID = asString(fields[link])
	}
	if v, ok := fields["deleted_at"].(time.Time); ok {
		rec.DeletedAt = &v
	}
	rec.DeletedBy = asString(fields["deleted_by"])
	rec.CascadeID = asString(fields["cascade_id"])
	return rec
}

// asString normalizes the driver's representation of text columns
func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
