package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vendra/vendra/internal/domain/entity"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/types"
)

var _ entity.Store = (*InMemoryEntityStore)(nil)

// InMemoryEntityStore is an in-memory entity table for testing. The
// Fail* hooks inject storage errors into individual operations.
type InMemoryEntityStore struct {
	mu         sync.RWMutex
	entityType types.EntityType
	records    map[string]*entity.Record
	order      []string

	FailMarkDeleted bool
	FailHardDelete  bool
	FailAnonymize   bool
}

func NewInMemoryEntityStore(entityType types.EntityType) *InMemoryEntityStore {
	return &InMemoryEntityStore{
		entityType: entityType,
		records:    make(map[string]*entity.Record),
	}
}

// NewInMemoryEntityStores builds a full store set plus an index for reaching
// the typed stores from tests
func NewInMemoryEntityStores() (*entity.StoreSet, map[types.EntityType]*InMemoryEntityStore) {
	index := make(map[types.EntityType]*InMemoryEntityStore)
	for _, t := range types.SoftDeletableTypes() {
		index[t] = NewInMemoryEntityStore(t)
	}
	set := &entity.StoreSet{
		Client:          index[types.EntityTypeClient],
		Company:         index[types.EntityTypeCompany],
		Department:      index[types.EntityTypeDepartment],
		User:            index[types.EntityTypeUser],
		Customer:        index[types.EntityTypeCustomer],
		CustomerAddress: index[types.EntityTypeCustomerAddress],
		Subscription:    index[types.EntityTypeSubscription],
		Order:           index[types.EntityTypeOrder],
		Product:         index[types.EntityTypeProduct],
		MerchantAccount: index[types.EntityTypeMerchantAccount],
		RoutingRule:     index[types.EntityTypeRoutingRule],
		Webhook:         index[types.EntityTypeWebhook],
	}
	return set, index
}

// Add seeds a record. Fields defaults to a minimal row map when nil.
func (s *InMemoryEntityStore) Add(rec *entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Fields == nil {
		rec.Fields = map[string]any{
			"id":   rec.ID,
			"name": rec.Name,
		}
	}
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
}

// Has reports whether the row still exists
func (s *InMemoryEntityStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

func (s *InMemoryEntityStore) Get(ctx context.Context, id string) (*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ierr.NewError("entity not found").
			WithHintf("No %s with id '%s'", s.entityType, id).
			Mark(ierr.ErrNotFound)
	}
	clone := *rec
	return &clone, nil
}

func (s *InMemoryEntityStore) ListLiveByParent(ctx context.Context, parentLinkColumn string, parentID string) ([]*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Record
	for _, id := range s.order {
		rec := s.records[id]
		if rec.ParentID != parentID || rec.IsDeleted() {
			continue
		}
		clone := *rec
		result = append(result, &clone)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryEntityStore) MarkDeleted(ctx context.Context, id string, deletedBy string, cascadeID string, at time.Time) error {
	if s.FailMarkDeleted {
		return ierr.NewError("injected mark-deleted failure").Mark(ierr.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ierr.NewError("entity not found").Mark(ierr.ErrNotFound)
	}
	if rec.IsDeleted() {
		return ierr.NewError("entity deleted concurrently").Mark(ierr.ErrConflict)
	}
	rec.DeletedAt = &at
	rec.DeletedBy = deletedBy
	rec.CascadeID = cascadeID
	return nil
}

func (s *InMemoryEntityStore) ClearDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ierr.NewError("entity not found").Mark(ierr.ErrNotFound)
	}
	rec.DeletedAt = nil
	rec.DeletedBy = ""
	rec.CascadeID = ""
	return nil
}

func (s *InMemoryEntityStore) HardDelete(ctx context.Context, id string) error {
	if s.FailHardDelete {
		return ierr.NewError("injected hard-delete failure").Mark(ierr.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryEntityStore) Anonymize(ctx context.Context, id string) error {
	if s.FailAnonymize {
		return ierr.NewError("injected anonymize failure").Mark(ierr.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ierr.NewError("entity not found").Mark(ierr.ErrNotFound)
	}
	rec.Name = "REDACTED"
	rec.Fields = map[string]any{"id": rec.ID, "name": "REDACTED"}
	return nil
}
