package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vendra/vendra/internal/domain/deletion"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/types"
)

var _ deletion.Repository = (*InMemoryDeletionLogStore)(nil)

// InMemoryDeletionLogStore is an in-memory deletion ledger for testing
type InMemoryDeletionLogStore struct {
	mu      sync.RWMutex
	entries []*deletion.LogEntry
}

func NewInMemoryDeletionLogStore() *InMemoryDeletionLogStore {
	return &InMemoryDeletionLogStore{}
}

func (s *InMemoryDeletionLogStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *InMemoryDeletionLogStore) Record(ctx context.Context, entry *deletion.LogEntry) error {
	if entry == nil {
		return ierr.NewError("entry cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *InMemoryDeletionLogStore) FindActiveByEntity(ctx context.Context, entityType types.EntityType, entityID string) (*deletion.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.TenantID == types.GetTenantID(ctx) && e.EntityType == entityType && e.EntityID == entityID && e.IsActive() {
			clone := *e
			return &clone, nil
		}
	}
	return nil, ierr.NewError("no active deletion record").
		WithHintf("Entity %s/%s has no active deletion record", entityType, entityID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryDeletionLogStore) ListByCascade(ctx context.Context, cascadeID string, excludeID string) ([]*deletion.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*deletion.LogEntry
	for _, e := range s.entries {
		if e.CascadeID != cascadeID || e.ID == excludeID {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DeletedAt.Equal(result[j].DeletedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].DeletedAt.Before(result[j].DeletedAt)
	})
	return result, nil
}

func (s *InMemoryDeletionLogStore) MarkRestored(ctx context.Context, entityType types.EntityType, entityID string, restoredBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID && e.IsActive() {
			now := time.Now().UTC()
			e.RestoredAt = &now
			e.RestoredBy = &restoredBy
			return nil
		}
	}
	return nil
}

func (s *InMemoryDeletionLogStore) MarkPurged(ctx context.Context, entityType types.EntityType, entityID string, reason types.PurgeReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID && e.IsActive() {
			now := time.Now().UTC()
			reasonStr := string(reason)
			e.PurgedAt = &now
			e.PurgeReason = &reasonStr
			return nil
		}
	}
	return nil
}

func (s *InMemoryDeletionLogStore) List(ctx context.Context, filter *types.DeletionLogFilter) ([]*deletion.LogEntry, error) {
	matched := s.filtered(ctx, filter)

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DeletedAt.Equal(matched[j].DeletedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].DeletedAt.After(matched[j].DeletedAt)
	})

	offset := filter.GetOffset()
	limit := filter.GetLimit()
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *InMemoryDeletionLogStore) Count(ctx context.Context, filter *types.DeletionLogFilter) (int, error) {
	return len(s.filtered(ctx, filter)), nil
}

func (s *InMemoryDeletionLogStore) ListExpired(ctx context.Context, entityType types.EntityType, cutoff time.Time, limit int) ([]*deletion.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*deletion.LogEntry
	for _, e := range s.entries {
		if e.EntityType != entityType || !e.IsActive() || !e.DeletedAt.Before(cutoff) {
			continue
		}
		clone := *e
		result = append(result, &clone)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *InMemoryDeletionLogStore) filtered(ctx context.Context, filter *types.DeletionLogFilter) []*deletion.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*deletion.LogEntry
	for _, e := range s.entries {
		if e.TenantID != types.GetTenantID(ctx) || !e.IsActive() {
			continue
		}
		if filter.EntityType != nil && e.EntityType != *filter.EntityType {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(e.EntityName), strings.ToLower(*filter.Search)) {
			continue
		}
		if filter.DeletedAfter != nil && e.DeletedAt.Before(*filter.DeletedAfter) {
			continue
		}
		if filter.DeletedBefore != nil && e.DeletedAt.After(*filter.DeletedBefore) {
			continue
		}
		if len(filter.CompanyIDs) > 0 && !contains(filter.CompanyIDs, e.CompanyID) {
			continue
		}
		clone := *e
		matched = append(matched, &clone)
	}
	return matched
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
