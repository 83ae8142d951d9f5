package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/domain/entity"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/snapshot"
	"github.com/vendra/vendra/internal/types"
)

// largeCascadeWarnThreshold is the affected-entity count above which a
// preview warns about transaction latency
const largeCascadeWarnThreshold = 1000

// DeletionService is the soft-delete cascade engine: it marks entities and
// their ownership subtree deleted, records the restorable ledger trail, and
// replays that trail on restore.
type DeletionService interface {
	SoftDelete(ctx context.Context, entityType types.EntityType, id string, req dto.SoftDeleteRequest) (*dto.SoftDeleteResponse, error)
	Restore(ctx context.Context, entityType types.EntityType, id string, req dto.RestoreRequest) (*dto.RestoreResponse, error)
	PreviewDelete(ctx context.Context, entityType types.EntityType, id string) (*dto.PreviewDeleteResponse, error)
	ListDeleted(ctx context.Context, filter *types.DeletionLogFilter) (*dto.ListDeletionsResponse, error)
	GetDeletionDetails(ctx context.Context, entityType types.EntityType, id string) (*dto.DeletionDetailsResponse, error)
}

type deletionService struct {
	ServiceParams
}

func NewDeletionService(params ServiceParams) DeletionService {
	return &deletionService{
		ServiceParams: params,
	}
}

// deleteWorkItem is one pending node of the cascade walk
type deleteWorkItem struct {
	entityType   types.EntityType
	record       *entity.Record
	cascadedFrom *string
}

func (s *deletionService) SoftDelete(ctx context.Context, entityType types.EntityType, id string, req dto.SoftDeleteRequest) (*dto.SoftDeleteResponse, error) {
	if err := entityType.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid delete request").
			Mark(ierr.ErrValidation)
	}

	role := types.HighestRole(types.GetRoles(ctx))
	if !types.CanDelete(role, entityType) {
		return nil, ierr.NewError("insufficient role for delete").
			WithHintf("Your role does not permit deleting entities of type '%s'", entityType).
			WithReportableDetails(map[string]any{"entity_type": entityType, "role": role}).
			Mark(ierr.ErrPermissionDenied)
	}

	store, err := s.EntityStores.ForType(entityType)
	if err != nil {
		return nil, err
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.IsDeleted() {
		return nil, ierr.NewError("entity is already deleted").
			WithHintf("The %s '%s' is already soft-deleted; restore it or delete it permanently instead", entityType, record.Name).
			WithReportableDetails(map[string]any{
				"entity_type": entityType,
				"entity_id":   id,
				"deleted_at":  record.DeletedAt,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.authorizeScope(ctx, entityType, record.CompanyID); err != nil {
		return nil, err
	}

	cascadeID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CASCADE)
	actor := types.GetUserID(ctx)

	var affected int
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		root := deleteWorkItem{entityType: entityType, record: record}
		affected, err = s.runDeleteCascade(txCtx, root, cascadeID, actor, req.Reason, req.GetCascade())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("soft-deleted entity cascade",
		"entity_type", entityType,
		"entity_id", id,
		"cascade_id", cascadeID,
		"affected_count", affected,
	)

	return &dto.SoftDeleteResponse{
		CascadeID:     cascadeID,
		AffectedCount: affected,
	}, nil
}

// runDeleteCascade walks the ownership subtree with an explicit worklist.
// Each node is marked deleted and ledgered strictly before its children are
// discovered, so replaying ledger entries in insertion order restores
// parents before children. The cascade DAG over entity types is cycle-free,
// which bounds the walk.
func (s *deletionService) runDeleteCascade(ctx context.Context, root deleteWorkItem, cascadeID, actor, reason string, cascade bool) (int, error) {
	queue := []deleteWorkItem{root}
	affected := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		store, err := s.EntityStores.ForType(item.entityType)
		if err != nil {
			return 0, err
		}

		at := time.Now().UTC()
		if err := store.MarkDeleted(ctx, item.record.ID, actor, cascadeID, at); err != nil {
			return 0, err
		}

		// The record's fields were read before the mark, so the snapshot
		// holds the pre-deletion state
		snap, err := snapshot.Encode(item.record.Fields)
		if err != nil {
			return 0, err
		}

		entry := &deletion.LogEntry{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DELETION_LOG),
			TenantID:     types.GetTenantID(ctx),
			EntityType:   item.entityType,
			EntityID:     item.record.ID,
			EntityName:   item.record.Name,
			CompanyID:    item.record.CompanyID,
			DeletedBy:    actor,
			DeletedAt:    at,
			Reason:       reason,
			CascadeID:    cascadeID,
			CascadedFrom: item.cascadedFrom,
			Snapshot:     snap,
		}
		if err := s.DeletionLogRepo.Record(ctx, entry); err != nil {
			return 0, err
		}
		affected++

		if !cascade {
			continue
		}
		for _, childType := range item.entityType.CascadeChildren() {
			childStore, err := s.EntityStores.ForType(childType)
			if err != nil {
				return 0, err
			}
			children, err := childStore.ListLiveByParent(ctx, childType.ParentLinkColumn(), item.record.ID)
			if err != nil {
				return 0, err
			}
			parentID := item.record.ID
			for _, child := range children {
				queue = append(queue, deleteWorkItem{
					entityType:   childType,
					record:       child,
					cascadedFrom: &parentID,
				})
			}
		}
	}

	return affected, nil
}

func (s *deletionService) Restore(ctx context.Context, entityType types.EntityType, id string, req dto.RestoreRequest) (*dto.RestoreResponse, error) {
	if err := entityType.Validate(); err != nil {
		return nil, err
	}

	role := types.HighestRole(types.GetRoles(ctx))
	if !types.CanRestore(role, entityType) {
		return nil, ierr.NewError("insufficient role for restore").
			WithHintf("Your role does not permit restoring entities of type '%s'", entityType).
			WithReportableDetails(map[string]any{"entity_type": entityType, "role": role}).
			Mark(ierr.ErrPermissionDenied)
	}

	store, err := s.EntityStores.ForType(entityType)
	if err != nil {
		return nil, err
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.IsDeleted() {
		return nil, ierr.NewError("entity is not deleted").
			WithHintf("The %s '%s' is live; there is nothing to restore", entityType, record.Name).
			Mark(ierr.ErrInvalidOperation)
	}

	entry, err := s.DeletionLogRepo.FindActiveByEntity(ctx, entityType, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The row still exists but its ledger entry reached a terminal
			// state: purge (including compliance anonymization) is final
			return nil, ierr.NewError("deletion record is purged").
				WithHint("The retention window has closed for this entity; restore is no longer possible").
				WithReportableDetails(map[string]any{
					"entity_type": entityType,
					"entity_id":   id,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, err
	}

	if err := s.checkParentLive(ctx, entityType, record); err != nil {
		return nil, err
	}
	if err := s.authorizeScope(ctx, entityType, record.CompanyID); err != nil {
		return nil, err
	}

	actor := types.GetUserID(ctx)
	restored := 0
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := store.ClearDeleted(txCtx, id); err != nil {
			return err
		}
		if err := s.DeletionLogRepo.MarkRestored(txCtx, entityType, id, actor); err != nil {
			return err
		}
		restored = 1

		if !req.GetCascade() {
			return nil
		}

		// Ledger entries come back in deletion order; parents were deleted
		// before their children, so replaying in that order never leaves a
		// live child under a deleted parent
		members, err := s.DeletionLogRepo.ListByCascade(txCtx, entry.CascadeID, entry.ID)
		if err != nil {
			return err
		}
		for _, member := range members {
			if !member.IsActive() {
				continue
			}
			memberStore, err := s.EntityStores.ForType(member.EntityType)
			if err != nil {
				return err
			}
			if err := memberStore.ClearDeleted(txCtx, member.EntityID); err != nil {
				return err
			}
			if err := s.DeletionLogRepo.MarkRestored(txCtx, member.EntityType, member.EntityID, actor); err != nil {
				return err
			}
			restored++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("restored entity cascade",
		"entity_type", entityType,
		"entity_id", id,
		"cascade_id", entry.CascadeID,
		"restored_count", restored,
	)

	return &dto.RestoreResponse{RestoredCount: restored}, nil
}

// checkParentLive rejects restoring a child whose declared parent is itself
// soft-deleted or gone, which would leave a live entity owned by a dead one
func (s *deletionService) checkParentLive(ctx context.Context, entityType types.EntityType, record *entity.Record) error {
	parentType := entityType.ParentType()
	if parentType == "" || record.ParentID == "" {
		return nil
	}

	parentStore, err := s.EntityStores.ForType(parentType)
	if err != nil {
		return err
	}
	parent, err := parentStore.Get(ctx, record.ParentID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewError("parent entity no longer exists").
				WithHintf("The owning %s was permanently deleted; this %s cannot be restored", parentType, entityType).
				Mark(ierr.ErrInvalidOperation)
		}
		return err
	}
	if parent.IsDeleted() {
		return ierr.NewError("parent entity is still deleted").
			WithHintf("The owning %s '%s' is still deleted — restore the parent first", parentType, parent.Name).
			WithReportableDetails(map[string]any{
				"parent_type": parentType,
				"parent_id":   parent.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (s *deletionService) PreviewDelete(ctx context.Context, entityType types.EntityType, id string) (*dto.PreviewDeleteResponse, error) {
	if err := entityType.Validate(); err != nil {
		return nil, err
	}

	role := types.HighestRole(types.GetRoles(ctx))
	if !types.CanDelete(role, entityType) {
		return nil, ierr.NewError("insufficient role for delete").
			WithHintf("Your role does not permit deleting entities of type '%s'", entityType).
			Mark(ierr.ErrPermissionDenied)
	}

	store, err := s.EntityStores.ForType(entityType)
	if err != nil {
		return nil, err
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.IsDeleted() {
		return nil, ierr.NewError("entity is already deleted").
			WithHintf("The %s '%s' is already soft-deleted", entityType, record.Name).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := s.authorizeScope(ctx, entityType, record.CompanyID); err != nil {
		return nil, err
	}

	// Same worklist walk as the delete executor, mutating nothing
	countByType := map[types.EntityType]int{}
	total := 1
	queue := []deleteWorkItem{{entityType: entityType, record: record}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		for _, childType := range item.entityType.CascadeChildren() {
			childStore, err := s.EntityStores.ForType(childType)
			if err != nil {
				return nil, err
			}
			children, err := childStore.ListLiveByParent(ctx, childType.ParentLinkColumn(), item.record.ID)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				countByType[childType]++
				total++
				queue = append(queue, deleteWorkItem{entityType: childType, record: child})
			}
		}
	}

	var warnings []string
	if total > largeCascadeWarnThreshold {
		warnings = append(warnings, "large cascade: the delete transaction may hold row locks for a noticeable time")
	}
	if entityType.HasPersonalData() || lo.SomeBy(lo.Keys(countByType), func(t types.EntityType) bool { return t.HasPersonalData() }) {
		warnings = append(warnings, "cascade includes personal data records subject to compliance deletion")
	}

	return &dto.PreviewDeleteResponse{
		EntityName:         record.Name,
		CascadeCountByType: countByType,
		TotalAffected:      total,
		Warnings:           warnings,
	}, nil
}

func (s *deletionService) ListDeleted(ctx context.Context, filter *types.DeletionLogFilter) (*dto.ListDeletionsResponse, error) {
	if filter == nil {
		filter = &types.DeletionLogFilter{}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// Organization-scoped callers see the whole tenant; everyone else only
	// the companies their scope covers
	orgScoped, err := s.Scope.IsOrgScoped(ctx)
	if err != nil {
		return nil, err
	}
	if !orgScoped {
		companyIDs, err := s.Scope.AccessibleCompanyIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(companyIDs) == 0 {
			resp := types.NewListResponse([]*dto.DeletionLogResponse{}, 0, filter.GetLimit(), filter.GetOffset())
			return &resp, nil
		}
		filter.CompanyIDs = companyIDs
	}

	entries, err := s.DeletionLogRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.DeletionLogRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(entries, func(e *deletion.LogEntry, _ int) *dto.DeletionLogResponse {
		return &dto.DeletionLogResponse{LogEntry: e}
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *deletionService) GetDeletionDetails(ctx context.Context, entityType types.EntityType, id string) (*dto.DeletionDetailsResponse, error) {
	if err := entityType.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.DeletionLogRepo.FindActiveByEntity(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeScope(ctx, entityType, entry.CompanyID); err != nil {
		return nil, err
	}

	members, err := s.DeletionLogRepo.ListByCascade(ctx, entry.CascadeID, entry.ID)
	if err != nil {
		return nil, err
	}

	return &dto.DeletionDetailsResponse{
		DeletionLogResponse: &dto.DeletionLogResponse{LogEntry: entry},
		CascadeRecords: lo.Map(members, func(e *deletion.LogEntry, _ int) *dto.DeletionLogResponse {
			return &dto.DeletionLogResponse{LogEntry: e}
		}),
		RetentionDays: entityType.RetentionDays(),
		ExpiresAt:     entry.ExpiresAt(),
	}, nil
}
