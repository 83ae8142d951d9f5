package service

import (
	"context"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/domain/deletion"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/types"
)

// ComplianceService removes soft-deleted entities for good, either by
// anonymizing personal data in place or by hard-deleting the whole cascade.
type ComplianceService interface {
	PermanentlyDelete(ctx context.Context, entityType types.EntityType, id string, req dto.PermanentDeleteRequest) (*dto.PermanentDeleteResponse, error)
}

type complianceService struct {
	ServiceParams
}

func NewComplianceService(params ServiceParams) ComplianceService {
	return &complianceService{
		ServiceParams: params,
	}
}

func (s *complianceService) PermanentlyDelete(ctx context.Context, entityType types.EntityType, id string, req dto.PermanentDeleteRequest) (*dto.PermanentDeleteResponse, error) {
	if err := entityType.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	role := types.HighestRole(types.GetRoles(ctx))
	if !types.CanPermanentlyDelete(role, entityType) {
		return nil, ierr.NewError("insufficient role for permanent delete").
			WithHint("Permanent deletion is restricted to owners").
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
		return nil, ierr.NewError("entity is not soft-deleted").
			WithHintf("The %s '%s' is live; soft-delete it before deleting it permanently", entityType, record.Name).
			Mark(ierr.ErrInvalidOperation)
	}

	entry, err := s.DeletionLogRepo.FindActiveByEntity(ctx, entityType, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("entity is already purged").
				WithHint("Purge is terminal; there is nothing left to delete").
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, err
	}

	if err := s.authorizeScope(ctx, entityType, record.CompanyID); err != nil {
		return nil, err
	}

	// GDPR erasure of a personal-data record keeps the row for referential
	// integrity and scrubs the identifying columns instead of dropping it
	if req.Reason == types.PurgeReasonGDPRRequest && entityType.HasPersonalData() {
		err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
			if err := store.Anonymize(txCtx, id); err != nil {
				return err
			}
			return s.DeletionLogRepo.MarkPurged(txCtx, entityType, id, req.Reason)
		})
		if err != nil {
			return nil, err
		}

		s.Logger.Infow("anonymized entity for compliance",
			"entity_type", entityType,
			"entity_id", id,
			"reason", req.Reason,
		)
		return &dto.PermanentDeleteResponse{
			EntityType:  entityType,
			EntityID:    id,
			Anonymized:  true,
			PurgedCount: 1,
		}, nil
	}

	purged, err := s.hardDeleteCascade(ctx, entityType, id, entry, req.Reason)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("permanently deleted entity cascade",
		"entity_type", entityType,
		"entity_id", id,
		"cascade_id", entry.CascadeID,
		"purged_count", purged,
		"reason", req.Reason,
	)

	return &dto.PermanentDeleteResponse{
		EntityType:  entityType,
		EntityID:    id,
		PurgedCount: purged,
	}, nil
}

// hardDeleteCascade removes the cascade members children-first, each in its
// own transaction so one bad row does not roll back rows already purged.
// The root goes last and only when every member went through, otherwise its
// children would be orphaned on a retry.
func (s *complianceService) hardDeleteCascade(ctx context.Context, entityType types.EntityType, id string, entry *deletion.LogEntry, reason types.PurgeReason) (int, error) {
	members, err := s.DeletionLogRepo.ListByCascade(ctx, entry.CascadeID, entry.ID)
	if err != nil {
		return 0, err
	}

	purged := 0
	failed := 0
	for i := len(members) - 1; i >= 0; i-- {
		member := members[i]
		if !member.IsActive() {
			continue
		}
		if err := s.purgeOne(ctx, member.EntityType, member.EntityID, reason); err != nil {
			failed++
			s.Logger.Errorw("failed to purge cascade member",
				"entity_type", member.EntityType,
				"entity_id", member.EntityID,
				"cascade_id", entry.CascadeID,
				"error", err,
			)
			continue
		}
		purged++
	}

	if failed > 0 {
		return purged, ierr.NewError("cascade purge incomplete").
			WithHintf("%d cascade member(s) could not be purged; the root entity was left in place for retry", failed).
			WithReportableDetails(map[string]any{
				"cascade_id":   entry.CascadeID,
				"purged_count": purged,
				"failed_count": failed,
			}).
			Mark(ierr.ErrDatabase)
	}

	if err := s.purgeOne(ctx, entityType, id, reason); err != nil {
		return purged, err
	}
	return purged + 1, nil
}

func (s *complianceService) purgeOne(ctx context.Context, entityType types.EntityType, id string, reason types.PurgeReason) error {
	store, err := s.EntityStores.ForType(entityType)
	if err != nil {
		return err
	}
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := store.HardDelete(txCtx, id); err != nil {
			return err
		}
		return s.DeletionLogRepo.MarkPurged(txCtx, entityType, id, reason)
	})
}
