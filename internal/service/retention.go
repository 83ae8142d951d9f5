package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/types"
)

// RetentionService hard-deletes soft-deleted entities whose retention window
// has elapsed. It is invoked by the scheduler and by the cron endpoint.
type RetentionService interface {
	PurgeExpired(ctx context.Context) (*dto.PurgeExpiredResponse, error)
}

type retentionService struct {
	ServiceParams
}

func NewRetentionService(params ServiceParams) RetentionService {
	return &retentionService{
		ServiceParams: params,
	}
}

// PurgeExpired sweeps every soft-deletable type. Each expired entry is
// purged in its own transaction under the tenant it belongs to, so one
// failing row never blocks the rest of the sweep.
func (s *retentionService) PurgeExpired(ctx context.Context) (*dto.PurgeExpiredResponse, error) {
	now := time.Now().UTC()
	batchLimit := s.Config.Retention.BatchLimit

	countByType := make(map[types.EntityType]int)
	total := 0
	failed := 0

	// Children sweep before their parents so a parent whose FK-referencing
	// children expire in the same run is purgeable immediately
	sweepOrder := lo.Reverse(types.SoftDeletableTypes())

	for _, entityType := range sweepOrder {
		cutoff := now.AddDate(0, 0, -entityType.RetentionDays())
		entries, err := s.DeletionLogRepo.ListExpired(ctx, entityType, cutoff, batchLimit)
		if err != nil {
			s.Logger.Errorw("retention sweep failed to list expired entries",
				"entity_type", entityType,
				"error", err,
			)
			failed++
			continue
		}

		store, err := s.EntityStores.ForType(entityType)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			// The sweep runs outside any request, so each purge adopts the
			// tenant recorded on its ledger entry
			entryCtx := types.SetTenantID(ctx, entry.TenantID)
			err := s.DB.WithTx(entryCtx, func(txCtx context.Context) error {
				if err := store.HardDelete(txCtx, entry.EntityID); err != nil {
					return err
				}
				return s.DeletionLogRepo.MarkPurged(txCtx, entityType, entry.EntityID, types.PurgeReasonRetentionExpired)
			})
			if err != nil {
				failed++
				s.Logger.Errorw("failed to purge expired entity",
					"entity_type", entityType,
					"entity_id", entry.EntityID,
					"tenant_id", entry.TenantID,
					"error", err,
				)
				continue
			}
			countByType[entityType]++
			total++
		}
	}

	s.Logger.Infow("retention sweep finished",
		"purged_total", total,
		"failed_count", failed,
	)

	return &dto.PurgeExpiredResponse{
		PurgedCountByType: countByType,
		Total:             total,
	}, nil
}
