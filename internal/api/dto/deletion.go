package dto

import (
	"time"

	"github.com/vendra/vendra/internal/domain/deletion"
	"github.com/vendra/vendra/internal/types"
	"github.com/vendra/vendra/internal/validator"
)

type SoftDeleteRequest struct {
	// Reason is optional operator-provided context recorded in the ledger
	Reason string `json:"reason" validate:"omitempty,max=500"`

	// Cascade defaults to true: the whole ownership subtree is deleted
	Cascade *bool `json:"cascade"`
}

func (r *SoftDeleteRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *SoftDeleteRequest) GetCascade() bool {
	if r.Cascade == nil {
		return true
	}
	return *r.Cascade
}

type SoftDeleteResponse struct {
	CascadeID     string `json:"cascade_id"`
	AffectedCount int    `json:"affected_count"`
}

type RestoreRequest struct {
	// Cascade defaults to true: every cascade member deleted with this
	// entity is restored along with it
	Cascade *bool `json:"cascade"`
}

func (r *RestoreRequest) GetCascade() bool {
	if r.Cascade == nil {
		return true
	}
	return *r.Cascade
}

type RestoreResponse struct {
	RestoredCount int `json:"restored_count"`
}

type PreviewDeleteResponse struct {
	EntityName         string                   `json:"entity_name"`
	CascadeCountByType map[types.EntityType]int `json:"cascade_count_by_type"`
	TotalAffected      int                      `json:"total_affected"`
	Warnings           []string                 `json:"warnings,omitempty"`
}

type DeletionLogResponse struct {
	*deletion.LogEntry
}

// ListDeletionsResponse represents the response for listing deleted entities
type ListDeletionsResponse = types.ListResponse[*DeletionLogResponse]

type DeletionDetailsResponse struct {
	*DeletionLogResponse

	// CascadeRecords are the other ledger entries sharing the cascade
	CascadeRecords []*DeletionLogResponse `json:"cascade_records"`

	RetentionDays int       `json:"retention_days"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type PermanentDeleteRequest struct {
	Reason types.PurgeReason `json:"reason" validate:"required"`
}

func (r *PermanentDeleteRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Reason.Validate()
}

type PermanentDeleteResponse struct {
	EntityType types.EntityType `json:"entity_type"`
	EntityID   string           `json:"entity_id"`

	// Anonymized is true when the row was redacted in place instead of
	// hard-deleted
	Anonymized bool `json:"anonymized"`

	// PurgedCount is the number of ledger entries finalized, cascade
	// members included
	PurgedCount int `json:"purged_count"`
}

type PurgeExpiredResponse struct {
	PurgedCountByType map[types.EntityType]int `json:"purged_count_by_type"`
	Total             int                      `json:"total"`
}
