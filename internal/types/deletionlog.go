package types

import (
	"time"

	ierr "github.com/vendra/vendra/internal/errors"
)

// PurgeReason records why a ledger entry reached its terminal purged state
type PurgeReason string

const (
	// PurgeReasonRetentionExpired is set by the retention sweep once the
	// type's retention window has elapsed
	PurgeReasonRetentionExpired PurgeReason = "RETENTION_EXPIRED"
	// PurgeReasonGDPRRequest is an operator-triggered compliance deletion
	PurgeReasonGDPRRequest PurgeReason = "GDPR_REQUEST"
	// PurgeReasonAdminRequest is an operator-triggered permanent deletion
	PurgeReasonAdminRequest PurgeReason = "ADMIN_REQUEST"
)

func (r PurgeReason) Validate() error {
	switch r {
	case PurgeReasonRetentionExpired, PurgeReasonGDPRRequest, PurgeReasonAdminRequest:
		return nil
	default:
		return ierr.NewError("invalid purge reason").
			WithHintf("Reason must be one of RETENTION_EXPIRED, GDPR_REQUEST, ADMIN_REQUEST, got '%s'", r).
			Mark(ierr.ErrValidation)
	}
}

const (
	DeletionLogDefaultLimit = 50
	DeletionLogMaxLimit     = 1000
)

// DeletionLogFilter narrows a scoped ledger listing
type DeletionLogFilter struct {
	EntityType    *EntityType `json:"entity_type,omitempty" form:"entity_type"`
	Search        *string     `json:"search,omitempty" form:"search"`
	DeletedAfter  *time.Time  `json:"deleted_after,omitempty" form:"deleted_after" time_format:"2006-01-02T15:04:05Z07:00"`
	DeletedBefore *time.Time  `json:"deleted_before,omitempty" form:"deleted_before" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int         `json:"limit,omitempty" form:"limit"`
	Offset        int         `json:"offset,omitempty" form:"offset"`

	// CompanyIDs is resolved from the caller's scope by the service layer,
	// never bound from the request
	CompanyIDs []string `json:"-" form:"-"`
}

func (f *DeletionLogFilter) Validate() error {
	if f.EntityType != nil {
		if err := f.EntityType.Validate(); err != nil {
			return err
		}
	}
	if f.Limit < 0 || f.Limit > DeletionLogMaxLimit {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 0 and %d", DeletionLogMaxLimit).
			Mark(ierr.ErrValidation)
	}
	if f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	if f.DeletedAfter != nil && f.DeletedBefore != nil && f.DeletedBefore.Before(*f.DeletedAfter) {
		return ierr.NewError("invalid deletion window").
			WithHint("deleted_before must not precede deleted_after").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLimit returns the effective page size
func (f *DeletionLogFilter) GetLimit() int {
	if f == nil || f.Limit == 0 {
		return DeletionLogDefaultLimit
	}
	return f.Limit
}

// GetOffset returns the effective page offset
func (f *DeletionLogFilter) GetOffset() int {
	if f == nil {
		return 0
	}
	return f.Offset
}
