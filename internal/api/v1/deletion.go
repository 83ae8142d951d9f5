package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendra/vendra/internal/api/dto"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/service"
	"github.com/vendra/vendra/internal/types"
)

type DeletionHandler struct {
	service    service.DeletionService
	compliance service.ComplianceService
	log        *logger.Logger
}

func NewDeletionHandler(
	service service.DeletionService,
	compliance service.ComplianceService,
	log *logger.Logger,
) *DeletionHandler {
	return &DeletionHandler{
		service:    service,
		compliance: compliance,
		log:        log,
	}
}

// @Summary List deleted entities
// @Description List soft-deleted entities visible in the caller's scope
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param entity_type query string false "Entity type"
// @Param search query string false "Search in entity names"
// @Param deleted_after query string false "Lower bound on deletion time (RFC3339)"
// @Param deleted_before query string false "Upper bound on deletion time (RFC3339)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListDeletionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions [get]
func (h *DeletionHandler) ListDeleted(c *gin.Context) {
	var filter types.DeletionLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListDeleted(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Preview a delete
// @Description Compute the cascade a delete would cover without mutating anything
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Success 200 {object} dto.PreviewDeleteResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions/{type}/{id}/preview [get]
func (h *DeletionHandler) PreviewDelete(c *gin.Context) {
	entityType := types.EntityType(c.Param("type"))
	id := c.Param("id")

	resp, err := h.service.PreviewDelete(c.Request.Context(), entityType, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Soft-delete an entity
// @Description Soft-delete the entity and its ownership cascade
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param request body dto.SoftDeleteRequest false "Delete options"
// @Success 200 {object} dto.SoftDeleteResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions/{type}/{id} [post]
func (h *DeletionHandler) SoftDelete(c *gin.Context) {
	entityType := types.EntityType(c.Param("type"))
	id := c.Param("id")

	var req dto.SoftDeleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.SoftDelete(c.Request.Context(), entityType, id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Restore an entity
// @Description Restore a soft-deleted entity and its cascade
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param request body dto.RestoreRequest false "Restore options"
// @Success 200 {object} dto.RestoreResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions/{type}/{id}/restore [post]
func (h *DeletionHandler) Restore(c *gin.Context) {
	entityType := types.EntityType(c.Param("type"))
	id := c.Param("id")

	var req dto.RestoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.Restore(c.Request.Context(), entityType, id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get deletion details
// @Description Get the ledger entry, cascade members and retention deadline for a deleted entity
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Success 200 {object} dto.DeletionDetailsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions/{type}/{id} [get]
func (h *DeletionHandler) GetDeletionDetails(c *gin.Context) {
	entityType := types.EntityType(c.Param("type"))
	id := c.Param("id")

	resp, err := h.service.GetDeletionDetails(c.Request.Context(), entityType, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Permanently delete an entity
// @Description Hard-delete or anonymize a soft-deleted entity, bypassing its retention window
// @Tags Deletions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param request body dto.PermanentDeleteRequest true "Purge reason"
// @Success 200 {object} dto.PermanentDeleteResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /deletions/{type}/{id} [delete]
func (h *DeletionHandler) PermanentlyDelete(c *gin.Context) {
	entityType := types.EntityType(c.Param("type"))
	id := c.Param("id")

	var req dto.PermanentDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.compliance.PermanentlyDelete(c.Request.Context(), entityType, id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
