package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/scheduler"
)

// RetentionHandler exposes the retention sweep as a cron endpoint so an
// external scheduler can drive it in deployments without the internal ticker
type RetentionHandler struct {
	scheduler *scheduler.RetentionScheduler
	logger    *logger.Logger
}

func NewRetentionHandler(
	scheduler *scheduler.RetentionScheduler,
	logger *logger.Logger,
) *RetentionHandler {
	return &RetentionHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// @Summary Purge expired deletions
// @Description Hard-delete every soft-deleted entity whose retention window has elapsed
// @Tags Cron
// @Accept json
// @Produce json
// @Success 200 {object} dto.PurgeExpiredResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /cron/retention/purge [post]
func (h *RetentionHandler) PurgeExpired(c *gin.Context) {
	h.logger.Infow("starting retention purge cron job")

	response, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Errorw("retention purge cron job failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed retention purge cron job", "purged_total", response.Total)
	c.JSON(http.StatusOK, response)
}
