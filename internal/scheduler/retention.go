package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vendra/vendra/internal/api/dto"
	"github.com/vendra/vendra/internal/config"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/service"
	"github.com/vendra/vendra/internal/types"
)

// RetentionScheduler drives the periodic retention sweep. At most one sweep
// runs at a time; the cron endpoint and the ticker share the same guard.
type RetentionScheduler struct {
	retention service.RetentionService
	cfg       *config.Configuration
	logger    *logger.Logger

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func NewRetentionScheduler(retention service.RetentionService, cfg *config.Configuration, logger *logger.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		retention: retention,
		cfg:       cfg,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called.
func (s *RetentionScheduler) Start() {
	interval := s.cfg.Retention.SweepInterval()
	s.logger.Infow("starting retention scheduler", "interval", interval)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.RunOnce(context.Background()); err != nil {
					if ierr.IsConflict(err) {
						s.logger.Warnw("skipping scheduled sweep, previous sweep still running")
						continue
					}
					s.logger.Errorw("scheduled retention sweep failed", "error", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop shuts the loop down and waits for it to exit. A sweep already in
// flight finishes on its own.
func (s *RetentionScheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Infow("retention scheduler stopped")
}

// RunOnce executes a single sweep, rejecting overlap with a conflict error
func (s *RetentionScheduler) RunOnce(ctx context.Context) (*dto.PurgeExpiredResponse, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ierr.NewError("retention sweep already running").
			WithHint("A retention sweep is in progress; try again once it finishes").
			Mark(ierr.ErrConflict)
	}
	defer s.running.Store(false)

	sweepCtx := types.SetUserID(ctx, types.DefaultUserID)
	return s.retention.PurgeExpired(sweepCtx)
}
