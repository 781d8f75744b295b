// Package sweep contains the recurring jobs that drive SLA state
// forward: the main warning/breach sweep, the auto-escalation sweep,
// and the contract-expiry sweep.
package sweep

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// Sweeper re-evaluates every active tracking on each tick. One tracking
// failing never aborts the batch: the failure is logged and the flags
// stay unset, so the next tick retries it.
type Sweeper struct {
	trackings repository.TrackingRepository
	tracker   *sla.Tracker
	logger    *zap.Logger
}

// NewSweeper constructs the sweeper.
func NewSweeper(trackings repository.TrackingRepository, tracker *sla.Tracker, logger *zap.Logger) *Sweeper {
	return &Sweeper{trackings: trackings, tracker: tracker, logger: logger}
}

// Run executes one sweep tick.
func (s *Sweeper) Run(ctx context.Context) error {
	items, err := s.trackings.ListActive(ctx)
	if err != nil {
		s.logger.Error("sla sweep: listing active trackings failed", zap.Error(err))
		return err
	}

	failures := 0
	for _, item := range items {
		if err := s.tracker.Evaluate(ctx, item); err != nil {
			failures++
			s.logger.Warn("sla sweep: tracking evaluation failed",
				zap.String("ticket_id", item.Tracking.TicketID),
				zap.Error(err))
		}
	}

	s.logger.Debug("sla sweep finished",
		zap.Int("evaluated", len(items)),
		zap.Int("failed", failures))
	return nil
}
