package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// EscalationSweeper escalates high-priority breached trackings that
// nobody has picked up within the grace period. Runs at a lower
// frequency than the main sweep, serialized independently.
type EscalationSweeper struct {
	trackings repository.TrackingRepository
	tracker   *sla.Tracker
	grace     time.Duration
	logger    *zap.Logger
}

// NewEscalationSweeper constructs the sweeper.
func NewEscalationSweeper(trackings repository.TrackingRepository, tracker *sla.Tracker, grace time.Duration, logger *zap.Logger) *EscalationSweeper {
	return &EscalationSweeper{trackings: trackings, tracker: tracker, grace: grace, logger: logger}
}

// Run executes one escalation tick.
func (s *EscalationSweeper) Run(ctx context.Context) error {
	items, err := s.trackings.ListEscalatable(ctx)
	if err != nil {
		s.logger.Error("escalation sweep: listing failed", zap.Error(err))
		return err
	}

	for _, item := range items {
		if err := s.tracker.EvaluateEscalation(ctx, item, s.grace); err != nil {
			s.logger.Warn("escalation sweep: evaluation failed",
				zap.String("ticket_id", item.Tracking.TicketID),
				zap.Error(err))
		}
	}
	return nil
}
