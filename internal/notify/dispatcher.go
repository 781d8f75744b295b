package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
)

// Dispatcher stamps intents with their retry policy and places them on
// the outbound queue. Warning/breach intents retry on a short backoff;
// escalation and contract-expiry intents use the longer base.
type Dispatcher struct {
	queue  Queue
	cfg    config.QueueConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(queue Queue, cfg config.QueueConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, cfg: cfg, logger: logger, now: time.Now}
}

// Enqueue queues an intent for immediate dispatch.
func (d *Dispatcher) Enqueue(ctx context.Context, intent Intent) error {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.OccurredAt.IsZero() {
		intent.OccurredAt = d.now()
	}
	intent.Attempt = 0

	switch intent.Kind {
	case KindEscalation, KindContractExpiry:
		intent.MaxAttempts = d.cfg.LongMaxAttempts
		intent.BackoffBase = d.cfg.LongBackoffBase
	default:
		intent.MaxAttempts = d.cfg.SLAMaxAttempts
		intent.BackoffBase = d.cfg.SLABackoffBase
	}

	if err := d.queue.Enqueue(ctx, intent, intent.OccurredAt); err != nil {
		return err
	}
	d.logger.Debug("intent enqueued",
		zap.String("intent_id", intent.ID),
		zap.String("kind", string(intent.Kind)),
		zap.String("ticket_id", intent.TicketID))
	return nil
}
