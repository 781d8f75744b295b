package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers one intent. The real transport (mail, chat, etc.)
// lives outside this engine; implementations plug in here.
type Notifier interface {
	Send(ctx context.Context, intent Intent) error
}

// LoggingNotifier is the default stand-in delivery target: it only logs.
type LoggingNotifier struct {
	Logger *zap.Logger
}

// Send logs the intent.
func (n *LoggingNotifier) Send(ctx context.Context, intent Intent) error {
	n.Logger.Info("notification intent delivered",
		zap.String("intent_id", intent.ID),
		zap.String("kind", string(intent.Kind)),
		zap.String("ticket_id", intent.TicketID),
		zap.String("tenant_id", intent.TenantID))
	return nil
}

// DeliveryWorker drains due intents from the queue and hands them to
// the Notifier, applying the retry policy carried on each intent. A
// delivery failure never propagates back into the sweeps.
type DeliveryWorker struct {
	queue    Queue
	notifier Notifier
	logger   *zap.Logger
	poll     time.Duration
	now      func() time.Time
}

// NewDeliveryWorker constructs the worker.
func NewDeliveryWorker(queue Queue, notifier Notifier, poll time.Duration, logger *zap.Logger) *DeliveryWorker {
	if poll <= 0 {
		poll = time.Second
	}
	return &DeliveryWorker{queue: queue, notifier: notifier, logger: logger, poll: poll, now: time.Now}
}

// Start runs the polling loop until the context is cancelled.
func (w *DeliveryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes every currently-due intent.
func (w *DeliveryWorker) Drain(ctx context.Context) {
	for {
		processed, err := w.ProcessOne(ctx, w.now())
		if err != nil {
			w.logger.Warn("queue poll failed", zap.Error(err))
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessOne pops and delivers a single due intent. It reports whether
// an intent was available.
func (w *DeliveryWorker) ProcessOne(ctx context.Context, now time.Time) (bool, error) {
	intent, err := w.queue.Due(ctx, now)
	if err != nil {
		return false, err
	}
	if intent == nil {
		return false, nil
	}

	sendErr := w.notifier.Send(ctx, *intent)
	if sendErr == nil {
		return true, nil
	}

	intent.Attempt++
	if intent.Attempt >= intent.MaxAttempts {
		w.logger.Error("notification permanently failed",
			zap.String("intent_id", intent.ID),
			zap.String("kind", string(intent.Kind)),
			zap.String("ticket_id", intent.TicketID),
			zap.Int("attempts", intent.Attempt),
			zap.Error(sendErr))
		return true, w.queue.Bury(ctx, *intent)
	}
	delay := intent.NextDelay()
	w.logger.Warn("notification delivery failed, retrying",
		zap.String("intent_id", intent.ID),
		zap.Int("attempt", intent.Attempt),
		zap.Duration("retry_in", delay),
		zap.Error(sendErr))
	return true, w.queue.Requeue(ctx, *intent, now.Add(delay))
}
