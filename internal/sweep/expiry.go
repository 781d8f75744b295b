package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/notify"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// ExpirySweeper warns about contracts approaching their end date, at
// most once per contract per day.
type ExpirySweeper struct {
	contracts  repository.ContractRepository
	intents    sweepIntentSink
	dispatcher events.Dispatcher
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

type sweepIntentSink interface {
	Enqueue(ctx context.Context, intent notify.Intent) error
}

// NewExpirySweeper constructs the sweeper. warningDays is how far ahead
// of the end date warnings begin.
func NewExpirySweeper(contracts repository.ContractRepository, intents sweepIntentSink, dispatcher events.Dispatcher, warningDays int, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		contracts:  contracts,
		intents:    intents,
		dispatcher: dispatcher,
		window:     time.Duration(warningDays) * 24 * time.Hour,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one expiry tick.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	now := s.now()
	contracts, err := s.contracts.ListExpiring(ctx, now.Add(s.window))
	if err != nil {
		s.logger.Error("expiry sweep: listing failed", zap.Error(err))
		return err
	}

	for _, contract := range contracts {
		if contract.EndDate == nil {
			continue
		}
		if contract.ExpiryNotifiedAt != nil && sameDay(*contract.ExpiryNotifiedAt, now) {
			continue
		}
		if err := s.intents.Enqueue(ctx, notify.Intent{
			Kind:       notify.KindContractExpiry,
			ContractID: contract.ID,
			TenantID:   contract.TenantID,
			OccurredAt: now,
		}); err != nil {
			s.logger.Warn("expiry sweep: intent enqueue failed",
				zap.String("contract_id", contract.ID), zap.Error(err))
			continue
		}
		if err := s.contracts.MarkExpiryNotified(ctx, contract.ID, now); err != nil {
			s.logger.Warn("expiry sweep: marking notified failed",
				zap.String("contract_id", contract.ID), zap.Error(err))
			continue
		}
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventContractExpiring,
				Timestamp: now,
				Payload: events.ContractExpiringPayload{
					ContractID: contract.ID,
					EndDate:    *contract.EndDate,
				},
			})
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
