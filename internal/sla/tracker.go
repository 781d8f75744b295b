package sla

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/notify"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// IntentSink accepts notification intents for queued dispatch.
type IntentSink interface {
	Enqueue(ctx context.Context, intent notify.Intent) error
}

// Tracker owns the lifecycle of SLA tracking records: creation on
// applicable tickets, pause/resume on status changes, and the
// warning/breach transitions driven by the sweep.
type Tracker struct {
	trackings  repository.TrackingRepository
	contracts  repository.ContractRepository
	tickets    repository.TicketRepository
	resolver   *Resolver
	intents    IntentSink
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TrackerDependencies bundles collaborators for the tracker.
type TrackerDependencies struct {
	TrackingRepo repository.TrackingRepository
	ContractRepo repository.ContractRepository
	TicketRepo   repository.TicketRepository
	Intents      IntentSink
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewTracker constructs the tracker.
func NewTracker(deps TrackerDependencies) *Tracker {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		trackings:  deps.TrackingRepo,
		contracts:  deps.ContractRepo,
		tickets:    deps.TicketRepo,
		resolver:   NewResolver(deps.ContractRepo),
		intents:    deps.Intents,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// HandleTicketCreated creates a tracking when the ticket's contract and
// priority make SLA applicable. Returns (nil, nil) when the ticket is
// simply not tracked.
func (t *Tracker) HandleTicketCreated(ctx context.Context, evt domain.TicketCreatedEvent) (*domain.Tracking, error) {
	applicable, err := t.resolver.IsApplicable(ctx, evt.ContractID, evt.Priority)
	if err != nil {
		return nil, err
	}
	if !applicable {
		return nil, nil
	}

	contract, err := t.contracts.GetByID(ctx, *evt.ContractID)
	if err != nil {
		return nil, err
	}
	target, ok := contract.TargetFor(evt.Priority)
	if !ok {
		return nil, nil
	}

	calendar := CalendarFromContract(contract, t.logger)
	responseDeadline, misconfigured := DeadlineChecked(evt.CreatedAt, target.ResponseMinutes, calendar)
	resolutionDeadline, misconfigured2 := DeadlineChecked(evt.CreatedAt, target.ResolutionMinutes, calendar)
	if misconfigured || misconfigured2 {
		t.logger.Warn("contract calendar has no working day within lookahead, fell back to 24h steps",
			zap.String("contract_id", contract.ID),
			zap.String("ticket_id", evt.TicketID))
	}

	tracking := domain.NewTracking(evt.TicketID, evt.TenantID, responseDeadline, resolutionDeadline)
	if err := t.trackings.Create(ctx, tracking); err != nil {
		return nil, err
	}

	t.publish(ctx, events.Event{
		Type:     events.EventTrackingCreated,
		TicketID: evt.TicketID,
		Payload: events.TrackingCreatedPayload{
			Priority:           evt.Priority,
			ResponseDeadline:   responseDeadline,
			ResolutionDeadline: resolutionDeadline,
		},
	})
	return tracking, nil
}

// HandleStatusChanged applies pause/resume synchronously with the
// owning ticket's status transition, strictly before any later sweep
// tick observes the new state.
func (t *Tracker) HandleStatusChanged(ctx context.Context, evt domain.TicketStatusChangedEvent) error {
	tracking, err := t.trackings.GetByTicket(ctx, evt.TicketID)
	if err != nil {
		if util.IsNotFound(err) {
			return nil
		}
		return err
	}

	ticket, err := t.tickets.GetByID(ctx, evt.TicketID)
	if err != nil {
		return err
	}
	if ticket.ContractID == nil {
		return nil
	}
	contract, err := t.contracts.GetByID(ctx, *ticket.ContractID)
	if err != nil {
		return err
	}

	if evt.NewStatus.IsTerminal() {
		// tracking is frozen from here on; the sweep excludes it
		return nil
	}

	if contract.PausesOn(evt.NewStatus) {
		if !tracking.Pause(evt.OccurredAt) {
			return nil
		}
		if err := t.trackings.Update(ctx, tracking); err != nil {
			return err
		}
		t.publish(ctx, events.Event{
			Type:     events.EventSLAPaused,
			TicketID: evt.TicketID,
			Payload:  events.PausePayload{Status: evt.NewStatus},
		})
		return nil
	}

	if tracking.Paused() {
		added := tracking.Resume(evt.OccurredAt)
		if err := t.trackings.Update(ctx, tracking); err != nil {
			return err
		}
		t.publish(ctx, events.Event{
			Type:     events.EventSLAResumed,
			TicketID: evt.TicketID,
			Payload:  events.PausePayload{Status: evt.NewStatus, PausedMinutes: added},
		})
	}
	return nil
}

// MarkResponded records the first response, permanently exiting the
// response lane. Later calls are no-ops.
func (t *Tracker) MarkResponded(ctx context.Context, ticketID string, at time.Time) error {
	tracking, err := t.trackings.GetByTicket(ctx, ticketID)
	if err != nil {
		if util.IsNotFound(err) {
			return nil
		}
		return err
	}
	if tracking.RespondedAt != nil {
		return nil
	}
	responded := at
	tracking.RespondedAt = &responded
	return t.trackings.Update(ctx, tracking)
}

type laneFinding struct {
	lane     domain.Lane
	kind     notify.Kind
	event    events.EventType
	deadline time.Time
}

// Evaluate runs one warning/breach tick for a single tracking. Intents
// and audit events are emitted only after the versioned update commits,
// so a lost race emits nothing and the next tick retries.
func (t *Tracker) Evaluate(ctx context.Context, item repository.ActiveTracking) error {
	tracking := item.Tracking
	ticket := item.Ticket
	if ticket.Status.IsTerminal() || ticket.ContractID == nil {
		return nil
	}

	contract, err := t.contracts.GetByID(ctx, *ticket.ContractID)
	if err != nil {
		return util.NewTransient("load contract", err)
	}

	now := t.now()
	threshold := contract.EffectiveWarningThreshold()
	var findings []laneFinding

	for _, lane := range []domain.Lane{domain.LaneResponse, domain.LaneResolution} {
		// once responded, the response lane is done for good
		if lane == domain.LaneResponse && tracking.RespondedAt != nil {
			continue
		}
		deadline := tracking.Deadline(lane)

		// warning pressure stops accruing while paused
		effectiveNow := now
		if tracking.PausedAt != nil {
			effectiveNow = *tracking.PausedAt
		}
		if elapsedRatio(ticket.CreatedAt, deadline, effectiveNow) >= threshold && tracking.MarkWarned(lane) {
			findings = append(findings, laneFinding{
				lane:     lane,
				kind:     warningKind(lane),
				event:    events.EventSLAWarning,
				deadline: deadline,
			})
		}

		// breach is always judged on the wall clock: pausing at the
		// deadline does not dodge a breach that already happened
		if now.After(deadline) && tracking.MarkBreached(lane) {
			findings = append(findings, laneFinding{
				lane:     lane,
				kind:     breachKind(lane),
				event:    events.EventSLABreach,
				deadline: deadline,
			})
		}
	}

	if len(findings) == 0 {
		return nil
	}

	if err := t.trackings.Update(ctx, &tracking); err != nil {
		return err
	}

	for _, finding := range findings {
		t.emit(ctx, ticket, finding)
	}
	return nil
}

// EvaluateEscalation escalates an unattended high-priority breached
// tracking once. Attended means assigned or responded.
func (t *Tracker) EvaluateEscalation(ctx context.Context, item repository.ActiveTracking, grace time.Duration) error {
	tracking := item.Tracking
	ticket := item.Ticket
	if tracking.EscalatedAt != nil {
		return nil
	}
	if ticket.AssigneeID != nil || tracking.RespondedAt != nil {
		return nil
	}

	lane := domain.LaneResolution
	if tracking.BreachResponse {
		lane = domain.LaneResponse
	}
	now := t.now()
	if !now.After(tracking.Deadline(lane).Add(grace)) {
		return nil
	}

	escalated := now
	tracking.EscalatedAt = &escalated
	if err := t.trackings.Update(ctx, &tracking); err != nil {
		return err
	}

	deadline := tracking.Deadline(lane)
	if err := t.intents.Enqueue(ctx, notify.Intent{
		Kind:       notify.KindEscalation,
		TicketID:   ticket.ID,
		TenantID:   ticket.TenantID,
		Priority:   ticket.Priority,
		Deadline:   &deadline,
		OccurredAt: now,
	}); err != nil {
		t.logger.Warn("escalation intent enqueue failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	t.publish(ctx, events.Event{
		Type:     events.EventSLAEscalated,
		TicketID: ticket.ID,
		Payload:  events.EscalationPayload{Priority: ticket.Priority, BreachedLane: lane},
	})
	return nil
}

func (t *Tracker) emit(ctx context.Context, ticket domain.Ticket, finding laneFinding) {
	deadline := finding.deadline
	if err := t.intents.Enqueue(ctx, notify.Intent{
		Kind:       finding.kind,
		TicketID:   ticket.ID,
		TenantID:   ticket.TenantID,
		Priority:   ticket.Priority,
		Deadline:   &deadline,
		OccurredAt: t.now(),
	}); err != nil {
		// delivery retry handles transient queue trouble later; the
		// flag is already committed, so never fail the sweep here
		t.logger.Warn("intent enqueue failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("kind", string(finding.kind)),
			zap.Error(err))
	}
	t.publish(ctx, events.Event{
		Type:     finding.event,
		TicketID: ticket.ID,
		Payload: events.LanePayload{
			Lane:     finding.lane,
			Deadline: finding.deadline,
			Priority: ticket.Priority,
		},
	})
}

func (t *Tracker) publish(ctx context.Context, event events.Event) {
	if t.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.now()
	}
	_ = t.dispatcher.Publish(ctx, event)
}

// elapsedRatio returns elapsed time over total allotted time. A
// degenerate window (deadline at or before creation) counts as fully
// elapsed rather than dividing by zero.
func elapsedRatio(createdAt, deadline, effectiveNow time.Time) float64 {
	total := deadline.Sub(createdAt)
	if total <= 0 {
		return 1
	}
	return float64(effectiveNow.Sub(createdAt)) / float64(total)
}

func warningKind(lane domain.Lane) notify.Kind {
	if lane == domain.LaneResponse {
		return notify.KindWarningResponse
	}
	return notify.KindWarningResolution
}

func breachKind(lane domain.Lane) notify.Kind {
	if lane == domain.LaneResponse {
		return notify.KindBreachResponse
	}
	return notify.KindBreachResolution
}
