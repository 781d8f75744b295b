package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/notify"
	"github.com/spec-kit/sla-engine/internal/repository"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Set(t time.Time) { c.current = t }

type trackerFixture struct {
	trackings *repository.MemoryTrackingRepository
	contracts *repository.MemoryContractRepository
	tickets   *repository.MemoryTicketRepository
	queue     *notify.MemoryQueue
	bus       events.Dispatcher
	tracker   *Tracker
	clock     *fakeClock
}

// Monday, in a contract without business hours so deadline math is
// plain wall-clock arithmetic.
var monday9 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()

	contracts := repository.NewMemoryContractRepository()
	contracts.Put(&domain.Contract{
		ID:       "c-basic",
		TenantID: "tenant-1",
		Scope:    domain.PriorityScopeAll,
		Targets: map[domain.Priority]domain.SLATarget{
			domain.PriorityP1: {ResponseMinutes: 60, ResolutionMinutes: 240, Enabled: true},
		},
		WarningThreshold: 0.8,
		PausingStatuses:  []domain.TicketStatus{domain.TicketStatusPendingUser},
	})

	trackings := repository.NewMemoryTrackingRepository()
	tickets := repository.NewMemoryTicketRepository()
	queue := notify.NewMemoryQueue()
	dispatcher := notify.NewDispatcher(queue, config.QueueConfig{
		SLAMaxAttempts:  3,
		SLABackoffBase:  5 * time.Second,
		LongMaxAttempts: 3,
		LongBackoffBase: 15 * time.Second,
	}, zap.NewNop())
	bus := events.NewInMemoryDispatcher()
	clock := &fakeClock{current: monday9}

	tracker := NewTracker(TrackerDependencies{
		TrackingRepo: trackings,
		ContractRepo: contracts,
		TicketRepo:   tickets,
		Intents:      dispatcher,
		Dispatcher:   bus,
		Logger:       zap.NewNop(),
		Now:          clock.Now,
	})

	return &trackerFixture{
		trackings: trackings,
		contracts: contracts,
		tickets:   tickets,
		queue:     queue,
		bus:       bus,
		tracker:   tracker,
		clock:     clock,
	}
}

func (f *trackerFixture) createTicket(t *testing.T, id string) *domain.Tracking {
	t.Helper()
	contractID := "c-basic"
	ticket := &domain.Ticket{
		ID:         id,
		TenantID:   "tenant-1",
		ContractID: &contractID,
		Status:     domain.TicketStatusOpen,
		Priority:   domain.PriorityP1,
		CreatedAt:  monday9,
	}
	f.tickets.Put(ticket)
	f.trackings.PutTicket(ticket)
	tracking, err := f.tracker.HandleTicketCreated(context.Background(), domain.TicketCreatedEvent{
		TicketID:   id,
		TenantID:   "tenant-1",
		ContractID: &contractID,
		Priority:   domain.PriorityP1,
		CreatedAt:  monday9,
	})
	require.NoError(t, err)
	require.NotNil(t, tracking)
	return tracking
}

func (f *trackerFixture) activeItem(t *testing.T, ticketID string) repository.ActiveTracking {
	t.Helper()
	items, err := f.trackings.ListActive(context.Background())
	require.NoError(t, err)
	for _, item := range items {
		if item.Ticket.ID == ticketID {
			return item
		}
	}
	t.Fatalf("ticket %s not in active listing", ticketID)
	return repository.ActiveTracking{}
}

func TestHandleTicketCreatedComputesDeadlines(t *testing.T) {
	f := newTrackerFixture(t)

	tracking := f.createTicket(t, "t-1")

	assert.Equal(t, monday9.Add(60*time.Minute), tracking.ResponseDeadline)
	assert.Equal(t, monday9.Add(240*time.Minute), tracking.ResolutionDeadline)
	assert.Equal(t, domain.LaneActive, tracking.ResponseState)
	assert.Equal(t, domain.LaneActive, tracking.ResolutionState)

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, tracking.ResponseDeadline, stored.ResponseDeadline)
	assert.Equal(t, 1, stored.Version)
}

func TestHandleTicketCreatedSkipsNonApplicable(t *testing.T) {
	f := newTrackerFixture(t)

	// no contract attached
	tracking, err := f.tracker.HandleTicketCreated(context.Background(), domain.TicketCreatedEvent{
		TicketID:  "t-none",
		TenantID:  "tenant-1",
		Priority:  domain.PriorityP1,
		CreatedAt: monday9,
	})
	require.NoError(t, err)
	assert.Nil(t, tracking)

	// priority without a target entry
	contractID := "c-basic"
	tracking, err = f.tracker.HandleTicketCreated(context.Background(), domain.TicketCreatedEvent{
		TicketID:   "t-p3",
		TenantID:   "tenant-1",
		ContractID: &contractID,
		Priority:   domain.PriorityP3,
		CreatedAt:  monday9,
	})
	require.NoError(t, err)
	assert.Nil(t, tracking)

	_, err = f.trackings.GetByTicket(context.Background(), "t-p3")
	assert.Error(t, err)
}

func TestPauseIsIdempotent(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	pausedAt := monday9.Add(30 * time.Minute)
	evt := domain.TicketStatusChangedEvent{
		TicketID:   "t-1",
		OldStatus:  domain.TicketStatusOpen,
		NewStatus:  domain.TicketStatusPendingUser,
		OccurredAt: pausedAt,
	}
	require.NoError(t, f.tracker.HandleStatusChanged(context.Background(), evt))

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.PausedAt)
	assert.Equal(t, pausedAt, *stored.PausedAt)
	assert.Equal(t, 2, stored.Version)

	// second pausing transition keeps the original pause start
	evt.OccurredAt = monday9.Add(45 * time.Minute)
	require.NoError(t, f.tracker.HandleStatusChanged(context.Background(), evt))

	stored, err = f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, pausedAt, *stored.PausedAt)
	assert.Equal(t, 2, stored.Version)
}

func TestResumeExtendsBothDeadlines(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	var resumedPayload events.PausePayload
	f.bus.Subscribe(events.EventSLAResumed, func(ctx context.Context, evt events.Event) error {
		resumedPayload = evt.Payload.(events.PausePayload)
		return nil
	})

	require.NoError(t, f.tracker.HandleStatusChanged(context.Background(), domain.TicketStatusChangedEvent{
		TicketID:   "t-1",
		OldStatus:  domain.TicketStatusOpen,
		NewStatus:  domain.TicketStatusPendingUser,
		OccurredAt: monday9.Add(30 * time.Minute),
	}))
	require.NoError(t, f.tracker.HandleStatusChanged(context.Background(), domain.TicketStatusChangedEvent{
		TicketID:   "t-1",
		OldStatus:  domain.TicketStatusPendingUser,
		NewStatus:  domain.TicketStatusInProgress,
		OccurredAt: monday9.Add(210 * time.Minute),
	}))

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, stored.PausedAt)
	assert.Equal(t, 180, stored.PausedMinutes)
	assert.Equal(t, monday9.Add((60+180)*time.Minute), stored.ResponseDeadline)
	assert.Equal(t, monday9.Add((240+180)*time.Minute), stored.ResolutionDeadline)
	assert.Equal(t, 180, resumedPayload.PausedMinutes)
}

func TestEvaluateWarningOnce(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	// 50 of 60 minutes elapsed on the response lane, past the 0.8 ratio
	f.clock.Set(monday9.Add(50 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	assert.Equal(t, []notify.Kind{notify.KindWarningResponse}, f.queue.Kinds())

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, stored.WarningResponseSent)
	assert.Equal(t, domain.LaneWarned, stored.ResponseState)
	assert.False(t, stored.WarningResolutionSent)

	// a second tick over the same state emits nothing new
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))
	assert.Len(t, f.queue.Pending(), 1)
}

func TestEvaluateBreachAndWarningSameTick(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	var published []events.EventType
	record := func(ctx context.Context, evt events.Event) error {
		published = append(published, evt.Type)
		return nil
	}
	f.bus.Subscribe(events.EventSLAWarning, record)
	f.bus.Subscribe(events.EventSLABreach, record)

	// first tick lands after the response deadline already passed
	f.clock.Set(monday9.Add(61 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	kinds := f.queue.Kinds()
	assert.Contains(t, kinds, notify.KindWarningResponse)
	assert.Contains(t, kinds, notify.KindBreachResponse)
	assert.Len(t, kinds, 2)
	assert.Equal(t, []events.EventType{events.EventSLAWarning, events.EventSLABreach}, published)

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LaneBreached, stored.ResponseState)
	assert.Equal(t, domain.LaneActive, stored.ResolutionState)
}

func TestEvaluatePausedFreezesWarningButNotBreach(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	// paused early, so warning pressure is frozen at 10 of 60 minutes
	require.NoError(t, f.tracker.HandleStatusChanged(context.Background(), domain.TicketStatusChangedEvent{
		TicketID:   "t-1",
		OldStatus:  domain.TicketStatusOpen,
		NewStatus:  domain.TicketStatusPendingUser,
		OccurredAt: monday9.Add(10 * time.Minute),
	}))

	// wall clock passes the deadline anyway
	f.clock.Set(monday9.Add(90 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	kinds := f.queue.Kinds()
	assert.NotContains(t, kinds, notify.KindWarningResponse)
	assert.Contains(t, kinds, notify.KindBreachResponse)

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.False(t, stored.WarningResponseSent)
	assert.True(t, stored.BreachResponse)
}

func TestMarkRespondedFreezesResponseLane(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	require.NoError(t, f.tracker.MarkResponded(context.Background(), "t-1", monday9.Add(30*time.Minute)))

	// past the response deadline, but the lane already exited cleanly
	f.clock.Set(monday9.Add(90 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	assert.Empty(t, f.queue.Pending())

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.False(t, stored.BreachResponse)
	assert.False(t, stored.WarningResponseSent)
	require.NotNil(t, stored.RespondedAt)
	assert.Equal(t, monday9.Add(30*time.Minute), *stored.RespondedAt)

	// repeated calls keep the first response timestamp
	require.NoError(t, f.tracker.MarkResponded(context.Background(), "t-1", monday9.Add(2*time.Hour)))
	stored, err = f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, monday9.Add(30*time.Minute), *stored.RespondedAt)
}

func TestEvaluateEmitsNothingWhenUpdateFails(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")
	item := f.activeItem(t, "t-1")

	f.clock.Set(monday9.Add(50 * time.Minute))
	f.trackings.FailOn["t-1"] = errors.New("connection reset")

	err := f.tracker.Evaluate(context.Background(), item)
	require.Error(t, err)
	assert.Empty(t, f.queue.Pending())

	// flags were never committed, so the next tick fires the warning
	delete(f.trackings.FailOn, "t-1")
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))
	assert.Equal(t, []notify.Kind{notify.KindWarningResponse}, f.queue.Kinds())
}

func TestEvaluateEscalationOnce(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	// breach the response lane first
	f.clock.Set(monday9.Add(61 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	grace := 30 * time.Minute

	// still inside the grace window
	items, err := f.trackings.ListEscalatable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, f.tracker.EvaluateEscalation(context.Background(), items[0], grace))
	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, stored.EscalatedAt)

	// past deadline + grace, still unassigned and unresponded
	f.clock.Set(monday9.Add(95 * time.Minute))
	items, err = f.trackings.ListEscalatable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, f.tracker.EvaluateEscalation(context.Background(), items[0], grace))

	stored, err = f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.EscalatedAt)
	assert.Contains(t, f.queue.Kinds(), notify.KindEscalation)

	// escalated trackings drop out of the candidate listing
	items, err = f.trackings.ListEscalatable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEvaluateEscalationSkipsAttended(t *testing.T) {
	f := newTrackerFixture(t)
	f.createTicket(t, "t-1")

	f.clock.Set(monday9.Add(61 * time.Minute))
	require.NoError(t, f.tracker.Evaluate(context.Background(), f.activeItem(t, "t-1")))

	assignee := "agent-7"
	contractID := "c-basic"
	assigned := &domain.Ticket{
		ID:         "t-1",
		TenantID:   "tenant-1",
		ContractID: &contractID,
		Status:     domain.TicketStatusInProgress,
		Priority:   domain.PriorityP1,
		AssigneeID: &assignee,
		CreatedAt:  monday9,
	}
	f.tickets.Put(assigned)
	f.trackings.PutTicket(assigned)

	f.clock.Set(monday9.Add(5 * time.Hour))
	items, err := f.trackings.ListEscalatable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, f.tracker.EvaluateEscalation(context.Background(), items[0], 30*time.Minute))

	stored, err := f.trackings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, stored.EscalatedAt)
	assert.NotContains(t, f.queue.Kinds(), notify.KindEscalation)
}

func TestStatusChangeWithoutTrackingIsNoop(t *testing.T) {
	f := newTrackerFixture(t)

	err := f.tracker.HandleStatusChanged(context.Background(), domain.TicketStatusChangedEvent{
		TicketID:   "t-missing",
		OldStatus:  domain.TicketStatusOpen,
		NewStatus:  domain.TicketStatusPendingUser,
		OccurredAt: monday9,
	})
	assert.NoError(t, err)
}
