package domain

import "time"

// Lane identifies one of the two independent SLA clocks.
type Lane string

const (
	LaneResponse   Lane = "RESPONSE"
	LaneResolution Lane = "RESOLUTION"
)

// LaneState is the tagged per-lane state kept alongside the raw flags.
type LaneState string

const (
	LaneActive   LaneState = "ACTIVE"
	LaneWarned   LaneState = "WARNED"
	LaneBreached LaneState = "BREACHED"
)

// Tracking is the mutable SLA state attached 1:1 to a ticket. Flags are
// monotonic: once a warning or breach is recorded it never resets, which
// is what guarantees at-most-once notification per condition.
type Tracking struct {
	TicketID              string
	TenantID              string
	ResponseDeadline      time.Time
	ResolutionDeadline    time.Time
	RespondedAt           *time.Time
	PausedAt              *time.Time
	PausedMinutes         int
	WarningResponseSent   bool
	WarningResolutionSent bool
	BreachResponse        bool
	BreachResolution      bool
	ResponseState         LaneState
	ResolutionState       LaneState
	EscalatedAt           *time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewTracking initializes both lanes to ACTIVE with all flags false.
func NewTracking(ticketID, tenantID string, responseDeadline, resolutionDeadline time.Time) *Tracking {
	return &Tracking{
		TicketID:           ticketID,
		TenantID:           tenantID,
		ResponseDeadline:   responseDeadline,
		ResolutionDeadline: resolutionDeadline,
		ResponseState:      LaneActive,
		ResolutionState:    LaneActive,
	}
}

// Paused reports whether the SLA clock is currently suspended.
func (t *Tracking) Paused() bool {
	return t.PausedAt != nil
}

// Deadline returns the lane's current deadline.
func (t *Tracking) Deadline(lane Lane) time.Time {
	if lane == LaneResponse {
		return t.ResponseDeadline
	}
	return t.ResolutionDeadline
}

// State returns the lane's tagged state.
func (t *Tracking) State(lane Lane) LaneState {
	if lane == LaneResponse {
		return t.ResponseState
	}
	return t.ResolutionState
}

// Warned reports whether the lane's warning intent was already emitted.
func (t *Tracking) Warned(lane Lane) bool {
	if lane == LaneResponse {
		return t.WarningResponseSent
	}
	return t.WarningResolutionSent
}

// Breached reports whether the lane already breached.
func (t *Tracking) Breached(lane Lane) bool {
	if lane == LaneResponse {
		return t.BreachResponse
	}
	return t.BreachResolution
}

// MarkWarned records the lane warning. Returns false when the transition
// is invalid (already warned or already breached); invalid transitions
// are no-ops, not errors.
func (t *Tracking) MarkWarned(lane Lane) bool {
	if t.Warned(lane) || t.Breached(lane) {
		return false
	}
	if lane == LaneResponse {
		t.WarningResponseSent = true
		t.ResponseState = LaneWarned
	} else {
		t.WarningResolutionSent = true
		t.ResolutionState = LaneWarned
	}
	return true
}

// MarkBreached records the lane breach. Breach is terminal for the lane;
// repeating it is a no-op and returns false.
func (t *Tracking) MarkBreached(lane Lane) bool {
	if t.Breached(lane) {
		return false
	}
	if lane == LaneResponse {
		t.BreachResponse = true
		t.ResponseState = LaneBreached
	} else {
		t.BreachResolution = true
		t.ResolutionState = LaneBreached
	}
	return true
}

// Pause records the start of a pause. Idempotent while already paused.
func (t *Tracking) Pause(at time.Time) bool {
	if t.PausedAt != nil {
		return false
	}
	paused := at
	t.PausedAt = &paused
	return true
}

// Resume clears the pause, credits whole paused minutes, and moves both
// deadlines forward by exactly that amount. Deadlines only ever move
// forward. Returns the credited minutes.
func (t *Tracking) Resume(at time.Time) int {
	if t.PausedAt == nil {
		return 0
	}
	added := int(at.Sub(*t.PausedAt) / time.Minute)
	if added < 0 {
		added = 0
	}
	t.PausedAt = nil
	t.PausedMinutes += added
	t.ResponseDeadline = t.ResponseDeadline.Add(time.Duration(added) * time.Minute)
	t.ResolutionDeadline = t.ResolutionDeadline.Add(time.Duration(added) * time.Minute)
	return added
}

// Settled reports whether every condition has already fired, which lets
// the sweep exclude the tracking. Optimization only, not correctness.
func (t *Tracking) Settled() bool {
	return t.WarningResponseSent && t.WarningResolutionSent && t.BreachResponse && t.BreachResolution
}
