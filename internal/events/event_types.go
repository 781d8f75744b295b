package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTrackingCreated  EventType = "sla_tracking_created"
	EventSLAPaused        EventType = "sla_paused"
	EventSLAResumed       EventType = "sla_resumed"
	EventSLAWarning       EventType = "sla_warning"
	EventSLABreach        EventType = "sla_breach"
	EventSLAEscalated     EventType = "sla_escalated"
	EventContractExpiring EventType = "contract_expiring"
)

// Event represents an audit-worthy occurrence emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TrackingCreatedPayload payload.
type TrackingCreatedPayload struct {
	Priority           domain.Priority `json:"priority"`
	ResponseDeadline   time.Time       `json:"response_deadline"`
	ResolutionDeadline time.Time       `json:"resolution_deadline"`
}

// PausePayload payload for pause and resume events.
type PausePayload struct {
	Status        domain.TicketStatus `json:"status"`
	PausedMinutes int                 `json:"paused_minutes,omitempty"`
}

// LanePayload payload for warning and breach events.
type LanePayload struct {
	Lane     domain.Lane     `json:"lane"`
	Deadline time.Time       `json:"deadline"`
	Priority domain.Priority `json:"priority"`
}

// EscalationPayload payload.
type EscalationPayload struct {
	Priority     domain.Priority `json:"priority"`
	BreachedLane domain.Lane     `json:"breached_lane"`
}

// ContractExpiringPayload payload.
type ContractExpiringPayload struct {
	ContractID string    `json:"contract_id"`
	EndDate    time.Time `json:"end_date"`
}
