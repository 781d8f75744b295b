package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// IsTerminal reports whether the status ends SLA evaluation for a ticket.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// Priority enumerates SLA urgency tiers, P1 highest.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

// Ticket is the engine's read-only view of the owning ticket record.
// The full aggregate and its CRUD live in the surrounding application;
// the engine only consumes the fields below.
type Ticket struct {
	ID         string
	TenantID   string
	ContractID *string
	Status     TicketStatus
	Priority   Priority
	AssigneeID *string
	CreatedAt  time.Time
}

// TicketCreatedEvent is the input event emitted by the surrounding
// application when a ticket is created.
type TicketCreatedEvent struct {
	TicketID   string
	TenantID   string
	ContractID *string
	Priority   Priority
	CreatedAt  time.Time
}

// TicketStatusChangedEvent is the input event emitted on every ticket
// status transition.
type TicketStatusChangedEvent struct {
	TicketID   string
	OldStatus  TicketStatus
	NewStatus  TicketStatus
	OccurredAt time.Time
}
