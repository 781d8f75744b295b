// Package notify queues notification intents for an external delivery
// worker, with per-kind retry policy and breach-over-warning dispatch
// priority.
package notify

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Kind enumerates notification intent kinds.
type Kind string

const (
	KindWarningResponse   Kind = "WARNING_RESPONSE"
	KindWarningResolution Kind = "WARNING_RESOLUTION"
	KindBreachResponse    Kind = "BREACH_RESPONSE"
	KindBreachResolution  Kind = "BREACH_RESOLUTION"
	KindEscalation        Kind = "ESCALATION"
	KindContractExpiry    Kind = "CONTRACT_EXPIRY"
)

// HighPriority reports whether the kind is dispatched ahead of normal
// intents. Breaches and escalations jump the queue.
func (k Kind) HighPriority() bool {
	switch k {
	case KindBreachResponse, KindBreachResolution, KindEscalation:
		return true
	}
	return false
}

// Intent is one queued notification. Attempt bookkeeping travels with
// the payload so the delivery worker can apply the retry policy without
// extra lookups.
type Intent struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	TicketID    string          `json:"ticket_id,omitempty"`
	ContractID  string          `json:"contract_id,omitempty"`
	TenantID    string          `json:"tenant_id"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	BackoffBase time.Duration   `json:"backoff_base"`
}

// NextDelay returns the exponential backoff delay for the intent's
// current attempt count.
func (i Intent) NextDelay() time.Duration {
	delay := i.BackoffBase
	for n := 1; n < i.Attempt; n++ {
		delay *= 2
	}
	return delay
}
