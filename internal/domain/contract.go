package domain

import "time"

// PriorityScope restricts which priorities a contract tracks at all.
type PriorityScope string

const (
	PriorityScopeAll  PriorityScope = "ALL"
	PriorityScopeP1   PriorityScope = "P1_ONLY"
	PriorityScopeP1P2 PriorityScope = "P1_P2"
)

// Includes reports whether the scope covers the given priority.
func (s PriorityScope) Includes(p Priority) bool {
	switch s {
	case PriorityScopeP1:
		return p == PriorityP1
	case PriorityScopeP1P2:
		return p == PriorityP1 || p == PriorityP2
	default:
		return true
	}
}

// SLATarget holds per-priority target durations.
type SLATarget struct {
	ResponseMinutes   int
	ResolutionMinutes int
	Enabled           bool
}

// Shift is a daily business-hours window expressed in minutes of the
// local day, end exclusive.
type Shift struct {
	StartMinute int
	EndMinute   int
}

// HolidayCoverage describes how much of a holiday date is worked.
type HolidayCoverage string

const (
	CoverageFullDay   HolidayCoverage = "FULL_DAY"
	CoverageMorning   HolidayCoverage = "MORNING"
	CoverageAfternoon HolidayCoverage = "AFTERNOON"
)

// Holiday is a calendar date with a coverage type. Only FULL_DAY
// coverage makes the date non-working for deadline purposes. Date is a
// civil date (stored as a DATE column; midnight UTC when loaded), not
// an instant in the contract's timezone.
type Holiday struct {
	Date     time.Time
	Coverage HolidayCoverage
}

// NonWorking reports whether the whole date is excluded from work.
func (h Holiday) NonWorking() bool {
	return h.Coverage == CoverageFullDay
}

// Contract carries the SLA configuration the engine reads. It is
// owned and persisted by the surrounding application.
type Contract struct {
	ID               string
	TenantID         string
	Scope            PriorityScope
	EnabledByPrio    map[Priority]bool
	Targets          map[Priority]SLATarget
	WarningThreshold float64
	PausingStatuses  []TicketStatus
	Shift            *Shift
	WorkingWeekdays  []time.Weekday
	Timezone         string
	Holidays         []Holiday
	EndDate          *time.Time
	ExpiryNotifiedAt *time.Time
}

// DefaultWarningThreshold is applied when a contract leaves the ratio unset.
const DefaultWarningThreshold = 0.80

// EffectiveWarningThreshold returns the configured ratio or the default.
func (c *Contract) EffectiveWarningThreshold() float64 {
	if c.WarningThreshold <= 0 || c.WarningThreshold > 1 {
		return DefaultWarningThreshold
	}
	return c.WarningThreshold
}

// PausesOn reports whether the status suspends the SLA clock.
func (c *Contract) PausesOn(status TicketStatus) bool {
	for _, s := range c.PausingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// TargetFor returns the target entry for a priority, if present.
func (c *Contract) TargetFor(p Priority) (SLATarget, bool) {
	t, ok := c.Targets[p]
	return t, ok
}
