// Package sla implements deadline calculation, applicability gating, and
// the tracking state machine for support-ticket service levels.
package sla

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// BusinessCalendar is the resolved working-time configuration for one
// contract: a daily shift window, the working weekdays, and the dates
// fully excluded from work. A nil *BusinessCalendar is the sentinel for
// "no business-hours constraint".
type BusinessCalendar struct {
	ShiftStartMinute int
	ShiftEndMinute   int
	Location         *time.Location
	WorkingWeekdays  map[time.Weekday]bool
	holidays         map[string]bool
}

const holidayDateLayout = "2006-01-02"

// CalendarFromContract builds the calendar for a contract, or nil when
// the contract has no shift configured. Holidays with partial coverage
// remain working days. An unknown timezone falls back to UTC.
func CalendarFromContract(contract *domain.Contract, logger *zap.Logger) *BusinessCalendar {
	if contract == nil || contract.Shift == nil {
		return nil
	}

	loc, err := time.LoadLocation(contract.Timezone)
	if err != nil {
		if logger != nil {
			logger.Warn("unknown contract timezone, falling back to UTC",
				zap.String("contract_id", contract.ID),
				zap.String("timezone", contract.Timezone))
		}
		loc = time.UTC
	}

	calendar := &BusinessCalendar{
		ShiftStartMinute: contract.Shift.StartMinute,
		ShiftEndMinute:   contract.Shift.EndMinute,
		Location:         loc,
		WorkingWeekdays:  make(map[time.Weekday]bool),
		holidays:         make(map[string]bool),
	}
	for _, wd := range contract.WorkingWeekdays {
		calendar.WorkingWeekdays[wd] = true
	}
	for _, holiday := range contract.Holidays {
		if holiday.NonWorking() {
			// Date is a civil date (DATE column, midnight UTC when
			// scanned), so format it as stored rather than converting
			// into the contract's location
			calendar.holidays[holiday.Date.UTC().Format(holidayDateLayout)] = true
		}
	}
	return calendar
}

// IsWorkingDay reports whether the local date is a working weekday and
// not a full-day holiday.
func (c *BusinessCalendar) IsWorkingDay(local time.Time) bool {
	if !c.WorkingWeekdays[local.Weekday()] {
		return false
	}
	return !c.holidays[local.Format(holidayDateLayout)]
}

// CalendarProvider resolves the business calendar applicable to a
// contract from its stored configuration.
type CalendarProvider struct {
	contracts repository.ContractRepository
	logger    *zap.Logger
}

// NewCalendarProvider constructs the provider.
func NewCalendarProvider(contracts repository.ContractRepository, logger *zap.Logger) *CalendarProvider {
	return &CalendarProvider{contracts: contracts, logger: logger}
}

// ForContract loads the contract and resolves its calendar. A contract
// without a shift yields (nil, nil): the caller falls back to raw
// elapsed-time arithmetic.
func (p *CalendarProvider) ForContract(ctx context.Context, contractID string) (*BusinessCalendar, error) {
	contract, err := p.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return CalendarFromContract(contract, p.logger), nil
}
