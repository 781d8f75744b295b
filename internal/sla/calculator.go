package sla

import "time"

// lookaheadDays bounds the scan for the next working shift start, so a
// calendar with zero valid days cannot loop forever.
const lookaheadDays = 14

// Deadline computes the absolute deadline reached after consuming
// targetMinutes of working time starting at start. With a nil calendar
// the deadline is plain elapsed-time addition.
func Deadline(start time.Time, targetMinutes int, calendar *BusinessCalendar) time.Time {
	deadline, _ := DeadlineChecked(start, targetMinutes, calendar)
	return deadline
}

// DeadlineChecked is Deadline plus a flag reporting that the lookahead
// bound was hit at least once, which indicates a misconfigured contract
// calendar (the cursor then advances by flat 24-hour steps).
func DeadlineChecked(start time.Time, targetMinutes int, calendar *BusinessCalendar) (time.Time, bool) {
	if calendar == nil {
		return start.Add(time.Duration(targetMinutes) * time.Minute), false
	}
	// a window that can never be entered (end at or before start) would
	// otherwise loop forever: the in-window branch is unsatisfiable while
	// nextShiftStart keeps finding working days
	if calendar.ShiftEndMinute <= calendar.ShiftStartMinute {
		return start.Add(24 * time.Hour), true
	}

	cursor := start
	remaining := targetMinutes
	misconfigured := false

	for remaining > 0 {
		local := cursor.In(calendar.Location)
		minuteOfDay := local.Hour()*60 + local.Minute()

		if calendar.IsWorkingDay(local) &&
			minuteOfDay >= calendar.ShiftStartMinute &&
			minuteOfDay < calendar.ShiftEndMinute {
			consume := calendar.ShiftEndMinute - minuteOfDay
			if remaining < consume {
				consume = remaining
			}
			cursor = cursor.Add(time.Duration(consume) * time.Minute)
			remaining -= consume
			continue
		}

		next, ok := nextShiftStart(cursor, calendar)
		if !ok {
			// no valid working day within the lookahead: advance a flat
			// 24 hours and burn one shift's worth of target so even a
			// calendar with zero working days terminates
			misconfigured = true
			cursor = cursor.Add(24 * time.Hour)
			consumed := calendar.ShiftEndMinute - calendar.ShiftStartMinute
			if consumed <= 0 || consumed > remaining {
				consumed = remaining
			}
			remaining -= consumed
			continue
		}
		cursor = next
	}

	return cursor, misconfigured
}

// nextShiftStart scans forward day by day for the next working day and
// returns its shift-start instant in the calendar's location.
func nextShiftStart(cursor time.Time, calendar *BusinessCalendar) (time.Time, bool) {
	local := cursor.In(calendar.Location)
	for offset := 0; offset <= lookaheadDays; offset++ {
		day := local.AddDate(0, 0, offset)
		candidate := time.Date(day.Year(), day.Month(), day.Day(),
			calendar.ShiftStartMinute/60, calendar.ShiftStartMinute%60, 0, 0, calendar.Location)
		if candidate.After(cursor) && calendar.IsWorkingDay(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
