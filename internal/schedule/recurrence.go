package schedule

import (
	"time"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// IsActiveAt reports whether entry is live at instant at, evaluated in the
// screen's assigned location. Recurrence and time-of-day windows are
// author-local: evaluating them in server or client time is a correctness
// bug, so every caller must pass the screen's timezone.
func IsActiveAt(entry model.ScheduleEntry, at time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	day := civilDate(local)
	start := storedDate(entry.StartDate)

	// calendar range, end date inclusive
	if day.Before(start) {
		return false
	}
	if entry.EndDate != nil && day.After(storedDate(*entry.EndDate)) {
		return false
	}

	if !dayMatches(entry, day, start) {
		return false
	}
	if !withinRepeatBound(entry, day, start) {
		return false
	}

	// half-open clock window [start, end)
	c := model.ClockTimeOf(local)
	return c >= entry.StartClock && c < entry.EndClock
}

// civilDate collapses a local instant to its calendar date, anchored at UTC
// midnight so day arithmetic is DST-proof.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// storedDate normalizes a stored calendar date the same way. Only the
// Date() components of schedule date columns are meaningful.
func storedDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func isWeekday(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

func dayMatches(entry model.ScheduleEntry, day, start time.Time) bool {
	switch entry.Repeat.Type {
	case model.RepeatNone:
		return day.Equal(start)
	case model.RepeatDaily:
		return true
	case model.RepeatWeekday:
		return isWeekday(day.Weekday())
	case model.RepeatWeekly:
		return day.Weekday() == start.Weekday()
	case model.RepeatMonthly:
		// same day-of-month or nothing: a 31st never clamps to a
		// 30-day month's last day
		return day.Day() == start.Day()
	case model.RepeatYearly:
		return day.Month() == start.Month() && day.Day() == start.Day()
	case model.RepeatCustom:
		return customMatches(entry.Repeat, day, start)
	default:
		return false
	}
}

func customMatches(rule model.RepeatRule, day, start time.Time) bool {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	switch rule.Unit {
	case model.UnitDay:
		return daysBetween(start, day)%interval == 0
	case model.UnitWeek:
		return daysBetween(start, day)%(7*interval) == 0
	case model.UnitMonth:
		return day.Day() == start.Day() && monthsBetween(start, day)%interval == 0
	case model.UnitYear:
		return day.Month() == start.Month() && day.Day() == start.Day() &&
			(day.Year()-start.Year())%interval == 0
	default:
		return false
	}
}

// withinRepeatBound enforces the repeatUntil limit. day is already known to
// match the entry's day pattern; for count bounds we ask which occurrence
// this day is and compare against the cap. Only realized occurrences count:
// a monthly-on-the-31st entry does not burn an occurrence in September.
func withinRepeatBound(entry model.ScheduleEntry, day, start time.Time) bool {
	switch entry.Repeat.Until.Mode {
	case model.UntilDate:
		if entry.Repeat.Until.Date == nil {
			return true
		}
		return !day.After(storedDate(*entry.Repeat.Until.Date))
	case model.UntilCount:
		if entry.Repeat.Until.Count <= 0 {
			return false
		}
		return occurrenceOrdinal(entry, day, start) <= entry.Repeat.Until.Count
	default: // forever
		return true
	}
}

// occurrenceOrdinal returns the 1-based position of day in the entry's
// occurrence sequence. Callers guarantee day matches the day pattern.
func occurrenceOrdinal(entry model.ScheduleEntry, day, start time.Time) int {
	days := daysBetween(start, day)
	switch entry.Repeat.Type {
	case model.RepeatNone:
		return 1
	case model.RepeatDaily:
		return days + 1
	case model.RepeatWeekday:
		return countWeekdays(start, day)
	case model.RepeatWeekly:
		return days/7 + 1
	case model.RepeatMonthly:
		return countMonthlySteps(start, day, 1)
	case model.RepeatYearly:
		return countYearlySteps(start, day, 1)
	case model.RepeatCustom:
		interval := entry.Repeat.Interval
		if interval < 1 {
			interval = 1
		}
		switch entry.Repeat.Unit {
		case model.UnitDay:
			return days/interval + 1
		case model.UnitWeek:
			return days/(7*interval) + 1
		case model.UnitMonth:
			return countMonthlySteps(start, day, interval)
		case model.UnitYear:
			return countYearlySteps(start, day, interval)
		}
	}
	return 1
}

// countWeekdays counts Mon-Fri dates in [a, b], both at UTC midnight.
func countWeekdays(a, b time.Time) int {
	days := daysBetween(a, b) + 1
	n := (days / 7) * 5
	w := int(a.Weekday())
	for i := 0; i < days%7; i++ {
		if isWeekday(time.Weekday((w + i) % 7)) {
			n++
		}
	}
	return n
}

// countMonthlySteps counts the realized occurrences of start's day-of-month
// stepping every interval months through day inclusive. Short months that
// lack the day are skipped without burning an occurrence.
func countMonthlySteps(start, day time.Time, interval int) int {
	n := 0
	for m := 0; m <= monthsBetween(start, day); m += interval {
		y := start.Year() + (int(start.Month())-1+m)/12
		mo := time.Month((int(start.Month())-1+m)%12 + 1)
		if start.Day() <= daysInMonth(y, mo) {
			n++
		}
	}
	return n
}

func countYearlySteps(start, day time.Time, interval int) int {
	n := 0
	for y := start.Year(); y <= day.Year(); y += interval {
		if start.Day() <= daysInMonth(y, start.Month()) {
			n++
		}
	}
	return n
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
