package model

import (
	"fmt"
	"time"
)

// RepeatType is the day pattern of a schedule entry.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekday RepeatType = "weekday"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
	RepeatCustom  RepeatType = "custom"
)

// IntervalUnit is the step unit for custom repeats.
type IntervalUnit string

const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
	UnitYear  IntervalUnit = "year"
)

// UntilMode bounds how long a repeat rule keeps producing occurrences.
type UntilMode string

const (
	UntilForever UntilMode = "forever"
	UntilDate    UntilMode = "date"
	UntilCount   UntilMode = "count"
)

// ClockTime is a time of day in minutes since local midnight.
type ClockTime int

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ParseClockTime parses "HH:MM" into minutes since midnight.
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

// ClockTimeOf extracts the minutes-since-midnight of t in its own location.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// ScheduleEntry is one authored row of a screen's schedule. Entries are
// written by the CMS authoring side; the engine only reads snapshots.
//
// StartDate/EndDate carry calendar dates: only the Date() components are
// meaningful, never the wall-clock or location of the stored value. The
// time-of-day window lives in StartClock/EndClock and is evaluated in the
// screen's assigned timezone. An entry never crosses midnight inside the
// clock window; multi-day runs are expressed through the date range.
type ScheduleEntry struct {
	ID         int         `db:"id"         json:"id"`
	ScreenID   int         `db:"screen_id"  json:"screen_id"`
	Name       string      `db:"name"       json:"name"`
	Target     *ContentRef `db:"-"          json:"target,omitempty"` // nil = screen off
	StartDate  time.Time   `db:"start_date" json:"start_date"`
	EndDate    *time.Time  `db:"end_date"   json:"end_date,omitempty"` // inclusive; nil = open-ended
	StartClock ClockTime   `db:"start_min"  json:"start_clock"`
	EndClock   ClockTime   `db:"end_min"    json:"end_clock"`
	Repeat     RepeatRule  `db:"-"          json:"repeat"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// RepeatRule is the recurrence pattern attached to an entry.
type RepeatRule struct {
	Type     RepeatType   `json:"type"`
	Interval int          `json:"interval,omitempty"` // custom only, >= 1
	Unit     IntervalUnit `json:"unit,omitempty"`     // custom only
	Until    RepeatBound  `json:"until"`
}

// RepeatBound limits a repeat rule: forever, until a calendar date
// (inclusive), or for a fixed number of occurrences counted from the
// entry's start date.
type RepeatBound struct {
	Mode  UntilMode  `json:"mode"`
	Date  *time.Time `json:"date,omitempty"`
	Count int        `json:"count,omitempty"`
}
