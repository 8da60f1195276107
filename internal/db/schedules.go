package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// scheduleEntryRow is the flat column shape; repeat rule and target are
// reassembled into the model before any playback code sees them.
type scheduleEntryRow struct {
	ID             int        `db:"id"`
	ScreenID       int        `db:"screen_id"`
	Name           string     `db:"name"`
	TargetType     *string    `db:"target_type"`
	TargetID       *int       `db:"target_id"`
	StartDate      time.Time  `db:"start_date"`
	EndDate        *time.Time `db:"end_date"`
	StartMin       int        `db:"start_min"`
	EndMin         int        `db:"end_min"`
	RepeatType     string     `db:"repeat_type"`
	RepeatInterval int        `db:"repeat_interval"`
	RepeatUnit     *string    `db:"repeat_unit"`
	UntilMode      string     `db:"until_mode"`
	UntilDate      *time.Time `db:"until_date"`
	UntilCount     int        `db:"until_count"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r scheduleEntryRow) toModel() model.ScheduleEntry {
	e := model.ScheduleEntry{
		ID:         r.ID,
		ScreenID:   r.ScreenID,
		Name:       r.Name,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		StartClock: model.ClockTime(r.StartMin),
		EndClock:   model.ClockTime(r.EndMin),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.TargetType != nil && r.TargetID != nil {
		e.Target = &model.ContentRef{Type: model.ContentType(*r.TargetType), ID: *r.TargetID}
	}
	e.Repeat = model.RepeatRule{
		Type:     model.RepeatType(r.RepeatType),
		Interval: r.RepeatInterval,
		Until: model.RepeatBound{
			Mode:  model.UntilMode(r.UntilMode),
			Date:  r.UntilDate,
			Count: r.UntilCount,
		},
	}
	if r.RepeatUnit != nil {
		e.Repeat.Unit = model.IntervalUnit(*r.RepeatUnit)
	}
	return e
}

// ScheduleEntriesForScreen loads the full schedule snapshot the resolver
// evaluates. Order is by id for stable iteration; precedence is decided at
// resolution time, not here.
func (s *pgStore) ScheduleEntriesForScreen(screenID int) ([]model.ScheduleEntry, error) {
	var rows []scheduleEntryRow
	const q = `
	SELECT
	id, screen_id, name, target_type, target_id,
	start_date, end_date, start_min, end_min,
	repeat_type, repeat_interval, repeat_unit,
	until_mode, until_date, until_count,
	created_at, updated_at
	FROM schedule_entries
	WHERE screen_id = $1
	ORDER BY id;`
	if err := s.db.Select(&rows, q, screenID); err != nil {
		log.Error().Err(err).Int("screen_id", screenID).Msg("[db] ScheduleEntriesForScreen: failed to select entries")
		return nil, err
	}
	out := make([]model.ScheduleEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
