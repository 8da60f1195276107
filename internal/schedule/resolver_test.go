package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

func TestResolveEmptyScheduleIsFiller(t *testing.T) {
	d := Resolve(nil, instant(2025, time.March, 10, 12, 0), time.UTC)
	assert.Equal(t, model.DirectiveFiller, d.Kind)
}

func TestResolveInactiveEntriesAreFiller(t *testing.T) {
	e := allDay(testEntry(1, date(2025, time.March, 10), model.RepeatRule{Type: model.RepeatNone}))
	d := Resolve([]model.ScheduleEntry{e}, instant(2025, time.March, 11, 12, 0), time.UTC)
	assert.Equal(t, model.DirectiveFiller, d.Kind)
}

func TestResolveNilTargetTurnsScreenOff(t *testing.T) {
	e := allDay(testEntry(7, date(2025, time.March, 10), model.RepeatRule{Type: model.RepeatDaily}))
	e.Target = nil

	d := Resolve([]model.ScheduleEntry{e}, instant(2025, time.March, 12, 12, 0), time.UTC)
	assert.Equal(t, model.DirectiveScreenOff, d.Kind)
	assert.Equal(t, 7, d.EntryID)
	assert.Nil(t, d.Content)
}

func TestResolveSingleActiveEntryRenders(t *testing.T) {
	e := allDay(testEntry(3, date(2025, time.March, 10), model.RepeatRule{Type: model.RepeatDaily}))

	d := Resolve([]model.ScheduleEntry{e}, instant(2025, time.March, 12, 12, 0), time.UTC)
	assert.Equal(t, model.DirectiveRender, d.Kind)
	assert.Equal(t, 3, d.EntryID)
	assert.Equal(t, model.ContentRef{Type: model.ContentPlaylist, ID: 3}, *d.Content)
}

func TestResolveOverlapMostRecentlyCreatedWins(t *testing.T) {
	older := allDay(testEntry(1, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	older.CreatedAt = date(2025, time.February, 1)
	newer := allDay(testEntry(2, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	newer.CreatedAt = date(2025, time.February, 20)

	at := instant(2025, time.March, 12, 12, 0)
	d := Resolve([]model.ScheduleEntry{older, newer}, at, time.UTC)
	assert.Equal(t, 2, d.EntryID)

	// resolution must not depend on input order
	d = Resolve([]model.ScheduleEntry{newer, older}, at, time.UTC)
	assert.Equal(t, 2, d.EntryID)
}

func TestResolveCreatedAtTieFallsToLargerID(t *testing.T) {
	created := date(2025, time.February, 1)
	a := allDay(testEntry(4, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	a.CreatedAt = created
	b := allDay(testEntry(9, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	b.CreatedAt = created

	at := instant(2025, time.March, 12, 12, 0)
	for _, entries := range [][]model.ScheduleEntry{{a, b}, {b, a}} {
		d := Resolve(entries, at, time.UTC)
		assert.Equal(t, 9, d.EntryID)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	entries := []model.ScheduleEntry{
		allDay(testEntry(1, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily})),
		allDay(testEntry(2, date(2025, time.March, 5), model.RepeatRule{Type: model.RepeatWeekly})),
	}
	at := instant(2025, time.March, 12, 12, 0)

	first := Resolve(entries, at, time.UTC)
	second := Resolve(entries, at, time.UTC)
	assert.Equal(t, first, second)
}

func TestTickEmitsOnlyOnChange(t *testing.T) {
	r := NewResolver(1, time.UTC)
	e := testEntry(1, date(2025, time.March, 10), model.RepeatRule{Type: model.RepeatDaily})
	r.SetEntries([]model.ScheduleEntry{e})

	// initial resolution always emits, even when it resolves to filler
	d, changed := r.Tick(instant(2025, time.March, 10, 8, 0))
	assert.True(t, changed)
	assert.Equal(t, model.DirectiveFiller, d.Kind)

	// quiet tick
	_, changed = r.Tick(instant(2025, time.March, 10, 8, 30))
	assert.False(t, changed)

	// window opens
	d, changed = r.Tick(instant(2025, time.March, 10, 9, 0))
	assert.True(t, changed)
	assert.Equal(t, model.DirectiveRender, d.Kind)

	// ticks inside the window stay quiet
	_, changed = r.Tick(instant(2025, time.March, 10, 12, 0))
	assert.False(t, changed)

	// window closes
	d, changed = r.Tick(instant(2025, time.March, 10, 17, 0))
	assert.True(t, changed)
	assert.Equal(t, model.DirectiveFiller, d.Kind)
}

func TestTickSuppressesEquivalentDirective(t *testing.T) {
	r := NewResolver(1, time.UTC)
	at := instant(2025, time.March, 12, 12, 0)

	a := allDay(testEntry(1, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	a.Target = &model.ContentRef{Type: model.ContentPlaylist, ID: 42}
	r.SetEntries([]model.ScheduleEntry{a})

	_, changed := r.Tick(at)
	assert.True(t, changed)

	// a different entry pointing at the same content is not a change:
	// re-emitting would needlessly restart playback
	b := allDay(testEntry(2, date(2025, time.March, 1), model.RepeatRule{Type: model.RepeatDaily}))
	b.Target = &model.ContentRef{Type: model.ContentPlaylist, ID: 42}
	b.CreatedAt = date(2025, time.March, 2)
	r.SetEntries([]model.ScheduleEntry{b})

	_, changed = r.Tick(at.Add(time.Second))
	assert.False(t, changed)
}

func TestSetLocationReaimsResolution(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	r := NewResolver(1, time.UTC)
	e := testEntry(1, date(2025, time.June, 1), model.RepeatRule{Type: model.RepeatDaily})
	r.SetEntries([]model.ScheduleEntry{e})

	// 13:30 UTC is inside the window in UTC terms
	d, _ := r.Tick(instant(2025, time.June, 15, 13, 30))
	assert.Equal(t, model.DirectiveRender, d.Kind)

	// after moving to New York the same wall instant is 09:30 local,
	// still inside; 21:30 UTC would be 17:30 local, outside
	r.SetLocation(ny)
	d, changed := r.Tick(instant(2025, time.June, 15, 21, 30))
	assert.True(t, changed)
	assert.Equal(t, model.DirectiveFiller, d.Kind)
}

func TestCurrentReflectsLastEmission(t *testing.T) {
	r := NewResolver(1, time.UTC)

	_, ok := r.Current()
	assert.False(t, ok)

	r.SetEntries(nil)
	d, _ := r.Tick(instant(2025, time.March, 10, 12, 0))
	got, ok := r.Current()
	assert.True(t, ok)
	assert.Equal(t, d, got)
}
