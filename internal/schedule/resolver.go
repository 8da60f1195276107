package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// Resolve picks the single directive for a screen at instant at. Overlaps
// are broken deterministically: the most recently created entry wins, and an
// exact CreatedAt tie falls to the larger entry id so the ordering is total.
// The result depends only on the arguments, never on input order or hidden
// state, which makes re-resolution idempotent by construction.
func Resolve(entries []model.ScheduleEntry, at time.Time, loc *time.Location) model.Directive {
	var winner *model.ScheduleEntry
	for i := range entries {
		e := &entries[i]
		if !IsActiveAt(*e, at, loc) {
			continue
		}
		if winner == nil || supersedes(e, winner) {
			winner = e
		}
	}
	if winner == nil {
		return model.Filler()
	}
	if winner.Target == nil {
		return model.ScreenOff(winner.ID)
	}
	return model.Render(*winner.Target, winner.ID)
}

// supersedes implements the "last edit intent wins" policy.
func supersedes(a, b *model.ScheduleEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Resolver owns one screen's entry snapshot and the previously emitted
// directive. Ticks and entry replacements funnel through here so a
// directive is emitted exactly when the resolution changes, not on every
// second that passes.
type Resolver struct {
	mu       sync.Mutex
	screenID int
	loc      *time.Location
	entries  []model.ScheduleEntry
	last     model.Directive
	resolved bool
}

func NewResolver(screenID int, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{screenID: screenID, loc: loc}
}

// SetEntries replaces the snapshot after an out-of-band change
// notification. Entries are copied and held sorted by id so logs and
// snapshots are stable; resolution itself does not depend on order.
func (r *Resolver) SetEntries(entries []model.ScheduleEntry) {
	snap := make([]model.ScheduleEntry, len(entries))
	copy(snap, entries)
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })

	r.mu.Lock()
	r.entries = snap
	r.mu.Unlock()
	log.Debug().Int("screen_id", r.screenID).Int("entries", len(snap)).Msg("schedule snapshot replaced")
}

// SetLocation swaps the evaluation timezone (device re-provisioned).
func (r *Resolver) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	r.mu.Lock()
	r.loc = loc
	r.mu.Unlock()
}

// Tick re-resolves at now. The returned bool is true when the directive
// differs from the previously emitted one; callers must ignore the
// directive otherwise so playback is never restarted by a no-op tick.
func (r *Resolver) Tick(now time.Time) (model.Directive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := Resolve(r.entries, now, r.loc)
	if r.resolved && d.Equal(r.last) {
		return r.last, false
	}
	first := !r.resolved
	r.last = d
	r.resolved = true
	log.Info().
		Int("screen_id", r.screenID).
		Str("directive", string(d.Kind)).
		Int("entry_id", d.EntryID).
		Bool("initial", first).
		Msg("directive changed")
	return d, true
}

// Current returns the last emitted directive, if any.
func (r *Resolver) Current() (model.Directive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.resolved
}
