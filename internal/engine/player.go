package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

type PlayerState string

const (
	StateEmpty   PlayerState = "empty"
	StatePlaying PlayerState = "playing"
	StatePaused  PlayerState = "paused"
)

// defaultItemSeconds is used when a timer-driven item carries no duration.
const defaultItemSeconds = 10

// AdvanceHook observes committed item transitions. It runs on the goroutine
// that caused the advance, after the new state is visible, exactly once per
// transition.
type AdvanceHook func(zoneID string, item model.PlayableItem, trigger model.AdvanceTrigger, shownFor time.Duration)

// ShowFunc tells the render host to display an item. The generation value
// identifies the playback slot; completion signals must echo it back.
type ShowFunc func(zoneID string, item model.PlayableItem, generation uint64)

type PlayerConfig struct {
	ZoneID    string
	Items     []model.PlayableItem
	Shuffle   bool
	AutoPlay  bool
	Clock     Clock
	OnAdvance AdvanceHook
	OnShow    ShowFunc
	Rand      *rand.Rand
}

// Player sequences one zone's playlist. All mutation happens under mu; the
// generation counter ties every armed timer and every in-flight completion
// signal to the item it was scheduled for, so signals that outlive their
// item are dropped instead of advancing the wrong one.
type Player struct {
	mu     sync.Mutex
	zoneID string
	clock  Clock
	rng    *rand.Rand

	items   []model.PlayableItem
	order   []int
	pos     int
	state   PlayerState
	shuffle bool

	generation uint64
	timer      Timer
	shownAt    time.Time

	onAdvance AdvanceHook
	onShow    ShowFunc
}

func NewPlayer(cfg PlayerConfig) *Player {
	clk := cfg.Clock
	if clk == nil {
		clk = RealClock{}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Player{
		zoneID:    cfg.ZoneID,
		clock:     clk,
		rng:       rng,
		items:     append([]model.PlayableItem(nil), cfg.Items...),
		shuffle:   cfg.Shuffle,
		state:     StateEmpty,
		onAdvance: cfg.OnAdvance,
		onShow:    cfg.OnShow,
	}
	p.resetOrderLocked()
	if len(p.items) > 0 {
		p.state = StatePaused
		if cfg.AutoPlay {
			p.state = StatePlaying
		}
	}
	return p
}

// Start shows the first item and, when playing, arms its timer.
func (p *Player) Start() {
	p.mu.Lock()
	if len(p.items) == 0 {
		p.state = StateEmpty
		p.mu.Unlock()
		return
	}
	p.pos = 0
	show := p.showCurrentLocked()
	p.mu.Unlock()
	show()
}

// Stop cancels any pending timer and empties the machine. Signals armed
// before Stop are orphaned by the generation bump.
func (p *Player) Stop() {
	p.mu.Lock()
	p.cancelTimerLocked()
	p.generation++
	p.state = StateEmpty
	p.items = nil
	p.order = nil
	p.pos = 0
	p.mu.Unlock()
}

// Replace swaps the playlist for a live-updated one. The old list's timers
// and completion signals are invalidated; playback restarts from the new
// list's first slot, preserving the playing/paused mode.
func (p *Player) Replace(items []model.PlayableItem, shuffle bool) {
	p.mu.Lock()
	p.cancelTimerLocked()
	p.generation++
	p.items = append([]model.PlayableItem(nil), items...)
	p.shuffle = shuffle
	p.resetOrderLocked()
	p.pos = 0
	if len(p.items) == 0 {
		p.state = StateEmpty
		p.mu.Unlock()
		return
	}
	if p.state == StateEmpty {
		p.state = StatePlaying
	}
	show := p.showCurrentLocked()
	p.mu.Unlock()
	show()
}

// OnTimer handles a duration timer firing for the given generation.
func (p *Player) OnTimer(generation uint64) {
	p.advanceFrom(generation, model.TriggerTimer, func(it model.PlayableItem) bool {
		return p.timerSecondsFor(it) > 0
	})
}

// OnMediaEnd handles the render host reporting intrinsic completion: a video
// reaching its end, or a self-terminating app reporting done. Items that
// advance by timer ignore it, so an item never has two live advance sources.
func (p *Player) OnMediaEnd(generation uint64) {
	p.advanceFrom(generation, model.TriggerMediaEnd, func(it model.PlayableItem) bool {
		return p.timerSecondsFor(it) == 0
	})
}

// OnLoadFailure handles the render host failing to load the current item.
// The failure counts as an advance so one broken asset cannot stall a zone.
func (p *Player) OnLoadFailure(generation uint64) {
	p.advanceFrom(generation, model.TriggerFailure, func(model.PlayableItem) bool {
		return true
	})
}

func (p *Player) advanceFrom(generation uint64, trigger model.AdvanceTrigger, accepts func(model.PlayableItem) bool) {
	p.mu.Lock()
	if generation != p.generation || p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	prev := p.items[p.order[p.pos]]
	if !accepts(prev) {
		log.Debug().
			Str("zone", p.zoneID).
			Str("trigger", string(trigger)).
			Str("kind", string(prev.Kind)).
			Msg("completion signal does not match item kind, ignoring")
		p.mu.Unlock()
		return
	}
	shownFor := p.clock.Now().Sub(p.shownAt)
	p.stepLocked(1)
	show := p.showCurrentLocked()
	hook := p.advanceHookLocked(prev, trigger, shownFor)
	p.mu.Unlock()
	hook()
	show()
}

// Next moves forward one slot. Works while paused without resuming.
func (p *Player) Next() { p.manual(1, -1) }

// Previous moves back one slot. Works while paused without resuming.
func (p *Player) Previous() { p.manual(-1, -1) }

// GoTo jumps to an absolute playlist index.
func (p *Player) GoTo(index int) { p.manual(0, index) }

func (p *Player) manual(step, absolute int) {
	p.mu.Lock()
	if len(p.items) == 0 || absolute >= len(p.items) {
		p.mu.Unlock()
		return
	}
	p.cancelTimerLocked()
	prev := p.items[p.order[p.pos]]
	shownFor := p.clock.Now().Sub(p.shownAt)
	if absolute >= 0 {
		p.jumpLocked(absolute)
	} else {
		p.stepLocked(step)
	}
	show := p.showCurrentLocked()
	hook := p.advanceHookLocked(prev, model.TriggerManual, shownFor)
	p.mu.Unlock()
	hook()
	show()
}

// TogglePlay flips between playing and paused. Resuming re-arms the current
// item's timer from zero rather than crediting time spent paused.
func (p *Player) TogglePlay() PlayerState {
	p.mu.Lock()
	switch p.state {
	case StateEmpty:
		p.mu.Unlock()
		return StateEmpty
	case StatePlaying:
		p.cancelTimerLocked()
		p.generation++
		p.state = StatePaused
		st := p.state
		p.mu.Unlock()
		return st
	default:
		p.state = StatePlaying
		show := p.showCurrentLocked()
		st := p.state
		p.mu.Unlock()
		show()
		return st
	}
}

// stepLocked moves pos by delta with wraparound, reshuffling the order on
// each full pass so shuffled playback does not repeat one permutation.
func (p *Player) stepLocked(delta int) {
	n := len(p.order)
	if n == 0 {
		return
	}
	next := p.pos + delta
	if next >= n || next < 0 {
		if p.shuffle {
			p.resetOrderLocked()
		}
		next = ((next % n) + n) % n
	}
	p.pos = next
}

// jumpLocked positions playback on the playlist index regardless of shuffle
// order, so GoTo addresses the list the operator sees.
func (p *Player) jumpLocked(index int) {
	for i, idx := range p.order {
		if idx == index {
			p.pos = i
			return
		}
	}
}

// showCurrentLocked commits the current slot: bumps the generation, arms the
// duration timer when the item is timer-driven, and returns the deferred
// render callback to run outside the lock.
func (p *Player) showCurrentLocked() func() {
	p.cancelTimerLocked()
	p.generation++
	if len(p.items) == 0 {
		return func() {}
	}
	item := p.items[p.order[p.pos]]
	gen := p.generation
	p.shownAt = p.clock.Now()
	if p.state == StatePlaying {
		if secs := p.timerSecondsFor(item); secs > 0 {
			p.timer = p.clock.AfterFunc(time.Duration(secs)*time.Second, func() {
				p.OnTimer(gen)
			})
		}
	}
	onShow := p.onShow
	zone := p.zoneID
	return func() {
		if onShow != nil {
			onShow(zone, item, gen)
		}
	}
}

func (p *Player) timerSecondsFor(item model.PlayableItem) int {
	secs := item.TimerSeconds()
	if secs == 0 && item.Kind.TimerDriven() && !item.SelfCompleting() {
		return defaultItemSeconds
	}
	return secs
}

func (p *Player) advanceHookLocked(prev model.PlayableItem, trigger model.AdvanceTrigger, shownFor time.Duration) func() {
	hook := p.onAdvance
	zone := p.zoneID
	return func() {
		if hook != nil {
			hook(zone, prev, trigger, shownFor)
		}
	}
}

func (p *Player) cancelTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) resetOrderLocked() {
	p.order = make([]int, len(p.items))
	for i := range p.order {
		p.order[i] = i
	}
	if p.shuffle && len(p.order) > 1 {
		p.rng.Shuffle(len(p.order), func(i, j int) {
			p.order[i], p.order[j] = p.order[j], p.order[i]
		})
	}
}

// PlayerSnapshot is a point-in-time view of one zone's playback.
type PlayerSnapshot struct {
	ZoneID       string              `json:"zone_id"`
	State        PlayerState         `json:"state"`
	CurrentIndex int                 `json:"current_index"`
	Current      *model.PlayableItem `json:"current,omitempty"`
	ItemCount    int                 `json:"item_count"`
	Shuffle      bool                `json:"shuffle"`
	Generation   uint64              `json:"generation"`
}

func (p *Player) Snapshot() PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PlayerSnapshot{
		ZoneID:     p.zoneID,
		State:      p.state,
		ItemCount:  len(p.items),
		Shuffle:    p.shuffle,
		Generation: p.generation,
	}
	if len(p.items) > 0 {
		idx := p.order[p.pos]
		snap.CurrentIndex = idx
		item := p.items[idx]
		snap.Current = &item
	}
	return snap
}

// State reports the current machine state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
