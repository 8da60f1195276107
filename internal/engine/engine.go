package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/live"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
	"github.com/Nixie-Tech-LLC/stheno/internal/schedule"
)

// EntrySource provides the schedule snapshot the resolver evaluates.
type EntrySource interface {
	ScheduleEntriesForScreen(screenID int) ([]model.ScheduleEntry, error)
}

// TreeLoader fetches the renderable tree for a content reference. stale
// means the tree came from a last-good cache and the engine should keep
// retrying for a fresh one.
type TreeLoader interface {
	Load(ctx context.Context, ref model.ContentRef) (tree model.DesignTree, stale bool, err error)
}

type Config struct {
	ScreenID     int
	Settings     model.DeviceSettings
	Entries      EntrySource
	Loader       TreeLoader
	Broker       live.Broker // optional
	Clock        Clock
	TickEvery    time.Duration // directive re-evaluation period
	RefreshEvery time.Duration // periodic full schedule refetch
	OnAdvance    AdvanceHook
	OnShow       ShowFunc
	OnDirective  func(model.Directive)
}

const (
	defaultTickEvery    = time.Second
	defaultRefreshEvery = 5 * time.Minute
	minRetryDelay       = 2 * time.Second
	maxRetryDelay       = time.Minute
)

// Engine drives one screen: a ticking resolver decides what should be on
// screen, the loader fetches it, and the compositor keeps a player running
// per zone. All directive application happens on the single run goroutine,
// so a tree is never mounted under a directive it does not belong to.
type Engine struct {
	screenID     int
	clock        Clock
	entries      EntrySource
	loader       TreeLoader
	broker       live.Broker
	resolver     *schedule.Resolver
	comp         *Compositor
	tickEvery    time.Duration
	refreshEvery time.Duration
	onDirective  func(model.Directive)

	mu         sync.Mutex
	settings   model.DeviceSettings
	directive  model.Directive
	hasDir     bool
	mountedRef *model.ContentRef
	stale      bool
	pending    *model.ContentRef
	retryAt    time.Time
	retryDelay time.Duration

	nudge chan struct{}
	stop  chan struct{}
	done  chan struct{}
	subs  []live.Subscription
}

func New(cfg Config) *Engine {
	clk := cfg.Clock
	if clk == nil {
		clk = RealClock{}
	}
	tick := cfg.TickEvery
	if tick == 0 {
		tick = defaultTickEvery
	}
	refresh := cfg.RefreshEvery
	if refresh == 0 {
		refresh = defaultRefreshEvery
	}

	loc, err := cfg.Settings.Location()
	if err != nil {
		log.Error().Err(err).
			Int("screen_id", cfg.ScreenID).
			Str("timezone", cfg.Settings.TimezoneName).
			Msg("invalid screen timezone, falling back to UTC")
		loc = time.UTC
	}

	e := &Engine{
		screenID:     cfg.ScreenID,
		clock:        clk,
		entries:      cfg.Entries,
		loader:       cfg.Loader,
		broker:       cfg.Broker,
		resolver:     schedule.NewResolver(cfg.ScreenID, loc),
		tickEvery:    tick,
		refreshEvery: refresh,
		onDirective:  cfg.OnDirective,
		settings:     cfg.Settings,
		retryDelay:   minRetryDelay,
		nudge:        make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	e.comp = NewCompositor(CompositorConfig{
		ScreenID:  cfg.ScreenID,
		Clock:     clk,
		Broker:    cfg.Broker,
		OnAdvance: cfg.OnAdvance,
		OnShow:    cfg.OnShow,
	})
	return e
}

// Start loads the schedule, subscribes to live updates and launches the
// run loop.
func (e *Engine) Start(ctx context.Context) error {
	e.refreshEntries()

	if e.broker != nil {
		if sub, err := e.broker.Subscribe(live.ScheduleTopic(e.screenID), e.handleScheduleNudge); err != nil {
			log.Error().Err(err).Int("screen_id", e.screenID).Msg("failed to subscribe to schedule updates")
		} else {
			e.subs = append(e.subs, sub)
		}
		if sub, err := e.broker.Subscribe(live.SettingsTopic(e.screenID), e.handleSettingsPush); err != nil {
			log.Error().Err(err).Int("screen_id", e.screenID).Msg("failed to subscribe to settings updates")
		} else {
			e.subs = append(e.subs, sub)
		}
	}

	go e.run(ctx)
	return nil
}

// Stop halts the run loop and tears down every zone.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.done
	for _, s := range e.subs {
		s.Unsubscribe()
	}
	e.subs = nil
	e.comp.Unmount()
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := e.clock.NewTicker(e.tickEvery)
	defer ticker.Stop()
	refresh := e.clock.NewTicker(e.refreshEvery)
	defer refresh.Stop()

	e.evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C():
			e.evaluate(ctx)
		case <-refresh.C():
			e.refreshEntries()
			e.evaluate(ctx)
		case <-e.nudge:
			e.refreshEntries()
			e.evaluate(ctx)
		}
	}
}

// evaluate re-resolves the directive and applies it when it changed. On
// quiet ticks it only retries a pending load, so an unchanged directive
// never touches running zones.
func (e *Engine) evaluate(ctx context.Context) {
	d, changed := e.resolver.Tick(e.clock.Now())
	if changed {
		e.apply(ctx, d)
		return
	}
	e.retryPending(ctx)
}

func (e *Engine) apply(ctx context.Context, d model.Directive) {
	e.mu.Lock()
	e.directive = d
	e.hasDir = true
	e.mu.Unlock()
	if e.onDirective != nil {
		e.onDirective(d)
	}

	switch d.Kind {
	case model.DirectiveScreenOff:
		e.unmountAll()
	case model.DirectiveFiller:
		filler := e.fillerRef()
		if filler == nil {
			e.unmountAll()
			return
		}
		e.mountRef(ctx, *filler)
	case model.DirectiveRender:
		e.mountRef(ctx, *d.Content)
	}
}

func (e *Engine) unmountAll() {
	e.comp.Unmount()
	e.mu.Lock()
	e.mountedRef = nil
	e.stale = false
	e.pending = nil
	e.mu.Unlock()
}

// mountRef loads and mounts a tree. A load that only yields the last-good
// copy still mounts (a stale tree beats a blank screen) but stays pending
// so quiet ticks keep retrying with backoff until a fresh copy lands.
func (e *Engine) mountRef(ctx context.Context, ref model.ContentRef) {
	e.mu.Lock()
	if e.mountedRef != nil && *e.mountedRef == ref && !e.stale {
		e.pending = nil
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	tree, stale, err := e.loader.Load(ctx, ref)
	if err != nil {
		log.Error().Err(err).
			Int("screen_id", e.screenID).
			Str("ref", ref.String()).
			Msg("no tree available for directive, keeping previous output")
		e.deferRetry(ref)
		return
	}

	e.comp.Mount(tree)
	e.mu.Lock()
	r := ref
	e.mountedRef = &r
	e.stale = stale
	if stale {
		e.pending = &r
		e.bumpRetryLocked()
	} else {
		e.pending = nil
		e.retryDelay = minRetryDelay
	}
	e.mu.Unlock()
}

func (e *Engine) deferRetry(ref model.ContentRef) {
	e.mu.Lock()
	r := ref
	e.pending = &r
	e.bumpRetryLocked()
	e.mu.Unlock()
}

func (e *Engine) bumpRetryLocked() {
	e.retryAt = e.clock.Now().Add(e.retryDelay)
	e.retryDelay *= 2
	if e.retryDelay > maxRetryDelay {
		e.retryDelay = maxRetryDelay
	}
}

func (e *Engine) retryPending(ctx context.Context) {
	e.mu.Lock()
	ref := e.pending
	due := ref != nil && !e.clock.Now().Before(e.retryAt)
	e.mu.Unlock()
	if !due {
		return
	}
	e.mountRef(ctx, *ref)
}

func (e *Engine) refreshEntries() {
	entries, err := e.entries.ScheduleEntriesForScreen(e.screenID)
	if err != nil {
		log.Error().Err(err).Int("screen_id", e.screenID).Msg("schedule refresh failed, keeping previous snapshot")
		return
	}
	e.resolver.SetEntries(entries)
}

func (e *Engine) handleScheduleNudge(string, []byte) {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// handleSettingsPush applies a device settings document pushed over the
// live channel: timezone swaps re-aim the resolver, filler changes take
// effect on the next filler directive.
func (e *Engine) handleSettingsPush(topic string, payload []byte) {
	var s model.DeviceSettings
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("ignoring malformed settings payload")
		return
	}
	e.SetSettings(s)
}

// SetSettings replaces the whole settings snapshot.
func (e *Engine) SetSettings(s model.DeviceSettings) {
	loc, err := s.Location()
	if err != nil {
		log.Error().Err(err).
			Int("screen_id", e.screenID).
			Str("timezone", s.TimezoneName).
			Msg("pushed timezone is invalid, keeping previous location")
	} else {
		e.resolver.SetLocation(loc)
	}
	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

func (e *Engine) fillerRef() *model.ContentRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.FillerRef
}

// Zone exposes a mounted zone's player to control and completion surfaces.
func (e *Engine) Zone(zoneID string) (*Player, bool) {
	return e.comp.Zone(zoneID)
}

// Snapshot is the externally visible state document: the directive in
// force, what is actually mounted, and each zone's playback position.
type Snapshot struct {
	ScreenID  int               `json:"screen_id"`
	Directive model.Directive   `json:"directive"`
	TreeRef   *model.ContentRef `json:"tree_ref,omitempty"`
	Stale     bool              `json:"stale"`
	Zones     []PlayerSnapshot  `json:"zones"`
	At        time.Time         `json:"at"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		ScreenID:  e.screenID,
		Directive: e.directive,
		TreeRef:   e.mountedRef,
		Stale:     e.stale,
		At:        e.clock.Now(),
	}
	e.mu.Unlock()
	snap.Zones = e.comp.Snapshot()
	return snap
}
