package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// PreviewEvent is one message on a preview session's outbound stream.
// Session is only set on the greeting state event so the client learns
// its session id.
type PreviewEvent struct {
	Kind       string               `json:"kind"` // show | advance | state
	Session    string               `json:"session,omitempty"`
	Zone       string               `json:"zone,omitempty"`
	Item       *model.PlayableItem  `json:"item,omitempty"`
	Generation uint64               `json:"generation,omitempty"`
	Trigger    model.AdvanceTrigger `json:"trigger,omitempty"`
	Snapshot   []PlayerSnapshot     `json:"snapshot,omitempty"`
}

// PreviewSession hosts a playback simulation of shared content for one
// reviewer: the same compositor and players a screen runs, but driven by
// review controls instead of a schedule. Sessions are independent; two
// reviewers of the same share never affect each other.
type PreviewSession struct {
	id     string
	comp   *Compositor
	events chan PreviewEvent
	closed chan struct{}
	once   sync.Once
}

func NewPreviewSession(tree model.DesignTree, clk Clock) *PreviewSession {
	s := &PreviewSession{
		id:     uuid.NewString(),
		events: make(chan PreviewEvent, 64),
		closed: make(chan struct{}),
	}
	s.comp = NewCompositor(CompositorConfig{
		Clock:     clk,
		OnShow:    s.onShow,
		OnAdvance: s.onAdvance,
	})
	s.comp.Mount(tree)
	return s
}

func (s *PreviewSession) ID() string { return s.id }

// Events is the outbound stream consumed by the websocket writer.
func (s *PreviewSession) Events() <-chan PreviewEvent { return s.events }

// Done closes when the session is torn down.
func (s *PreviewSession) Done() <-chan struct{} { return s.closed }

// onShow forwards the render instruction with its generation; the client
// echoes the generation back when reporting media_end or load_failure.
func (s *PreviewSession) onShow(zone string, item model.PlayableItem, generation uint64) {
	s.emit(PreviewEvent{Kind: "show", Zone: zone, Item: &item, Generation: generation})
}

func (s *PreviewSession) onAdvance(zone string, item model.PlayableItem, trigger model.AdvanceTrigger, _ time.Duration) {
	s.emit(PreviewEvent{Kind: "advance", Zone: zone, Item: &item, Trigger: trigger})
}

// emit never blocks playback on a slow reviewer; the stream drops under
// backpressure and the next state event resynchronizes the client.
func (s *PreviewSession) emit(ev PreviewEvent) {
	select {
	case <-s.closed:
	case s.events <- ev:
	default:
		log.Debug().Str("session", s.id).Str("kind", ev.Kind).Msg("preview event dropped, slow consumer")
	}
}

// Control applies a reviewer action to one zone and emits the resulting
// state. index is only meaningful for goto.
func (s *PreviewSession) Control(zone, action string, index int) error {
	p, ok := s.comp.Zone(zone)
	if !ok {
		return fmt.Errorf("unknown zone %q", zone)
	}
	switch action {
	case "next":
		p.Next()
	case "previous":
		p.Previous()
	case "goto":
		p.GoTo(index)
	case "toggle_play":
		p.TogglePlay()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	s.emit(PreviewEvent{Kind: "state", Snapshot: s.comp.Snapshot()})
	return nil
}

// ReportMediaEnd lets the reviewer's client report intrinsic completion
// (video end, self-terminating app) for the generation it was shown.
func (s *PreviewSession) ReportMediaEnd(zone string, generation uint64) {
	if p, ok := s.comp.Zone(zone); ok {
		p.OnMediaEnd(generation)
	}
}

// ReportLoadFailure lets the reviewer's client report an asset that failed
// to load, advancing past it like a screen would.
func (s *PreviewSession) ReportLoadFailure(zone string, generation uint64) {
	if p, ok := s.comp.Zone(zone); ok {
		p.OnLoadFailure(generation)
	}
}

func (s *PreviewSession) Snapshot() []PlayerSnapshot {
	return s.comp.Snapshot()
}

// Close tears the session down. Safe to call more than once.
func (s *PreviewSession) Close() {
	s.once.Do(func() {
		close(s.closed)
		s.comp.Unmount()
	})
}
