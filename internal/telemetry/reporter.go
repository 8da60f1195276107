package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// Sink persists event batches. Implemented by the database store.
type Sink interface {
	InsertPlaybackEvents(events []model.PlaybackEvent) error
}

// maxBuffered bounds memory while the sink is unreachable. Oldest events
// go first: recent playback history is worth more than ancient history.
const maxBuffered = 10000

// Reporter collects committed advances and flushes them in batches on a
// cron cadence. Recording never blocks playback; a failed flush re-buffers
// and tries again next run.
type Reporter struct {
	screenID int
	sink     Sink
	cron     *cron.Cron

	mu  sync.Mutex
	buf []model.PlaybackEvent
}

func NewReporter(screenID int, sink Sink) *Reporter {
	return &Reporter{screenID: screenID, sink: sink}
}

// Record buffers one advance event. Called from player hooks.
func (r *Reporter) Record(zoneID string, item model.PlayableItem, trigger model.AdvanceTrigger, shownFor time.Duration) {
	ev := model.PlaybackEvent{
		EventID:    uuid.NewString(),
		ScreenID:   r.screenID,
		ZoneID:     zoneID,
		ItemID:     item.ID,
		Trigger:    trigger,
		ShownFor:   shownFor,
		ShownMs:    shownFor.Milliseconds(),
		OccurredAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.buf = append(r.buf, ev)
	if overflow := len(r.buf) - maxBuffered; overflow > 0 {
		r.buf = r.buf[overflow:]
		log.Warn().Int("dropped", overflow).Msg("telemetry buffer full, dropping oldest events")
	}
	r.mu.Unlock()
}

// Start schedules periodic flushes.
func (r *Reporter) Start() {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc("@every 30s", r.Flush); err != nil {
		log.Error().Err(err).Msg("failed to schedule telemetry flush")
		return
	}
	r.cron.Start()
}

// Stop halts the cron and drains the buffer one last time.
func (r *Reporter) Stop() {
	if r.cron != nil {
		ctx := r.cron.Stop()
		<-ctx.Done()
	}
	r.Flush()
}

// Flush writes the current batch. On failure the batch is prepended back
// so order is preserved for the next attempt.
func (r *Reporter) Flush() {
	r.mu.Lock()
	batch := r.buf
	r.buf = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := r.sink.InsertPlaybackEvents(batch); err != nil {
		log.Error().Err(err).Int("count", len(batch)).Msg("telemetry flush failed, re-buffering")
		r.mu.Lock()
		r.buf = append(batch, r.buf...)
		if overflow := len(r.buf) - maxBuffered; overflow > 0 {
			r.buf = r.buf[overflow:]
		}
		r.mu.Unlock()
		return
	}
	log.Debug().Int("count", len(batch)).Msg("telemetry batch flushed")
}

// Pending reports the buffered event count.
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
