package db

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// InsertPlaybackEvents writes one batch of advance events. Event ids are
// client-generated, so a retried batch lands exactly once.
func (s *pgStore) InsertPlaybackEvents(events []model.PlaybackEvent) error {
	if len(events) == 0 {
		return nil
	}
	const q = `
	INSERT INTO playback_events
	(event_id, screen_id, zone_id, item_id, trigger, shown_ms, occurred_at)
	VALUES
	(:event_id, :screen_id, :zone_id, :item_id, :trigger, :shown_ms, :occurred_at)
	ON CONFLICT (event_id) DO NOTHING;`
	if _, err := s.db.NamedExec(q, events); err != nil {
		log.Error().Err(err).Int("count", len(events)).Msg("[db] InsertPlaybackEvents: failed to insert batch")
		return err
	}
	return nil
}
