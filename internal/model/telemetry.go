package model

import "time"

// AdvanceTrigger records which completion source moved a zone forward.
type AdvanceTrigger string

const (
	TriggerTimer    AdvanceTrigger = "timer"
	TriggerMediaEnd AdvanceTrigger = "media_end"
	TriggerFailure  AdvanceTrigger = "load_failure"
	TriggerManual   AdvanceTrigger = "manual"
)

// PlaybackEvent is one committed advance, reported exactly once.
type PlaybackEvent struct {
	EventID    string         `db:"event_id"    json:"event_id"`
	ScreenID   int            `db:"screen_id"   json:"screen_id"`
	ZoneID     string         `db:"zone_id"     json:"zone_id"`
	ItemID     int            `db:"item_id"     json:"item_id"`
	Trigger    AdvanceTrigger `db:"trigger"     json:"trigger"`
	ShownFor   time.Duration  `db:"-"           json:"shown_for"`
	ShownMs    int64          `db:"shown_ms"    json:"-"`
	OccurredAt time.Time      `db:"occurred_at" json:"occurred_at"`
}
