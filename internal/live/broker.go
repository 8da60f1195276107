package live

import "fmt"

// Handler receives messages published to a subscribed topic. Handlers run on
// the broker's delivery goroutine and must not block.
type Handler func(topic string, payload []byte)

// Subscription is a handle to one active topic subscription.
type Subscription interface {
	Unsubscribe()
}

// Broker carries live updates from the authoring backend down to running
// engines: schedule change nudges, per-zone design replacements, and device
// setting pushes.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, h Handler) (Subscription, error)
	Close()
}

// ScheduleTopic carries a nudge whenever a screen's schedule entries change.
func ScheduleTopic(screenID int) string {
	return fmt.Sprintf("screens/%d/schedule", screenID)
}

// ZoneDesignTopic carries the replacement zone payload for live edits.
func ZoneDesignTopic(screenID int, zoneID string) string {
	return fmt.Sprintf("screens/%d/zones/%s/design", screenID, zoneID)
}

// SettingsTopic carries device setting pushes (timezone, filler, theme).
func SettingsTopic(screenID int) string {
	return fmt.Sprintf("screens/%d/settings", screenID)
}
