package model

import "time"

// Screen represents a display device in the system.
type Screen struct {
	ID                int       `db:"id"           json:"id"`
	DeviceID          *string   `db:"device_id"    json:"device_id"`
	ClientInformation *string   `db:"client_information" json:"client_information"`
	ClientWidth       *int      `db:"client_width"  json:"client_width"`
	ClientHeight      *int      `db:"client_height"  json:"client_height"`
	Name              string    `db:"name"         json:"name"`
	Location          *string   `db:"location"     json:"location"`
	TimezoneName      string    `db:"timezone"     json:"timezone"`
	Paired            bool      `db:"paired"       json:"paired"`
	GroupID           *int      `db:"group_id"     json:"group_id"`
	CreatedAt         time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"   json:"updated_at"`
}

type ScreenGroup struct {
	ID          int       `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// Theme is the brand styling shared read-only across all zones of a screen.
type Theme struct {
	Background string `db:"background" json:"background"`
	Accent     string `db:"accent"     json:"accent"`
	LogoURL    string `db:"logo_url"   json:"logo_url"`
}

// DeviceSettings is the read-only per-screen configuration snapshot the
// engine consumes. Zones never mutate it; a fresh snapshot replaces the
// whole value.
type DeviceSettings struct {
	ScreenID     int         `db:"screen_id" json:"screen_id"`
	TimezoneName string      `db:"timezone"  json:"timezone"`
	FillerRef    *ContentRef `db:"-"         json:"filler,omitempty"`
	Theme        Theme       `db:"-"         json:"theme"`
}

// Location resolves the screen's IANA timezone, falling back to UTC when
// the assignment is missing or bogus. Recurrence correctness depends on
// this being the author-local zone; a fallback here is a config problem
// surfaced by the caller, not something the engine can repair.
func (s DeviceSettings) Location() (*time.Location, error) {
	if s.TimezoneName == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.TimezoneName)
}
