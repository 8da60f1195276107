package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ContentType discriminates what a ContentRef points at.
type ContentType string

const (
	ContentPlaylist ContentType = "playlist"
	ContentLayout   ContentType = "layout"
	ContentScene    ContentType = "scene"
)

// ContentRef is the tagged reference consumed uniformly by the compositor.
// A nil *ContentRef on a schedule entry means "screen off".
type ContentRef struct {
	Type ContentType `db:"type" json:"type"`
	ID   int         `db:"id"   json:"id"`
}

func (r ContentRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// ParseContentRef inverts String: "playlist:3" -> {playlist, 3}.
func ParseContentRef(s string) (ContentRef, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return ContentRef{}, fmt.Errorf("malformed content ref %q", s)
	}
	id, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ContentRef{}, fmt.Errorf("malformed content ref %q", s)
	}
	switch typ := ContentType(s[:i]); typ {
	case ContentPlaylist, ContentLayout, ContentScene:
		return ContentRef{Type: typ, ID: id}, nil
	default:
		return ContentRef{}, fmt.Errorf("unknown content type %q", typ)
	}
}

// MediaKind selects the completion trigger for a playable item.
type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaApp     MediaKind = "app"
	MediaWebPage MediaKind = "web_page"
)

// TimerDriven reports whether the kind advances on a duration timer.
// Video carries an intrinsic end-of-media signal and never uses the timer.
func (k MediaKind) TimerDriven() bool {
	return k != MediaVideo
}

type PlayableItem struct {
	ID        int             `db:"id"         json:"id"`
	Kind      MediaKind       `db:"kind"       json:"kind"`
	Name      string          `db:"name"       json:"name"`
	Source    string          `db:"source"     json:"source"`
	Duration  int             `db:"duration"   json:"duration"` // seconds; ignored for video
	AppConfig json.RawMessage `db:"app_config" json:"app_config,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// appConfig is the subset of the app configuration blob the engine reads.
type appConfig struct {
	SelfTerminating bool `json:"self_terminating"`
}

// SelfCompleting reports whether an app item signals its own completion
// instead of running on the duration timer.
func (p PlayableItem) SelfCompleting() bool {
	if p.Kind != MediaApp || len(p.AppConfig) == 0 {
		return false
	}
	var cfg appConfig
	if err := json.Unmarshal(p.AppConfig, &cfg); err != nil {
		return false
	}
	return cfg.SelfTerminating
}

// TimerSeconds is the effective duration the player arms for this item,
// or 0 when the item advances on an external completion signal only.
func (p PlayableItem) TimerSeconds() int {
	if p.Kind == MediaVideo || p.SelfCompleting() {
		return 0
	}
	return p.Duration
}
