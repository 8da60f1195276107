package model

import "time"

// Playlist is an ordered item list shown full-canvas.
type Playlist struct {
	ID        int            `db:"id"         json:"id"`
	Name      string         `db:"name"       json:"name"`
	Shuffle   bool           `db:"shuffle"    json:"shuffle"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
	Items     []PlayableItem `db:"-"          json:"items"`
}

// Layout is a multi-zone design: named regions, each carrying its own
// item list and geometry.
type Layout struct {
	ID        int       `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	Zones     []Zone    `db:"-"          json:"zones"`
}

// Scene is a single static item pinned full-canvas.
type Scene struct {
	ID        int          `db:"id"         json:"id"`
	Name      string       `db:"name"       json:"name"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	Item      PlayableItem `db:"-"          json:"item"`
}
