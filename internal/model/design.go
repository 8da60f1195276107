package model

// Frame positions a zone as percentages of the canvas, resolution
// independent. Frames may overlap; Z resolves visual stacking only and
// never couples playback between zones.
type Frame struct {
	X float64 `db:"x_pct" json:"x"`
	Y float64 `db:"y_pct" json:"y"`
	W float64 `db:"w_pct" json:"w"`
	H float64 `db:"h_pct" json:"h"`
}

// FullCanvas is the implicit frame used when non-layout content occupies
// the whole screen.
func FullCanvas() Frame {
	return Frame{X: 0, Y: 0, W: 100, H: 100}
}

// Zone is one independently timed region of a design tree. Zones are held
// by value: no zone references another, and tearing one down can never
// reach into a sibling.
type Zone struct {
	ID       string         `db:"zone_key" json:"id"`
	Frame    Frame          `db:"-"        json:"frame"`
	Z        int            `db:"z_index"  json:"z"`
	Content  ContentRef     `db:"-"        json:"content"`
	Items    []PlayableItem `db:"-"        json:"items"`
	AutoPlay bool           `db:"-"        json:"auto_play"`
	Shuffle  bool           `db:"-"        json:"shuffle"`
}

// DesignTree is the renderable form of a content reference. Layout content
// carries one Zone per region; playlist and scene content are normalized to
// a single implicit full-canvas zone so the compositor has one code path.
type DesignTree struct {
	Ref   ContentRef `json:"ref"`
	Zones []Zone     `json:"zones"`
}

// SingleZoneTree wraps an item list as the implicit full-canvas zone for
// non-layout content.
func SingleZoneTree(ref ContentRef, items []PlayableItem, shuffle bool) DesignTree {
	return DesignTree{
		Ref: ref,
		Zones: []Zone{{
			ID:       "canvas",
			Frame:    FullCanvas(),
			Z:        0,
			Content:  ref,
			Items:    items,
			AutoPlay: true,
			Shuffle:  shuffle,
		}},
	}
}
