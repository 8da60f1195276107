package model

// DirectiveKind says what a screen should be doing right now.
type DirectiveKind string

const (
	DirectiveRender    DirectiveKind = "render"
	DirectiveScreenOff DirectiveKind = "screen_off"
	DirectiveFiller    DirectiveKind = "filler"
)

// Directive is the resolved decision for one screen at one instant.
// Immutable once produced; the resolver only emits a new one when the
// resolution actually changes, never on every tick.
type Directive struct {
	Kind    DirectiveKind `json:"kind"`
	Content *ContentRef   `json:"content,omitempty"` // set iff Kind == render
	EntryID int           `json:"entry_id,omitempty"` // winning entry, 0 for filler
}

// Equal compares by kind and content reference. EntryID is advisory
// (telemetry) and deliberately excluded: replacing an entry with another
// entry pointing at the same content must not restart playback.
func (d Directive) Equal(o Directive) bool {
	if d.Kind != o.Kind {
		return false
	}
	if (d.Content == nil) != (o.Content == nil) {
		return false
	}
	if d.Content != nil && *d.Content != *o.Content {
		return false
	}
	return true
}

func ScreenOff(entryID int) Directive {
	return Directive{Kind: DirectiveScreenOff, EntryID: entryID}
}

func Filler() Directive {
	return Directive{Kind: DirectiveFiller}
}

func Render(ref ContentRef, entryID int) Directive {
	return Directive{Kind: DirectiveRender, Content: &ref, EntryID: entryID}
}
