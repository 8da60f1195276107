package model

import "time"

// PreviewShare is a token-scoped review grant created by the authoring side.
// The engine only reads shares: a share whose token verifies but whose row
// is revoked (or missing) is refused.
type PreviewShare struct {
	ID        int        `db:"id"         json:"id"`
	Token     string     `db:"token"      json:"token"`
	Target    ContentRef `db:"-"          json:"target"`
	Revoked   bool       `db:"revoked"    json:"revoked"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Comment is one review note attached to a preview share.
type Comment struct {
	ID        int       `db:"id"         json:"id"`
	ShareID   int       `db:"share_id"   json:"share_id"`
	Author    string    `db:"author"     json:"author"`
	Body      string    `db:"body"       json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
