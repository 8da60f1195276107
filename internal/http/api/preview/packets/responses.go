package packets

import (
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// RESPONSES FOR /api/preview/*

// PreviewResponse carries everything a reviewer's client needs to render
// the shared content.
type PreviewResponse struct {
	Target    model.ContentRef `json:"target"`
	Tree      model.DesignTree `json:"tree"`
	Stale     bool             `json:"stale"`
	ExpiresAt string           `json:"expires_at,omitempty"`
}

// CommentResponse mirrors model.Comment but flattens time to RFC3339.
type CommentResponse struct {
	ID        int    `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}
