package packets

// REQUESTS FOR /api/preview/*

type AddCommentRequest struct {
	Author string `json:"author" binding:"required"`
	Body   string `json:"body"   binding:"required"`
}

// ControlRequest drives live sessions of a share over plain HTTP. An
// empty Session applies to every live session of the token.
type ControlRequest struct {
	Session string `json:"session,omitempty"`
	Zone    string `json:"zone"   binding:"required"`
	Action  string `json:"action" binding:"required"` // next | previous | goto | toggle_play
	Index   int    `json:"index,omitempty"`
}

// PreviewSocketMessage is the inbound protocol for live preview sessions.
// Type control drives a zone; media_end and load_failure echo the shown
// generation back so stale reports are dropped.
type PreviewSocketMessage struct {
	Type       string `json:"type"`
	Zone       string `json:"zone"`
	Action     string `json:"action,omitempty"` // next | previous | goto | toggle_play
	Index      int    `json:"index,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
}
