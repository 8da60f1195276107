package endpoints

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/db"
	"github.com/Nixie-Tech-LLC/stheno/internal/engine"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/api"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/api/preview/packets"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type PreviewController struct {
	store  db.Store
	loader engine.TreeLoader
	clock  engine.Clock

	mu       sync.Mutex
	sessions map[string]map[string]*engine.PreviewSession // token -> session id -> session
}

func newPreviewController(store db.Store, loader engine.TreeLoader, clk engine.Clock) *PreviewController {
	if clk == nil {
		clk = engine.RealClock{}
	}
	return &PreviewController{
		store:    store,
		loader:   loader,
		clock:    clk,
		sessions: make(map[string]map[string]*engine.PreviewSession),
	}
}

// PreviewModule mounts the token-scoped /preview endpoints. The share
// token is the only credential; reviewers never hold an account. The
// group must run ShareTokenMiddleware.
func PreviewModule(store db.Store, loader engine.TreeLoader) api.Module {
	ctl := newPreviewController(store, loader, nil)
	return api.ModuleFunc(func(c *api.Controller) {
		// share resolution
		c.GET("/:token", ctl.resolveShare)

		// review comments
		c.GET("/:token/comments", ctl.listComments)
		c.POST("/:token/comments", ctl.addComment)

		// interactive playback
		c.POST("/:token/control", ctl.controlSessions)
		c.Raw(http.MethodGet, "/:token/ws", ctl.liveSession)
	})
}

// shareFromToken finishes what the middleware started: the signature
// proves the link was minted by us, the share row gates it. The signed
// claim is authoritative for what is shared; the row only revokes.
func (p *PreviewController) shareFromToken(ctx *gin.Context) (*model.PreviewShare, *api.Error) {
	target, ok := middleware.GetShareTarget(ctx)
	if !ok {
		return nil, &api.Error{Code: http.StatusUnauthorized, Message: "unauthorized"}
	}

	share, err := p.store.GetPreviewShareByToken(ctx.Param("token"))
	if err != nil {
		return nil, &api.Error{Code: http.StatusNotFound, Message: "share not found"}
	}
	if share.Revoked {
		return nil, &api.Error{Code: http.StatusGone, Message: "share revoked"}
	}
	if share.ExpiresAt != nil && !p.clock.Now().Before(*share.ExpiresAt) {
		return nil, &api.Error{Code: http.StatusGone, Message: "share expired"}
	}

	share.Target = target
	return share, nil
}

// GET /api/preview/:token
func (p *PreviewController) resolveShare(ctx *gin.Context) (any, *api.Error) {
	share, apiErr := p.shareFromToken(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	tree, stale, err := p.loader.Load(ctx.Request.Context(), share.Target)
	if err != nil {
		log.Error().Err(err).Str("target", share.Target.String()).Msg("[preview] resolveShare: failed to load content")
		return nil, &api.Error{Code: http.StatusBadGateway, Message: "content unavailable"}
	}

	resp := packets.PreviewResponse{
		Target: share.Target,
		Tree:   tree,
		Stale:  stale,
	}
	if share.ExpiresAt != nil {
		resp.ExpiresAt = share.ExpiresAt.Format(time.RFC3339)
	}

	return resp, nil
}

// GET /api/preview/:token/comments
func (p *PreviewController) listComments(ctx *gin.Context) (any, *api.Error) {
	share, apiErr := p.shareFromToken(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	comments, err := p.store.ListCommentsForShare(share.ID)
	if err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not list comments"}
	}

	out := make([]packets.CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, packets.CommentResponse{
			ID:        cm.ID,
			Author:    cm.Author,
			Body:      cm.Body,
			CreatedAt: cm.CreatedAt.Format(time.RFC3339),
		})
	}

	return out, nil
}

// POST /api/preview/:token/comments
func (p *PreviewController) addComment(ctx *gin.Context) (any, *api.Error) {
	share, apiErr := p.shareFromToken(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.AddCommentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	comment, err := p.store.CreateComment(share.ID, request.Author, request.Body)
	if err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not create comment"}
	}

	return packets.CommentResponse{
		ID:        comment.ID,
		Author:    comment.Author,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt.Format(time.RFC3339),
	}, nil
}

// POST /api/preview/:token/control
//
// Drives the token's live sessions from outside the socket, e.g. an
// operator's control strip next to an embedded preview.
func (p *PreviewController) controlSessions(ctx *gin.Context) (any, *api.Error) {
	if _, apiErr := p.shareFromToken(ctx); apiErr != nil {
		return nil, apiErr
	}

	var request packets.ControlRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	token := ctx.Param("token")
	p.mu.Lock()
	targets := make([]*engine.PreviewSession, 0, len(p.sessions[token]))
	for id, s := range p.sessions[token] {
		if request.Session == "" || request.Session == id {
			targets = append(targets, s)
		}
	}
	p.mu.Unlock()

	if len(targets) == 0 {
		return nil, &api.Error{Code: http.StatusNotFound, Message: "no live session"}
	}

	for _, s := range targets {
		if err := s.Control(request.Zone, request.Action, request.Index); err != nil {
			return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
		}
	}

	return gin.H{"message": "applied"}, nil
}

func (p *PreviewController) registerSession(token string, s *engine.PreviewSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[token] == nil {
		p.sessions[token] = make(map[string]*engine.PreviewSession)
	}
	p.sessions[token][s.ID()] = s
}

func (p *PreviewController) unregisterSession(token string, s *engine.PreviewSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions[token], s.ID())
	if len(p.sessions[token]) == 0 {
		delete(p.sessions, token)
	}
}

// GET /api/preview/:token/ws
//
// Upgrades to a websocket and runs a private playback session of the
// shared content. Every connection gets its own session; closing the
// socket tears it down.
func (p *PreviewController) liveSession(ctx *gin.Context) {
	share, apiErr := p.shareFromToken(ctx)
	if apiErr != nil {
		ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
		return
	}

	tree, _, err := p.loader.Load(ctx.Request.Context(), share.Target)
	if err != nil {
		log.Error().Err(err).Str("target", share.Target.String()).Msg("[preview] liveSession: failed to load content")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "content unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("[preview] liveSession: websocket upgrade failed")
		return
	}

	session := engine.NewPreviewSession(tree, p.clock)
	token := ctx.Param("token")
	p.registerSession(token, session)
	log.Info().Str("session", session.ID()).Str("target", share.Target.String()).Msg("[preview] live session started")

	defer func() {
		p.unregisterSession(token, session)
		session.Close()
		conn.Close()
		log.Info().Str("session", session.ID()).Msg("[preview] live session closed")
	}()

	// writer: greeting state, then the session's event stream
	go func() {
		greeting := engine.PreviewEvent{Kind: "state", Session: session.ID(), Snapshot: session.Snapshot()}
		if err := conn.WriteJSON(greeting); err != nil {
			return
		}
		for {
			select {
			case <-session.Done():
				return
			case ev := <-session.Events():
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	}()

	// reader: reviewer controls and playback reports until disconnect
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg packets.PreviewSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Str("session", session.ID()).Msg("[preview] liveSession: bad message")
			continue
		}

		switch msg.Type {
		case "control":
			if err := session.Control(msg.Zone, msg.Action, msg.Index); err != nil {
				log.Debug().Err(err).Str("session", session.ID()).Msg("[preview] liveSession: control rejected")
			}
		case "media_end":
			session.ReportMediaEnd(msg.Zone, msg.Generation)
		case "load_failure":
			session.ReportLoadFailure(msg.Zone, msg.Generation)
		default:
			log.Debug().Str("type", msg.Type).Str("session", session.ID()).Msg("[preview] liveSession: unknown message type")
		}
	}
}
