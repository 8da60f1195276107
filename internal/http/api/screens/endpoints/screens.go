package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/engine"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/api"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/api/screens/packets"
)

// Registry resolves the engines this process hosts. A player daemon
// normally hosts exactly one.
type Registry interface {
	Engine(screenID int) (*engine.Engine, bool)
}

type ScreensController struct {
	registry Registry
}

func newScreensController(registry Registry) *ScreensController {
	return &ScreensController{registry: registry}
}

// ScreensModule mounts the read-only ops surface for hosted screens.
func ScreensModule(registry Registry) api.Module {
	ctl := newScreensController(registry)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/screens/:id/state", ctl.getState)
		c.GET("/screens/:id/health", ctl.getHealth)
	})
}

func (s *ScreensController) hostedEngine(ctx *gin.Context) (*engine.Engine, *api.Error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		log.Error().Err(err).Str("id_raw", ctx.Param("id")).Msg("invalid id in request")
		return nil, &api.Error{Code: http.StatusBadRequest, Message: "invalid id"}
	}

	eng, ok := s.registry.Engine(id)
	if !ok {
		return nil, &api.Error{Code: http.StatusNotFound, Message: "screen not hosted here"}
	}

	return eng, nil
}

// GET /api/screens/:id/state
func (s *ScreensController) getState(ctx *gin.Context) (any, *api.Error) {
	eng, apiErr := s.hostedEngine(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	return eng.Snapshot(), nil
}

// GET /api/screens/:id/health
func (s *ScreensController) getHealth(ctx *gin.Context) (any, *api.Error) {
	eng, apiErr := s.hostedEngine(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	snap := eng.Snapshot()
	return packets.HealthResponse{
		Status:    "ok",
		ScreenID:  snap.ScreenID,
		Directive: string(snap.Directive.Kind),
		Zones:     len(snap.Zones),
		Stale:     snap.Stale,
		At:        snap.At.Format(time.RFC3339),
	}, nil
}
