package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/http/middleware"
)

// Module is a pluggable feature that attaches its endpoints to a Controller (a gin group).
type Module interface {
	Mount(c *Controller)
}

// ModuleFunc lets you define a Module with a simple function.
type ModuleFunc func(c *Controller)

func (f ModuleFunc) Mount(c *Controller) { f(c) }

// GroupConfig tells the api package how to mount a group. Auth groups
// gate every route on the :token path param carrying a valid share
// token; the player has no account sessions.
type GroupConfig struct {
	Prefix     string
	Auth       bool
	SecretKey  string            // required if Auth == true
	Middleware []gin.HandlerFunc // optional additional middleware
}

// MountGroup mounts one or more Modules under a prefix. Custom
// middleware runs before the share-token check.
func MountGroup(parent gin.IRoutes, cfg GroupConfig, modules ...Module) {
	grp := groupOf(parent, cfg.Prefix)

	for _, mw := range cfg.Middleware {
		grp.Use(mw)
	}
	if cfg.Auth {
		if cfg.SecretKey == "" {
			log.Fatal().Str("prefix", cfg.Prefix).Msg("api.MountGroup: Auth enabled but SecretKey is empty")
		}
		grp.Use(middleware.ShareTokenMiddleware(cfg.SecretKey))
	}

	controller := &Controller{Group: grp}
	for _, m := range modules {
		m.Mount(controller)
	}
	log.Debug().Str("prefix", cfg.Prefix).Bool("auth", cfg.Auth).Int("modules", len(modules)).Msg("api group mounted")
}

func groupOf(parent gin.IRoutes, prefix string) *gin.RouterGroup {
	switch v := parent.(type) {
	case *gin.Engine:
		return v.Group(prefix)
	case *gin.RouterGroup:
		if prefix == "" {
			return v
		}
		return v.Group(prefix)
	default:
		log.Fatal().Str("type", fmt.Sprintf("%T", parent)).Msg("api.MountGroup: unsupported router type")
		return nil
	}
}
