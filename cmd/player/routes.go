package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/stheno/internal/config"
	"github.com/Nixie-Tech-LLC/stheno/internal/db"
	"github.com/Nixie-Tech-LLC/stheno/internal/engine"
	"github.com/Nixie-Tech-LLC/stheno/internal/http/api"
	previewapi "github.com/Nixie-Tech-LLC/stheno/internal/http/api/preview/endpoints"
	screensapi "github.com/Nixie-Tech-LLC/stheno/internal/http/api/screens/endpoints"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, store db.Store, loader engine.TreeLoader, registry screensapi.Registry) {
	// CORS: the preview surface is embedded by the editor, a browser app
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/preview",
		Auth:      true,
		SecretKey: cfg.ShareSecret,
	},
		previewapi.PreviewModule(store, loader),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		screensapi.ScreensModule(registry),
	)

	// locally cached assets for the kiosk webview
	r.Static("/media", cfg.MediaCacheDir)
}
