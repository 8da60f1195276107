package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Nixie-Tech-LLC/stheno/internal/config"
	"github.com/Nixie-Tech-LLC/stheno/internal/content"
	"github.com/Nixie-Tech-LLC/stheno/internal/db"
	"github.com/Nixie-Tech-LLC/stheno/internal/device"
	"github.com/Nixie-Tech-LLC/stheno/internal/engine"
	"github.com/Nixie-Tech-LLC/stheno/internal/live"
	"github.com/Nixie-Tech-LLC/stheno/internal/media"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
	"github.com/Nixie-Tech-LLC/stheno/internal/redis"
	"github.com/Nixie-Tech-LLC/stheno/internal/telemetry"
)

// cacheSweepMaxAge is how long an unused cached asset survives.
const cacheSweepMaxAge = 30 * 24 * time.Hour

// engineRegistry satisfies the screens endpoints' Registry; a player
// daemon hosts one engine per local screen, normally exactly one.
type engineRegistry map[int]*engine.Engine

func (r engineRegistry) Engine(screenID int) (*engine.Engine, bool) {
	eng, ok := r[screenID]
	return eng, ok
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	// postgres
	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	defer db.Close()
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	store := db.NewStore(db.DB)

	// redis snapshot cache (optional)
	var snapshots *redis.Cache
	if cfg.RedisAddress != "" {
		redis.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		snapshots = redis.NewCache(redis.Rdb)
	}

	// device identity resolves the screen this box drives
	identity, err := device.Load(cfg.IdentityPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.IdentityPath).Msg("failed to load device identity")
	}
	screen, err := store.GetScreenByDeviceUID(identity.DeviceUID)
	if err != nil {
		log.Fatal().Err(err).Str("device_uid", identity.DeviceUID).Msg("device is not paired to a screen")
	}
	log.Info().Int("screen_id", screen.ID).Str("device_uid", identity.DeviceUID).Msg("device resolved")

	if cfg.ClientInformation != "" || cfg.ClientWidth > 0 || cfg.ClientHeight > 0 {
		if err := store.UpdateScreenClientInfo(screen.ID, cfg.ClientInformation, cfg.ClientWidth, cfg.ClientHeight); err != nil {
			log.Warn().Err(err).Msg("failed to report client info")
		}
	}

	settings, err := store.GetDeviceSettings(screen.ID)
	if err != nil {
		log.Fatal().Err(err).Int("screen_id", screen.ID).Msg("failed to load device settings")
	}
	settings = applyOverrides(settings, identity)

	// live update channel; without a broker the engine still works off
	// its periodic schedule refresh
	brokerURL := cfg.MQTTBrokerURL
	if identity.BrokerURL != "" {
		brokerURL = identity.BrokerURL
	}
	var broker live.Broker
	if brokerURL != "" {
		b, err := live.NewMQTTBroker(brokerURL, fmt.Sprintf("stheno-%s", identity.DeviceUID))
		if err != nil {
			log.Error().Err(err).Str("broker", brokerURL).Msg("MQTT unavailable, continuing without live updates")
		} else {
			broker = b
			defer b.Close()
		}
	}

	// media cache
	var fetcher media.Fetcher
	if cfg.UseSpaces {
		fetcher, err = media.NewSpacesFetcher(cfg.SpacesEndpoint, cfg.SpacesRegion, cfg.SpacesBucket, cfg.SpacesAccessKey, cfg.SpacesSecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init spaces fetcher")
		}
	} else {
		fetcher = media.NewHTTPFetcher(nil)
	}
	mediaCache := media.NewCache(cfg.MediaCacheDir, fetcher)

	// content loading: store assembly, retries, last-good fallback, prefetch
	var snaps content.Snapshots
	if snapshots != nil {
		snaps = snapshots
	}
	loader := media.NewPrefetchingLoader(content.NewLoader(content.LoaderConfig{
		Source:    content.NewStoreSource(store),
		Snapshots: snaps,
	}), mediaCache)

	// telemetry
	reporter := telemetry.NewReporter(screen.ID, store)
	reporter.Start()
	defer reporter.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(engine.Config{
		ScreenID:  screen.ID,
		Settings:  settings,
		Entries:   store,
		Loader:    loader,
		Broker:    broker,
		OnAdvance: reporter.Record,
		OnDirective: func(d model.Directive) {
			log.Info().Str("kind", string(d.Kind)).Int("entry_id", d.EntryID).Msg("directive changed")
		},
	})
	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine start failed")
	}
	defer eng.Stop()

	// identity hot reload re-applies field overrides without a restart
	watcher, err := device.Watch(ctx, cfg.IdentityPath, func(id device.Identity) {
		if id.DeviceUID != identity.DeviceUID {
			log.Warn().Str("device_uid", id.DeviceUID).Msg("device uid changed on disk, restart to re-pair")
			return
		}
		fresh, err := store.GetDeviceSettings(screen.ID)
		if err != nil {
			log.Error().Err(err).Msg("settings refresh failed on identity change")
			return
		}
		eng.SetSettings(applyOverrides(fresh, id))
	})
	if err != nil {
		log.Warn().Err(err).Msg("identity watch unavailable")
	} else {
		defer watcher.Stop()
	}

	// maintenance jobs
	jobs := cron.New()
	if _, err := jobs.AddFunc("@every 1m", func() {
		if err := store.TouchScreen(screen.ID, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Msg("heartbeat failed")
		}
	}); err != nil {
		log.Error().Err(err).Msg("failed to schedule heartbeat")
	}
	if _, err := jobs.AddFunc("@hourly", func() {
		if n, err := mediaCache.Sweep(cacheSweepMaxAge); err != nil {
			log.Warn().Err(err).Msg("media cache sweep failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("media cache swept")
		}
	}); err != nil {
		log.Error().Err(err).Msg("failed to schedule cache sweep")
	}
	if snapshots != nil {
		if _, err := jobs.AddFunc("@every 30s", func() {
			raw, err := json.Marshal(eng.Snapshot())
			if err != nil {
				return
			}
			_ = snapshots.SaveScreenState(ctx, screen.ID, raw)
		}); err != nil {
			log.Error().Err(err).Msg("failed to schedule state publish")
		}
	}
	jobs.Start()
	defer func() { <-jobs.Stop().Done() }()

	// http surface
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	RegisterRoutes(r, cfg, store, loader, engineRegistry{screen.ID: eng})

	srv := &http.Server{Addr: cfg.ServerAddress, Handler: r}
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Msg("player listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

// applyOverrides lets the identity file win over server-side settings for
// the fields a field tech can touch.
func applyOverrides(settings model.DeviceSettings, id device.Identity) model.DeviceSettings {
	if id.TimezoneName != "" {
		settings.TimezoneName = id.TimezoneName
	}
	return settings
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			log.Warn().Err(err).Str("path", cfg.LogFile).Msg("could not create log directory")
		} else {
			w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    50, // megabytes
				MaxBackups: 5,
				MaxAge:     14, // days
				Compress:   true,
			})
		}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
