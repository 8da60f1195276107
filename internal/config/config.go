package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds environment-based settings for the player daemon
type Config struct {
	Environment    string
	ServerAddress  string
	ShareSecret    string
	DatabaseURL    string
	MigrationsPath string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	// empty broker URL runs the in-process bus only
	MQTTBrokerURL string

	IdentityPath  string
	MediaCacheDir string

	UseSpaces       bool
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesAccessKey string
	SpacesSecretKey string

	// optional kiosk hardware description reported on boot
	ClientInformation string
	ClientWidth       int
	ClientHeight      int

	LogFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}
	migrations := os.Getenv("MIGRATIONS_PATH")
	if migrations == "" {
		migrations = "./migrations"
	}
	identityPath := os.Getenv("IDENTITY_PATH")
	if identityPath == "" {
		identityPath = "./identity.json"
	}
	cacheDir := os.Getenv("MEDIA_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./media-cache"
	}

	return &Config{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  addr,
		ShareSecret:    secret,
		DatabaseURL:    dbURL,
		MigrationsPath: migrations,

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),

		IdentityPath:  identityPath,
		MediaCacheDir: cacheDir,

		UseSpaces:       os.Getenv("USE_SPACES") == "true",
		SpacesEndpoint:  os.Getenv("SPACES_ENDPOINT"),
		SpacesRegion:    os.Getenv("SPACES_REGION"),
		SpacesBucket:    os.Getenv("SPACES_BUCKET"),
		SpacesAccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: os.Getenv("SPACES_SECRET_KEY"),

		ClientInformation: os.Getenv("CLIENT_INFORMATION"),
		ClientWidth:       intEnv("CLIENT_WIDTH"),
		ClientHeight:      intEnv("CLIENT_HEIGHT"),

		LogFile: os.Getenv("LOG_FILE"),
	}, nil
}

func intEnv(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}
