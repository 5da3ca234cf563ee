package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port int    `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	CatalogPath string `envconfig:"CATALOG_PATH" default:"catalog.json"`

	SnapshotBackend string        `envconfig:"SNAPSHOT_BACKEND" default:"file"`
	SnapshotDir     string        `envconfig:"SNAPSHOT_DIR" default:"snapshots"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisTTL        time.Duration `envconfig:"REDIS_SNAPSHOT_TTL" default:"48h"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" default:""`
	MongoURI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string        `envconfig:"MONGO_DATABASE" default:"auction"`

	BidSeconds      int           `envconfig:"BID_SECONDS" default:"10"`
	PauseSeconds    int           `envconfig:"PAUSE_SECONDS" default:"3"`
	RoomIdleTimeout time.Duration `envconfig:"ROOM_IDLE_TIMEOUT" default:"2h"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	switch cfg.SnapshotBackend {
	case "file", "redis", "postgres", "mongo", "none":
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.SnapshotBackend)
	}
	if cfg.SnapshotBackend == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("SNAPSHOT_BACKEND=postgres requires DATABASE_URL")
	}
	if cfg.BidSeconds < 1 {
		return nil, fmt.Errorf("BID_SECONDS must be at least 1, got %d", cfg.BidSeconds)
	}
	if cfg.PauseSeconds < 0 {
		return nil, fmt.Errorf("PAUSE_SECONDS must not be negative, got %d", cfg.PauseSeconds)
	}
	return &cfg, nil
}
