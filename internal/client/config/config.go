package config

import "time"

// Config holds runtime settings for the cardsync client.
//
// Durations are time.Duration values; the JSON loader accepts "5s" style
// strings and the environment loader accepts the same through caarlos0/env.
type Config struct {
	DatabasePath    string        `env:"DATABASE_PATH"`
	StorageDriver   string        `env:"STORAGE_DRIVER"`
	RemoteDSN       string        `env:"REMOTE_DSN"`
	JWTSecret       string        `env:"JWT_SECRET"`
	LocalSaveDelay  time.Duration `env:"LOCAL_SAVE_DELAY"`
	RemoteSyncDelay time.Duration `env:"REMOTE_SYNC_DELAY"`
	SyncTimeout     time.Duration `env:"SYNC_TIMEOUT"`
	RetryInterval   time.Duration `env:"RETRY_INTERVAL"`
	DebugAddr       string        `env:"DEBUG_ADDR"`
}

// Storage drivers understood by localdb.OpenRepository.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "cards.db"
	c.StorageDriver = DriverSQLite
	c.LocalSaveDelay = 5 * time.Second
	c.RemoteSyncDelay = 30 * time.Second
	c.SyncTimeout = 12 * time.Second
	c.RetryInterval = 2 * time.Minute
	c.DebugAddr = "127.0.0.1:8089"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
