package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// StoreDriver selects the persistence backend: mongo, sqlite or memory.
	StoreDriver   string `env:"STORE_DRIVER, default=mongo"`
	DirectoryFile string `env:"DIRECTORY_FILE"`

	Mongo   MongoConfig
	Redis   RedisConfig
	SQLite  SQLiteConfig
	Sync    SyncConfig
	Session SessionConfig
	Report  ReportConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=timetrack"`
}

// RedisConfig points at the change-notification broker. An empty Addr runs
// the service on polling alone.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=timetrack.db"`
}

type SyncConfig struct {
	TimerPoll   time.Duration `env:"SYNC_TIMER_POLL,   default=10s"`
	EntriesPoll time.Duration `env:"SYNC_ENTRIES_POLL, default=15s"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT, default=30m"`
}

type ReportConfig struct {
	PageSize int `env:"REPORT_PAGE_SIZE, default=25"`
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMongo, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Sync.TimerPoll <= 0 || c.Sync.EntriesPoll <= 0 {
		return fmt.Errorf("config: poll intervals must be positive")
	}
	if c.Report.PageSize <= 0 {
		return fmt.Errorf("config: REPORT_PAGE_SIZE must be positive")
	}
	return nil
}
