package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName      string `mapstructure:"app_name"`
	Env          string `mapstructure:"app_env"`
	LogLevel     string `mapstructure:"log_level"`
	ChannelsFile string `mapstructure:"channels_file"`
	SourcesFile  string `mapstructure:"sources_file"`
	Receiver     string `mapstructure:"receiver"`

	PollIntervalSeconds    int64         `mapstructure:"poll_interval"`
	PollInterval           time.Duration `mapstructure:"-"`
	WatchdogInterval       int           `mapstructure:"watchdog_interval"`
	NumMeta                int           `mapstructure:"num_meta"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	ShutdownTimeoutSeconds int64         `mapstructure:"shutdown_timeout"`
	ShutdownTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SQLitePath             string        `mapstructure:"sqlite_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "board-reminder")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("channels_file", "./configs/channels.yaml")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("receiver", "")
	v.SetDefault("poll_interval", 60) // seconds
	v.SetDefault("watchdog_interval", 30)
	v.SetDefault("num_meta", 15)
	v.SetDefault("max_consecutive_failures", 0)
	v.SetDefault("shutdown_timeout", 10) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/directory.db")
	v.SetDefault("sqlite_path", "./data/directory.sqlite")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize validates raw values and derives the duration fields. It is re-run
// after CLI flags override loaded values.
func (cfg *Config) Finalize() error {
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.WatchdogInterval < 0 {
		return fmt.Errorf("invalid watchdog_interval (must be zero or a positive cycle count)")
	}
	if cfg.NumMeta <= 0 {
		return fmt.Errorf("invalid num_meta (must be positive)")
	}
	if cfg.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("invalid max_consecutive_failures (must not be negative)")
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid shutdown_timeout (must be positive seconds)")
	}
	cfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}

// StoragePath returns the on-disk path for the configured storage backend.
func (cfg *Config) StoragePath() string {
	if cfg.StorageType == "sqlite" {
		return cfg.SQLitePath
	}
	return cfg.BBoltPath
}
