// Package config loads service settings from defaults, an optional YAML file
// and NCF_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Allocator AllocatorConfig `mapstructure:"allocator"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// Development reports whether the process runs with development logging.
func (a AppConfig) Development() bool {
	return a.Env == "development"
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

type DatabaseConfig struct {
	URL              string        `mapstructure:"url"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type AllocatorConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	MaxSequenceHops int           `mapstructure:"max_sequence_hops"`
}

type MonitorConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlertDays       int           `mapstructure:"alert_days"`
	LowAvailability float64       `mapstructure:"low_availability"`
	Concurrency     int           `mapstructure:"concurrency"`
}

type OutboxConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
	Compress        bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("database.lock_timeout", 2*time.Second)

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("allocator.max_attempts", 4)
	v.SetDefault("allocator.base_backoff", 25*time.Millisecond)
	v.SetDefault("allocator.max_backoff", 400*time.Millisecond)
	v.SetDefault("allocator.max_sequence_hops", 3)

	v.SetDefault("monitor.interval", time.Hour)
	v.SetDefault("monitor.alert_days", 30)
	v.SetDefault("monitor.low_availability", 90.0)
	v.SetDefault("monitor.concurrency", 4)

	v.SetDefault("outbox.interval", 5*time.Second)
	v.SetDefault("outbox.batch_size", 100)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.prefix", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.path_style", false)
	v.SetDefault("archive.compress", false)
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NCF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Allocator.MaxAttempts <= 0 {
		return fmt.Errorf("allocator.max_attempts must be positive")
	}
	if c.Allocator.MaxSequenceHops <= 0 {
		return fmt.Errorf("allocator.max_sequence_hops must be positive")
	}
	if c.Monitor.LowAvailability <= 0 || c.Monitor.LowAvailability > 100 {
		return fmt.Errorf("monitor.low_availability must be in (0, 100]")
	}
	if c.Monitor.AlertDays < 0 {
		return fmt.Errorf("monitor.alert_days cannot be negative")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when the archive is enabled")
	}
	return nil
}
