// Package config loads the layered application configuration (file +
// environment overrides) via viper, mirroring the teacher's
// internal/config package: one typed sub-struct per concern.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Replicator ReplicatorConfig `mapstructure:"replicator"`
	EventHub   EventHubConfig   `mapstructure:"event_hub"`
}

// ServerConfig holds Read API HTTP server settings.
type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
	StreamHeartbeat         time.Duration `mapstructure:"stream_heartbeat"`
	RateLimitPerSecond      float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst          int           `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig holds the durable-store (Postgres) connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// LogConfig holds structured-logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds the Prometheus metrics endpoint settings. They
// are loaded but not read anywhere else: no metrics endpoint is
// served.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ReplicatorConfig holds the tunables of §6's replicator table.
type ReplicatorConfig struct {
	StepBatchSize  int           `mapstructure:"step_batch_size"`
	StepInterval   time.Duration `mapstructure:"step_interval"`
	DumpBatchSize  int           `mapstructure:"dump_batch_size"`
}

// EventHubConfig holds the tunables of §6's event-hub table.
type EventHubConfig struct {
	ConsumerIdleTTL          time.Duration `mapstructure:"consumer_idle_ttl"`
	PublishCleanupFrequency  int           `mapstructure:"publish_cleanup_frequency"`
	ReportFrequency          int           `mapstructure:"report_frequency"`
}

// Load reads configuration from an optional file at path (if
// non-empty) and from REPLANE_-prefixed environment variables,
// applying defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("REPLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 15*time.Second)
	v.SetDefault("server.stream_heartbeat", 15*time.Second)
	v.SetDefault("server.rate_limit_per_second", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "replane")
	v.SetDefault("database.username", "replane")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("replicator.step_batch_size", 128)
	v.SetDefault("replicator.step_interval", 100*time.Millisecond)
	v.SetDefault("replicator.dump_batch_size", 256)

	v.SetDefault("event_hub.consumer_idle_ttl", 24*time.Hour)
	v.SetDefault("event_hub.publish_cleanup_frequency", 128)
	v.SetDefault("event_hub.report_frequency", 16)
}
