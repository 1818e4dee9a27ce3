package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Bracelet  BraceletConfig  `mapstructure:"bracelet"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Position  PositionConfig  `mapstructure:"position"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// BraceletConfig configures the telemetry stream subscription.
type BraceletConfig struct {
	StreamURL        string `mapstructure:"stream_url"`
	BackoffInitialMS int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMS     int    `mapstructure:"backoff_max_ms"`
	MaxRetries       int    `mapstructure:"max_retries"`
	DialTimeout      int    `mapstructure:"dial_timeout"` // seconds
}

// TrackingConfig configures the proximity engine and state store.
type TrackingConfig struct {
	SubjectID         string  `mapstructure:"subject_id"`
	EmitThresholdM    float64 `mapstructure:"emit_threshold_m"`
	AlertRadiusM      float64 `mapstructure:"alert_radius_m"`
	DefaultDistanceM  float64 `mapstructure:"default_distance_m"`
}

// PositionConfig configures the observer-side position provider.
type PositionConfig struct {
	Provider         string  `mapstructure:"provider"` // "http" | "fixed"
	URL              string  `mapstructure:"url"`
	PollIntervalSec  int     `mapstructure:"poll_interval_sec"`
	MovementMinM     float64 `mapstructure:"movement_min_m"`
	FirstFixTimeout  int     `mapstructure:"first_fix_timeout"` // seconds
	MaxStalenessSec  int     `mapstructure:"max_staleness_sec"`
	FallbackLat      float64 `mapstructure:"fallback_lat"`
	FallbackLon      float64 `mapstructure:"fallback_lon"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "carelink")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "carelink")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("bracelet.stream_url", "ws://localhost:9001/stream")
	v.SetDefault("bracelet.backoff_initial_ms", 1000)
	v.SetDefault("bracelet.backoff_max_ms", 30000)
	v.SetDefault("bracelet.max_retries", 10)
	v.SetDefault("bracelet.dial_timeout", 10)
	v.SetDefault("tracking.subject_id", "")
	v.SetDefault("tracking.emit_threshold_m", 0.5)
	v.SetDefault("tracking.alert_radius_m", 100)
	v.SetDefault("tracking.default_distance_m", 50)
	v.SetDefault("position.provider", "fixed")
	v.SetDefault("position.poll_interval_sec", 5)
	v.SetDefault("position.movement_min_m", 5)
	v.SetDefault("position.first_fix_timeout", 15)
	v.SetDefault("position.max_staleness_sec", 60)
	v.SetDefault("position.fallback_lat", -6.2088)
	v.SetDefault("position.fallback_lon", 106.8456)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "escalation-queue")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CARELINK_DATABASE_HOST → database.host
	v.SetEnvPrefix("CARELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Bracelet.StreamURL == "" {
		errs = append(errs, "bracelet.stream_url is required")
	}
	if c.Bracelet.BackoffInitialMS <= 0 {
		errs = append(errs, "bracelet.backoff_initial_ms must be positive")
	}
	if c.Bracelet.BackoffMaxMS < c.Bracelet.BackoffInitialMS {
		errs = append(errs, "bracelet.backoff_max_ms must be >= bracelet.backoff_initial_ms")
	}
	if c.Bracelet.MaxRetries <= 0 {
		errs = append(errs, "bracelet.max_retries must be positive")
	}
	if c.Tracking.EmitThresholdM < 0 {
		errs = append(errs, "tracking.emit_threshold_m must not be negative")
	}
	if c.Position.Provider != "fixed" && c.Position.Provider != "http" {
		errs = append(errs, fmt.Sprintf("position.provider must be fixed or http, got %q", c.Position.Provider))
	}
	if c.Position.Provider == "http" && c.Position.URL == "" {
		errs = append(errs, "position.url is required when position.provider is http")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
