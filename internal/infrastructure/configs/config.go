package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PFC_"

const (
	StorageDatabase = "database"
	StorageMemory   = "memory"
)

type Config struct {
	HTTP       HTTPConfig       `koanf:"http"`
	Logging    LoggingConfig    `koanf:"logging"`
	Tracing    TracingConfig    `koanf:"tracing"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Auth       AuthConfig       `koanf:"auth"`
	Storage    StorageConfig    `koanf:"storage"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Redis      RedisConfig      `koanf:"redis"`
	RabbitMQ   RabbitMQConfig   `koanf:"rabbitmq"`
	Sessions   SessionsConfig   `koanf:"sessions"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	WebSocket  WebSocketConfig  `koanf:"websocket"`
	Presence   PresenceConfig   `koanf:"presence"`
	Overview   OverviewConfig   `koanf:"overview"`
	GlobalChat GlobalChatConfig `koanf:"global_chat"`
	Retention  RetentionConfig  `koanf:"retention"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`
	Encoding   string `koanf:"encoding"`
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Environment string  `koanf:"environment"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type EncryptionConfig struct {
	Key string `koanf:"key"`
}

type AuthConfig struct {
	JWTSecret  string `koanf:"jwt_secret"`
	CookieName string `koanf:"cookie_name"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
}

type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type MongoConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectionTimeout time.Duration `koanf:"connection_timeout"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RabbitMQConfig struct {
	URI      string `koanf:"uri"`
	Exchange string `koanf:"exchange"`
}

type SessionsConfig struct {
	MaxPerUser         int `koanf:"max_per_user"`
	MaxPerElevatedUser int `koanf:"max_per_elevated_user"`
}

type WindowConfig struct {
	Requests      int           `koanf:"requests"`
	Window        time.Duration `koanf:"window"`
	BlockDuration time.Duration `koanf:"block_duration"`
}

type RateLimitConfig struct {
	API  WindowConfig `koanf:"api"`
	Auth WindowConfig `koanf:"auth"`
	Chat WindowConfig `koanf:"chat"`
}

type WebSocketConfig struct {
	EventsPerSecond float64       `koanf:"events_per_second"`
	Burst           int           `koanf:"burst"`
	MaxMessageBytes int64         `koanf:"max_message_bytes"`
	PongWait        time.Duration `koanf:"pong_wait"`
}

type PresenceConfig struct {
	InactivityTimeout time.Duration `koanf:"inactivity_timeout"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
}

type OverviewConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type GlobalChatConfig struct {
	MessageTTL   time.Duration `koanf:"message_ttl"`
	HistoryLimit int           `koanf:"history_limit"`
}

type RetentionConfig struct {
	Interval   time.Duration `koanf:"interval"`
	MinGap     time.Duration `koanf:"min_gap"`
	AuditLogs  time.Duration `koanf:"audit_logs"`
	Statistics time.Duration `koanf:"statistics"`
}

// Load reads the YAML file (if any), applies defaults, then PFC_ prefixed
// environment variables where a double underscore separates levels:
// PFC_HTTP__PORT -> http.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(kenv.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Encryption.Key) < 16 {
		errs = append(errs, errors.New("encryption.key must be at least 16 characters"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Storage.Driver {
	case StorageDatabase:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the database storage driver"))
		}
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the database storage driver"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 9901)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})

	setDefault(k, "logging.level", "info")
	setDefault(k, "logging.encoding", "json")
	setDefault(k, "logging.max_size_mb", 100)
	setDefault(k, "logging.max_backups", 5)
	setDefault(k, "logging.max_age_days", 14)

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "http://jaeger:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.sample_ratio", 1.0)

	setDefault(k, "auth.cookie_name", "auth_token")

	setDefault(k, "storage.driver", StorageDatabase)
	setDefault(k, "postgres.max_open_conns", 25)
	setDefault(k, "postgres.max_idle_conns", 5)
	setDefault(k, "postgres.conn_max_lifetime", 30*time.Minute)
	setDefault(k, "mongo.database", "pfcontrol")
	setDefault(k, "mongo.connection_timeout", 20*time.Second)
	setDefault(k, "rabbitmq.exchange", "pfcontrol")

	// Quota
	setDefault(k, "sessions.max_per_user", 10)
	setDefault(k, "sessions.max_per_elevated_user", 50)

	// Rate limiter defaults
	setDefault(k, "rate_limit.api.requests", 300)
	setDefault(k, "rate_limit.api.window", time.Minute)
	setDefault(k, "rate_limit.auth.requests", 10)
	setDefault(k, "rate_limit.auth.window", time.Minute)
	setDefault(k, "rate_limit.auth.block_duration", 5*time.Minute)
	setDefault(k, "rate_limit.chat.requests", 20)
	setDefault(k, "rate_limit.chat.window", 10*time.Second)
	setDefault(k, "rate_limit.chat.block_duration", 30*time.Second)

	setDefault(k, "websocket.events_per_second", 5.0)
	setDefault(k, "websocket.burst", 10)
	setDefault(k, "websocket.max_message_bytes", 16*1024)
	setDefault(k, "websocket.pong_wait", 60*time.Second)

	setDefault(k, "presence.inactivity_timeout", 5*time.Minute)
	setDefault(k, "presence.sweep_interval", time.Minute)
	setDefault(k, "overview.interval", 30*time.Second)
	setDefault(k, "global_chat.message_ttl", 24*time.Hour)
	setDefault(k, "global_chat.history_limit", 50)

	setDefault(k, "retention.interval", time.Hour)
	setDefault(k, "retention.min_gap", 12*time.Hour)
	setDefault(k, "retention.audit_logs", 90*24*time.Hour)
	setDefault(k, "retention.statistics", 30*24*time.Hour)
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
