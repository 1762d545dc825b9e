package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Log      LogConfig
	Discount DiscountConfig
	Cache    CacheConfig
	Kafka    KafkaConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name           string `envconfig:"DB_NAME" default:"discount_db"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns       int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns       int    `envconfig:"DB_MIN_CONNS" default:"5"`
	ConnectRetries int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// DSN returns the PostgreSQL connection string. Pool sizing is appended
// only when set so a zero-value DBConfig renders a plain URL.
func (c DBConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.sslMode())
	if c.MaxConns > 0 {
		dsn += fmt.Sprintf("&pool_max_conns=%d", c.MaxConns)
	}
	if c.MinConns > 0 {
		dsn += fmt.Sprintf("&pool_min_conns=%d", c.MinConns)
	}
	return dsn
}

func (c DBConfig) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// DiscountConfig holds redemption rule configuration.
type DiscountConfig struct {
	// Timezone names the location whose calendar day bounds the
	// per-customer daily transaction cap.
	Timezone string `envconfig:"DISCOUNT_TIMEZONE" default:"UTC"`
}

// Location resolves Timezone.
func (c DiscountConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CacheConfig holds Redis cache configuration. An empty RedisAddr disables caching.
type CacheConfig struct {
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	ActiveTTL     time.Duration `envconfig:"CACHE_ACTIVE_TTL" default:"15s"`
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// KafkaConfig holds event publishing configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers          []string `envconfig:"KAFKA_BROKERS"`
	RedemptionsTopic string   `envconfig:"KAFKA_TOPIC_REDEMPTIONS" default:"discount.redemption.applied"`
	CampaignsTopic   string   `envconfig:"KAFKA_TOPIC_CAMPAIGNS" default:"discount.campaign.changed"`
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Discount.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
