// Package config centralises configuration parsing for the cuadres service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
)

// Config captures runtime configuration values for the cuadres service.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string
	PostgresURL        string // Empty runs the API on the in-memory repository.
	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	JWTSecret          string
	JWTIssuer          string
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
	ConsumerGroupID    string
	ConsumerTopics     []string
	RedisAddr          string // Empty keeps drafts in process memory.
	DraftTTL           time.Duration
	SyncSchedule       string // Cron spec; empty disables scheduled sync requests.
	LogLevel           zerolog.Level
	LogFormat          string
	CORSOrigin         string
	CORSCredentials    bool // Sends Access-Control-Allow-Credentials; needs an explicit origin.
	RateLimitRPS       float64 // Per-caller request rate; zero disables limiting.
	RateLimitBurst     int
}

// Load reads configuration from the environment and an optional .env file, applying
// defaults suited to local development.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("METRICS_ADDRESS", "")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("KAFKA_BROKERS", "kafka:9092")
	v.SetDefault("SCHEMA_REGISTRY_URL", "http://schema-registry:8081")
	v.SetDefault("OUTBOX_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 25)
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("DLQ_POLL_INTERVAL", 30*time.Second)
	v.SetDefault("DLQ_MAX_RETRIES", 5)
	v.SetDefault("DLQ_BASE_DELAY", time.Minute)
	v.SetDefault("CONSUMER_GROUP_ID", "cuadres-audit")
	v.SetDefault("CONSUMER_TOPICS", strings.Join(events.Topics(), ","))
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("DRAFT_TTL", 72*time.Hour)
	v.SetDefault("SYNC_SCHEDULE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("CORS_ALLOW_CREDENTIALS", false)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("LOG_LEVEL")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	format := strings.ToLower(v.GetString("LOG_FORMAT"))
	switch format {
	case "json", "console", "ecs":
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: must be json, console or ecs", format)
	}

	cfg := Config{
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		MetricsAddress:     v.GetString("METRICS_ADDRESS"),
		PostgresURL:        v.GetString("POSTGRES_URL"),
		KafkaBrokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		SchemaRegistryURL:  v.GetString("SCHEMA_REGISTRY_URL"),
		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		DLQPollInterval:    v.GetDuration("DLQ_POLL_INTERVAL"),
		DLQMaxRetries:      v.GetInt("DLQ_MAX_RETRIES"),
		DLQBaseDelay:       v.GetDuration("DLQ_BASE_DELAY"),
		ConsumerGroupID:    v.GetString("CONSUMER_GROUP_ID"),
		ConsumerTopics:     splitAndTrim(v.GetString("CONSUMER_TOPICS")),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		DraftTTL:           v.GetDuration("DRAFT_TTL"),
		SyncSchedule:       strings.TrimSpace(v.GetString("SYNC_SCHEDULE")),
		LogLevel:           level,
		LogFormat:          format,
		CORSOrigin:         strings.TrimSpace(v.GetString("CORS_ORIGIN")),
		CORSCredentials:    v.GetBool("CORS_ALLOW_CREDENTIALS"),
		RateLimitRPS:       v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.OutboxBatchSize)
	}
	if cfg.CORSCredentials && (cfg.CORSOrigin == "*" || cfg.CORSOrigin == "") {
		return Config{}, fmt.Errorf("CORS_ALLOW_CREDENTIALS requires an explicit CORS_ORIGIN, got %q", cfg.CORSOrigin)
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set, got %d", cfg.RateLimitBurst)
	}
	return cfg, nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
