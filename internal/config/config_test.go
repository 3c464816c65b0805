package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Empty(t, cfg.PostgresURL)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, 72*time.Hour, cfg.DraftTTL)
	require.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	require.Equal(t, []string{"cuadre_transactions", "cuadre_review_events", "sync_requests"}, cfg.ConsumerTopics)
	require.Equal(t, float64(20), cfg.RateLimitRPS)
	require.Equal(t, 40, cfg.RateLimitBurst)
	require.Equal(t, "*", cfg.CORSOrigin)
	require.False(t, cfg.CORSCredentials)
}

func TestLoadRefusesCredentialsWithWildcardOrigin(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	_, err := Load()
	require.ErrorContains(t, err, "CORS_ALLOW_CREDENTIALS")

	t.Setenv("CORS_ORIGIN", "https://backoffice.lanave.example")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.CORSCredentials)
	require.Equal(t, "https://backoffice.lanave.example", cfg.CORSOrigin)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SYNC_SCHEDULE", " 0 6 * * * ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.Equal(t, "0 6 * * *", cfg.SyncSchedule)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "xml")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("OUTBOX_BATCH_SIZE", "0")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("OUTBOX_BATCH_SIZE", "10")
	t.Setenv("RATE_LIMIT_BURST", "0")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("RATE_LIMIT_RPS", "0")
	cfg, err := Load()
	require.NoError(t, err)
	require.Zero(t, cfg.RateLimitRPS)
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
