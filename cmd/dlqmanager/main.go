package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/config"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/logging"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/outbox"
	httptransport "github.com/GabrielVelasquez7/lanavetest-sub002/internal/transport/http"
)

const (
	defaultDLQBatchSize = 50
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup("cuadres-dlqmanager", cfg.LogLevel, cfg.LogFormat)

	if cfg.PostgresURL == "" {
		log.Fatal().Msg("POSTGRES_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)

	metricsDone := make(chan struct{})
	if cfg.MetricsAddress != "" {
		metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
			Address:      cfg.MetricsAddress,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}, promhttp.Handler())
		go func() {
			defer close(metricsDone)
			log.Info().Str("addr", cfg.MetricsAddress).Msg("dlq manager metrics listening")
			if err := httptransport.Serve(ctx, metricsSrv, 10*time.Second); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	} else {
		close(metricsDone)
	}

	log.Info().
		Dur("interval", cfg.DLQPollInterval).
		Int("max_retries", cfg.DLQMaxRetries).
		Msg("dlq manager started")

	manager.Run(ctx, cfg.DLQPollInterval, defaultDLQBatchSize)
	log.Info().Msg("dlq manager received shutdown signal")

	<-metricsDone
}
