package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/config"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/consumer"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/logging"
	httptransport "github.com/GabrielVelasquez7/lanavetest-sub002/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := logging.Setup("cuadres-consumer", cfg.LogLevel, cfg.LogFormat)

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

	handler := consumer.NewPersistenceHandler(pool)

	metricsDone := make(chan struct{})
	if cfg.MetricsAddress != "" {
		metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
			Address:      cfg.MetricsAddress,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}, promhttp.Handler())
		go func() {
			defer close(metricsDone)
			log.Info().Str("addr", cfg.MetricsAddress).Msg("consumer metrics listening")
			if err := httptransport.Serve(ctx, metricsSrv, 10*time.Second); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	} else {
		close(metricsDone)
	}

	var wg sync.WaitGroup

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLogger := logger.With().Str("topic", topic).Logger()
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(topicLogger))

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLogger.Info().Str("group", cfg.ConsumerGroupID).Msg("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLogger.Error().Err(err).Msg("consumer stopped with error")
			}
		}(reader)
	}

	<-ctx.Done()
	log.Info().Msg("consumer shutdown requested")

	<-metricsDone
	wg.Wait()
}
