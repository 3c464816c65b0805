package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/api"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/auth"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/config"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/drafts"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/logging"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/outbox"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/persistence/memory"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/persistence/postgres"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/scheduler"
	httptransport "github.com/GabrielVelasquez7/lanavetest-sub002/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup("cuadres-api", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo       domain.Repository
		dispatcher *outbox.Dispatcher
	)
	if cfg.PostgresURL != "" {
		if err := postgres.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDLQBaseDelay(cfg.DLQBaseDelay))
		ids, err := outbox.RegisterCatalog(ctx, registry)
		if err != nil {
			log.Warn().Err(err).Msg("schema registration incomplete, dispatcher will retry on delivery")
		}
		dispatcher.PrimeSchemas(ids)
		go dispatcher.Start(ctx)
	} else {
		log.Warn().Msg("POSTGRES_URL not set, using in-memory repository without event dispatch")
		repo = memory.NewRepository()
	}

	var store drafts.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		store = drafts.NewRedisStore(client, cfg.DraftTTL)
	} else {
		store = drafts.NewMemoryStore(cfg.DraftTTL)
	}

	service := domain.NewService(repo)

	var wg sync.WaitGroup
	if cfg.SyncSchedule != "" {
		sched, err := scheduler.New(cfg.SyncSchedule, service)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure sync scheduler")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
		log.Info().Str("schedule", cfg.SyncSchedule).Msg("sync scheduler started")
	}

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx, time.Minute)
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	router := api.NewRouter(api.NewHandler(service, store), api.RouterConfig{
		CORSOrigin:      cfg.CORSOrigin,
		CORSCredentials: cfg.CORSCredentials,
		RequestTimeout:  15 * time.Second,
		Auth:            authMiddleware.Wrap,
		RateLimiter:     limiter,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router)

	log.Info().Str("addr", cfg.HTTPAddress).Msg("cuadres api listening")
	if err := httptransport.Serve(ctx, server, 15*time.Second); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	stop()

	wg.Wait()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
