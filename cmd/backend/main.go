package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mbsaloka/lume-cashier-app/internal/api"
	"github.com/mbsaloka/lume-cashier-app/internal/config"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/metrics"
	"github.com/mbsaloka/lume-cashier-app/internal/publisher"
	"github.com/mbsaloka/lume-cashier-app/internal/store"
)

const requestTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadBackend()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.Init("backend", cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	repo, err := store.NewRepository(connectCtx, cfg.Postgres.DSN())
	cancelConnect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Postgres.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	poller := publisher.NewOutboxPoller(
		repo,
		publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...),
		cfg.Kafka.PollInterval,
		cfg.Kafka.BatchSize,
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := api.NewRouter(api.RouterDeps{
		Handler:        api.NewHandler(repo, repo, requestTimeout),
		Metrics:        metrics.NewServerMetrics(reg, "backend"),
		MetricsHandler: metrics.Handler(reg),
		Ready:          repo.Ping,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(router, "backend"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Strs("kafka_brokers", cfg.Kafka.Brokers).Msg("backend starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	wg.Wait()
	if err := poller.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka writer")
	}

	log.Info().Msg("server exited")
}
