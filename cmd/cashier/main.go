package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mbsaloka/lume-cashier-app/internal/backendclient"
	"github.com/mbsaloka/lume-cashier-app/internal/catalog"
	"github.com/mbsaloka/lume-cashier-app/internal/checkout"
	"github.com/mbsaloka/lume-cashier-app/internal/config"
	h "github.com/mbsaloka/lume-cashier-app/internal/http"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/metrics"
)

func main() {
	cfg, err := config.LoadCashier()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.Init("cashier", cfg.LogLevel, os.Stdout)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// the catalog falls back to the backend on every cache error
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, catalog cache disabled until it recovers")
	}
	cancelPing()

	backend := backendclient.New(cfg.BackendURL, backendclient.Options{
		Timeout:         cfg.RequestTimeout,
		BreakerFailures: cfg.Breaker.Failures,
		BreakerOpenFor:  cfg.Breaker.OpenFor,
		BreakerHalfOpen: cfg.Breaker.HalfOpen,
	})
	products := catalog.New(backend, catalog.NewRedisCache(rdb, cfg.CatalogCacheTTL))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg, "cashier")
	commitMetrics := metrics.NewCommitMetrics(reg)

	machine := checkout.NewMachine(backend, checkout.Options{
		TransferAccounts: cfg.TransferAccounts,
		Observer:         commitMetrics,
	})

	router := h.NewRouter(h.RouterDeps{
		Checkout:       h.NewCheckoutHandler(machine, products, cfg.RequestTimeout),
		Catalog:        h.NewCatalogHandler(products, cfg.RequestTimeout),
		Reports:        h.NewReportHandler(backend, cfg.RequestTimeout),
		Metrics:        serverMetrics,
		MetricsHandler: metrics.Handler(reg),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(router, "cashier"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.BackendURL).Msg("cashier starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
