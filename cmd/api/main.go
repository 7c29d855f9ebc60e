package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/busops/internal/adapters"
	redisadapter "github.com/robertarktes/busops/internal/adapters/redis"
	"github.com/robertarktes/busops/internal/booking"
	"github.com/robertarktes/busops/internal/config"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/fleet"
	httphandler "github.com/robertarktes/busops/internal/http"
	"github.com/robertarktes/busops/internal/idempotency"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/payroll"
	"github.com/robertarktes/busops/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "busops-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	backend, err := adapters.Open(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer backend.Close()

	var (
		idempBackend idempotency.Backend = idempotency.NewMemoryBackend()
		counter      rateLimit.Counter   = rateLimit.NewMemoryCounter()
		ready                            = backend.Ping
	)
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient)
		idempBackend = redisadapter.NewIdempotency(redisClient)
		counter = redisCache
		ready = func(ctx context.Context) error {
			if err := backend.Ping(ctx); err != nil {
				return err
			}
			return redisCache.Ping(ctx)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency keys and rate limits are kept per process")
	}
	idemp := idempotency.NewIdempotency(idempBackend, cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(counter, cfg.RateLimitPerMinute, time.Minute)

	fin := finance.NewService(backend.Store, backend.Sink, logger)
	handlers := httphandler.NewHandlers(httphandler.Deps{
		Ledger:  booking.NewLedger(backend.Store, backend.Sink, logger),
		Fleet:   fleet.NewRegistry(backend.Store, logger),
		Finance: fin,
		Payroll: payroll.NewService(backend.Store, fin, backend.Sink, logger),
		Logger:  logger,
		Ready:   ready,
	})

	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).WithField("backend", cfg.StoreBackend).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
