package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/busops/internal/adapters"
	redisadapter "github.com/robertarktes/busops/internal/adapters/redis"
	"github.com/robertarktes/busops/internal/config"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/payroll"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal("payroll worker needs a shared store, set STORE_BACKEND to mongo or crdb")
	}
	if cfg.RedisAddr == "" {
		log.Fatal("payroll worker needs REDIS_ADDR to announce each due salary once")
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "busops-payroll-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	backend, err := adapters.Open(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer backend.Close()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	marks := redisadapter.NewCache(redisClient)

	fin := finance.NewService(backend.Store, backend.Sink, logger)
	worker := NewPayrollWorker(payroll.NewService(backend.Store, fin, backend.Sink, logger), marks, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.PayrollInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown payroll worker")
}

type PayrollWorker struct {
	payroll *payroll.Service
	marks   payroll.Marker
	logger  observability.Logger
}

func NewPayrollWorker(svc *payroll.Service, marks payroll.Marker, logger observability.Logger) *PayrollWorker {
	return &PayrollWorker{payroll: svc, marks: marks, logger: logger}
}

// Run scans once at start and then on every tick.
func (w *PayrollWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.scanWithRetry(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *PayrollWorker) scanWithRetry(ctx context.Context) {
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		announced, err := w.payroll.Scan(ctx, w.marks)
		if err == nil {
			if announced > 0 {
				w.logger.WithField("announced", announced).Info("payroll due announced")
			}
			return
		}
		w.logger.WithError(err).WithField("attempt", i+1).Warn("payroll scan failed")

		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
	w.logger.Error("payroll scan failed after retries")
}
