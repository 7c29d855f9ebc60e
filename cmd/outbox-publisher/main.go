package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/busops/internal/adapters"
	"github.com/robertarktes/busops/internal/adapters/rabbit"
	"github.com/robertarktes/busops/internal/config"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "busops-outbox-publisher")
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
	if backend.Source == nil {
		log.Fatalf("store backend %q keeps no outbox", cfg.StoreBackend)
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	publisher := outbox.NewPublisher(backend.Source, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.WithField("interval", cfg.OutboxInterval.String()).Info("Outbox publisher started")
	go publisher.Run(ctx, cfg.OutboxInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown outbox publisher")
}
