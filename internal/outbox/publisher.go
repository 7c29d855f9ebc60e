package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/busops/internal/observability"
)

// Record is an event waiting in the outbox.
type Record struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	DedupeKey     string
}

// Source hands out unpublished records. Relay calls publish for every record
// of a batch and the source marks the ones that succeeded.
type Source interface {
	RelayBatch(ctx context.Context, limit int, publish func(Record) error) (int, error)
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	source    Source
	broker    Broker
	logger    observability.Logger
	batchSize int
}

func NewPublisher(source Source, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{source: source, broker: broker, logger: logger, batchSize: 50}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil {
				p.logger.WithError(err).Error("outbox relay failed")
			}
		}
	}
}

// Flush relays one batch and returns how many records were published.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	var oldest time.Time
	n, err := p.source.RelayBatch(ctx, p.batchSize, func(rec Record) error {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Timestamp:   rec.CreatedAt,
			Type:        rec.EventType,
			Body:        rec.Payload,
		}
		if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
			observability.RabbitPublishRetries.Inc()
			return err
		}
		if oldest.IsZero() || rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		return nil
	})
	if !oldest.IsZero() {
		observability.OutboxLag.Set(time.Since(oldest).Seconds())
	}
	return n, err
}
