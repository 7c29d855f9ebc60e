package rabbit

import (
	"context"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/busops/internal/observability"
)

type Consumer struct {
	ch     *amqp.Channel
	queue  string
	logger observability.Logger
}

// NewConsumer declares a durable queue bound to the events exchange with
// the given routing pattern, e.g. "#" for every event.
func NewConsumer(conn *amqp.Connection, queue, binding string, logger observability.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare exchange")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	if err := ch.QueueBind(queue, binding, Exchange, false, nil); err != nil {
		return nil, errors.Wrapf(err, "bind queue %s", queue)
	}
	if err := ch.Qos(20, 0, false); err != nil {
		return nil, errors.Wrap(err, "set qos")
	}
	return &Consumer{ch: ch, queue: queue, logger: logger}, nil
}

func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	return deliveries, errors.Wrapf(err, "consume %s", c.queue)
}

// Handle acks every delivery the handler accepts. A failed delivery is
// requeued once and dropped when it fails again.
func (c *Consumer) Handle(ctx context.Context, handler func(context.Context, amqp.Delivery) error) error {
	deliveries, err := c.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.Newf("delivery channel of %s closed", c.queue)
			}
			log := c.logger.WithField("message_id", d.MessageId).WithField("routing_key", d.RoutingKey)
			if err := handler(ctx, d); err != nil {
				log.WithError(err).Warn("message handling failed")
				if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
					return errors.Wrap(nackErr, "nack")
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				return errors.Wrap(err, "ack")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
