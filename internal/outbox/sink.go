package outbox

import (
	"context"

	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
)

// Sink accepts domain events for asynchronous delivery.
type Sink interface {
	Emit(ctx context.Context, event domain.Event) error
}

// LogSink only logs events. It is used when no outbox database is configured.
type LogSink struct {
	Logger observability.Logger
}

func (s LogSink) Emit(ctx context.Context, event domain.Event) error {
	s.Logger.WithField("event_type", event.Type).WithField("aggregate_id", event.AggregateID).Debug("event emitted")
	return nil
}
