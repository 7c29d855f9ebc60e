package booking

import (
	"context"

	"github.com/robertarktes/busops/internal/observability"
)

type compensation struct {
	step string
	undo func(context.Context) error
}

// saga collects the undo actions of completed writes so a failed multi-write
// operation can be rolled back in reverse order.
type saga struct {
	steps  []compensation
	logger observability.Logger
}

func (s *saga) add(step string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs the compensations even if ctx is already cancelled. Failures
// are logged and counted; the caller reports the step error.
func (s *saga) rollback(ctx context.Context, cause error) {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			observability.Compensations.WithLabelValues(c.step, "failed").Inc()
			s.logger.WithError(err).WithField("step", c.step).WithField("cause", cause.Error()).Error("compensation failed")
			continue
		}
		observability.Compensations.WithLabelValues(c.step, "ok").Inc()
	}
}
