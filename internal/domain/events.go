package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated  = "booking.created"
	EventBookingUpdated  = "booking.updated"
	EventBookingDeleted  = "booking.deleted"
	EventFinanceRecorded = "finance.recorded"
	EventPayrollPaid     = "payroll.paid"
	EventPayrollDue      = "payroll.due"
)

// Event is a fact about a state change, relayed to the message broker.
type Event struct {
	ID            uuid.UUID              `json:"id"`
	Type          string                 `json:"type"`
	AggregateType string                 `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Data          map[string]interface{} `json:"data"`
}

func NewEvent(eventType, aggregateType, aggregateID string, data map[string]interface{}) Event {
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    time.Now().UTC(),
		Data:          data,
	}
}
