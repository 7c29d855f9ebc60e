package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the default registry by promauto.
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busops_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busops_booking_operations_total",
			Help: "Booking ledger operations by outcome",
		},
		[]string{"op", "result"},
	)

	SeatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busops_seat_conflicts_total",
			Help: "Seat claims rejected because the seat was already booked",
		},
	)

	Compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busops_compensations_total",
			Help: "Compensating actions run after a failed multi-write operation",
		},
		[]string{"step", "result"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "busops_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "busops_outbox_lag_seconds",
			Help: "Age of the oldest event relayed in the last outbox batch",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busops_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busops_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	PayrollDue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "busops_payroll_due_employees",
			Help: "Employees due for salary payment at the last scan",
		},
	)
)
