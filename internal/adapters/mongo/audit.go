package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID            string    `bson:"_id"`
	Action        string    `bson:"action"`
	AggregateType string    `bson:"aggregate_type"`
	AggregateID   string    `bson:"aggregate_id"`
	Timestamp     time.Time `bson:"timestamp"`
	RecordedAt    time.Time `bson:"recorded_at"`
	Data          bson.M    `bson:"data"`
}

// LogEvent stores one audit entry per event. Redelivered events are keyed
// by their id and ignored.
func (a *AuditLogger) LogEvent(ctx context.Context, event domain.Event) error {
	log := AuditLog{
		ID:            event.ID.String(),
		Action:        event.Type,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Timestamp:     event.OccurredAt,
		RecordedAt:    time.Now().UTC(),
		Data:          bson.M(event.Data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		a.logger.WithField("event_id", log.ID).Debug("audit log already recorded")
		return nil
	}
	if err != nil {
		a.logger.WithError(err).WithField("event_id", log.ID).Error("failed to insert audit log")
		return errors.Wrap(err, "insert audit log")
	}
	return nil
}

// History returns the audit trail of one aggregate, oldest first.
func (a *AuditLogger) History(ctx context.Context, aggregateType, aggregateID string) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx,
		bson.M{"aggregate_type": aggregateType, "aggregate_id": aggregateID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "query audit logs")
	}
	logs := []AuditLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, errors.Wrap(err, "decode audit logs")
	}
	return logs, nil
}
