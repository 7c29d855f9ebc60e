package mongo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/outbox"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	outboxNew       = "NEW"
	outboxPublished = "PUBLISHED"
)

type outboxDoc struct {
	ID            string     `bson:"_id"`
	AggregateType string     `bson:"aggregate_type"`
	AggregateID   string     `bson:"aggregate_id"`
	EventType     string     `bson:"event_type"`
	Payload       []byte     `bson:"payload"`
	CreatedAt     time.Time  `bson:"created_at"`
	PublishedAt   *time.Time `bson:"published_at,omitempty"`
	Status        string     `bson:"status"`
}

// Outbox keeps pending domain events in the "outbox" collection. The event
// id is the document id, so an event is stored once.
type Outbox struct {
	coll *mongo.Collection
}

var (
	_ outbox.Sink   = (*Outbox)(nil)
	_ outbox.Source = (*Outbox)(nil)
)

func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{coll: db.Collection("outbox")}
}

func (o *Outbox) EnsureIndexes(ctx context.Context) error {
	_, err := o.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return errors.Wrap(err, "create outbox index")
}

func (o *Outbox) Emit(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	_, err = o.coll.InsertOne(ctx, outboxDoc{
		ID:            event.ID.String(),
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.Type,
		Payload:       payload,
		CreatedAt:     event.OccurredAt,
		Status:        outboxNew,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return errors.Wrapf(err, "insert outbox %s", event.Type)
}

// RelayBatch publishes the oldest pending events in order and stops at the
// first failure. Consumers dedupe on the message id, which covers a relay
// crashing between publish and mark.
func (o *Outbox) RelayBatch(ctx context.Context, limit int, publish func(outbox.Record) error) (int, error) {
	cur, err := o.coll.Find(ctx,
		bson.M{"status": outboxNew},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return 0, errors.Wrap(err, "select outbox")
	}
	var docs []outboxDoc
	if err := cur.All(ctx, &docs); err != nil {
		return 0, errors.Wrap(err, "decode outbox")
	}

	published := 0
	for _, d := range docs {
		rec := outbox.Record{
			ID:            d.ID,
			AggregateType: d.AggregateType,
			AggregateID:   d.AggregateID,
			EventType:     d.EventType,
			Payload:       d.Payload,
			CreatedAt:     d.CreatedAt,
			DedupeKey:     d.ID,
		}
		if err := publish(rec); err != nil {
			return published, errors.Wrapf(err, "publish %s", d.EventType)
		}
		_, err := o.coll.UpdateOne(ctx,
			bson.M{"_id": d.ID, "status": outboxNew},
			bson.M{"$set": bson.M{"status": outboxPublished, "published_at": time.Now().UTC()}},
		)
		if err != nil {
			return published, errors.Wrap(err, "mark published")
		}
		published++
	}
	return published, nil
}
