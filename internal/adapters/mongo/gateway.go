// Package mongo implements the document store, outbox and audit log on
// MongoDB.
package mongo

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DocumentStore struct {
	db     *mongo.Database
	logger observability.Logger
}

var _ store.Store = (*DocumentStore)(nil)

func NewDocumentStore(db *mongo.Database, logger observability.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: logger}
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.Client().Ping(ctx, nil), "mongo ping")
}

func notFound(collection, id string) error {
	return errors.Wrapf(domain.ErrNotFound, "%s/%s", collection, id)
}

// fieldName maps the JSON id field onto Mongo's primary key.
func fieldName(field string) string {
	if field == store.IDField {
		return "_id"
	}
	return field
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(collection, id)
	}
	return errors.Wrapf(err, "get %s/%s", collection, id)
}

func (s *DocumentStore) Create(ctx context.Context, collection string, v interface{}) (string, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return "", errors.Wrap(err, "decode document")
	}
	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.New().String()
		doc["_id"] = id
	}
	// $push needs an array, never null.
	if collection == domain.CollectionTrips && doc[store.BookedSeatsField] == nil {
		doc[store.BookedSeatsField] = bson.A{}
	}

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.Wrapf(domain.ErrConflict, "%s/%s already exists", collection, id)
		}
		return "", errors.Wrapf(err, "insert %s", collection)
	}
	return id, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for k, v := range fields {
		if k == store.IDField {
			continue
		}
		set[k] = v
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}
	if res.MatchedCount == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete %s/%s", collection, id)
	}
	if res.DeletedCount == 0 {
		return notFound(collection, id)
	}
	return nil
}

var operators = map[store.Op]string{
	store.Eq:  "$eq",
	store.Ne:  "$ne",
	store.Gt:  "$gt",
	store.Gte: "$gte",
	store.Lt:  "$lt",
	store.Lte: "$lte",
	store.In:  "$in",
}

func queryFilter(filters []store.Filter) (bson.M, error) {
	q := bson.M{}
	for _, f := range filters {
		op, ok := operators[f.Op]
		if !ok {
			return nil, errors.Newf("filter %s: unsupported operator %q", f.Field, f.Op)
		}
		name := fieldName(f.Field)
		cond, _ := q[name].(bson.M)
		if cond == nil {
			cond = bson.M{}
			q[name] = cond
		}
		cond[op] = f.Value
	}
	return q, nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, filters []store.Filter, order []store.Order, out interface{}) error {
	q, err := queryFilter(filters)
	if err != nil {
		return err
	}
	opts := options.Find()
	if len(order) > 0 {
		sort := bson.D{}
		for _, o := range order {
			dir := 1
			if o.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: fieldName(o.Field), Value: dir})
		}
		opts.SetSort(sort)
	}

	cur, err := s.db.Collection(collection).Find(ctx, q, opts)
	if err != nil {
		return errors.Wrapf(err, "query %s", collection)
	}
	if err := cur.All(ctx, out); err != nil {
		return errors.Wrapf(err, "decode %s", collection)
	}
	emptyIfNil(out)
	return nil
}

// emptyIfNil turns a nil result slice into an empty one so lists encode as [].
func emptyIfNil(out interface{}) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice || !v.Elem().IsNil() {
		return
	}
	v.Elem().Set(reflect.MakeSlice(v.Elem().Type(), 0, 0))
}

// ClaimSeat pushes the seat in a single conditional update, so concurrent
// claims of one seat cannot both match.
func (s *DocumentStore) ClaimSeat(ctx context.Context, tripID string, seat int) error {
	if seat < 1 {
		return domain.Invalid("seat %d outside the trip", seat)
	}
	trips := s.db.Collection(domain.CollectionTrips)
	res, err := trips.UpdateOne(ctx,
		bson.M{
			"_id":                  tripID,
			store.BookedSeatsField: bson.M{"$ne": seat},
			store.TotalSeatsField:  bson.M{"$gte": seat},
		},
		bson.M{"$push": bson.M{store.BookedSeatsField: seat}},
	)
	if err != nil {
		return errors.Wrapf(err, "claim seat %d on trip %s", seat, tripID)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	var trip struct {
		TotalSeats int `bson:"totalSeats"`
	}
	err = trips.FindOne(ctx, bson.M{"_id": tripID}, options.FindOne().SetProjection(bson.M{store.TotalSeatsField: 1})).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(domain.CollectionTrips, tripID)
	}
	if err != nil {
		return errors.Wrapf(err, "load trip %s", tripID)
	}
	if seat > trip.TotalSeats {
		return domain.Invalid("seat %d outside 1..%d", seat, trip.TotalSeats)
	}
	return domain.Conflict("seat %d already booked", seat)
}

func (s *DocumentStore) ReleaseSeat(ctx context.Context, tripID string, seat int) error {
	res, err := s.db.Collection(domain.CollectionTrips).UpdateOne(ctx,
		bson.M{"_id": tripID},
		bson.M{"$pull": bson.M{store.BookedSeatsField: seat}},
	)
	if err != nil {
		return errors.Wrapf(err, "release seat %d on trip %s", seat, tripID)
	}
	if res.MatchedCount == 0 {
		return notFound(domain.CollectionTrips, tripID)
	}
	return nil
}
