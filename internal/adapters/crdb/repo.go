// Package crdb stores documents as JSONB rows in CockroachDB.
package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/store"
)

const (
	SerializationFailureCode = "40001"
)

// Schema is applied by Migrate, one statement at a time.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INVERTED INDEX IF NOT EXISTS documents_body_idx ON documents (body)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED')),
		dedupe_key TEXT NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_status_created_idx ON outbox (status, created_at)`,
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return errors.Wrap(r.pool.Ping(ctx), "crdb ping")
}

// WithTx runs fn in a serializable transaction. A retryable serialization
// failure is reported as domain.ErrSerializationFailure.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return errors.Wrap(err, "set isolation")
	}

	if err := fn(tx); err != nil {
		return serializationFailure(err)
	}
	return serializationFailure(tx.Commit(ctx))
}

func serializationFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return errors.Wrapf(domain.ErrSerializationFailure, "%s", pgErr.Message)
	}
	return err
}

func notFound(collection, id string) error {
	return errors.Wrapf(domain.ErrNotFound, "%s/%s", collection, id)
}

func (r *Repository) Get(ctx context.Context, collection, id string, out interface{}) error {
	var body []byte
	err := r.pool.QueryRow(ctx, `SELECT body FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(collection, id)
	}
	if err != nil {
		return errors.Wrapf(err, "get %s/%s", collection, id)
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode document")
}

func (r *Repository) Create(ctx context.Context, collection string, v interface{}) (string, error) {
	doc, err := store.ToJSONDoc(v)
	if err != nil {
		return "", err
	}
	id := doc.ID()
	if id == "" {
		id = uuid.New().String()
		doc[store.IDField] = id
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	result, err := r.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, body)
	if err != nil {
		return "", errors.Wrapf(err, "insert %s", collection)
	}
	if result.RowsAffected() == 0 {
		return "", errors.Wrapf(domain.ErrConflict, "%s/%s already exists", collection, id)
	}
	return id, nil
}

// Update merges fields into the stored document with the JSONB || operator.
func (r *Repository) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	patch := store.JSONDoc{}
	if err := patch.Merge(fields); err != nil {
		return err
	}
	delete(patch, store.IDField)
	body, err := json.Marshal(patch)
	if err != nil {
		return errors.Wrap(err, "encode fields")
	}
	result, err := r.pool.Exec(ctx, `
		UPDATE documents SET body = body || $3 WHERE collection = $1 AND id = $2
	`, collection, id, body)
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}
	if result.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s/%s", collection, id)
	}
	if result.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

// containment builds a JSONB @> document from the equality filters that
// compare exactly in JSON. Time strings are left to Match, which compares
// them as instants.
func containment(filters []store.Filter) (store.JSONDoc, error) {
	doc := store.JSONDoc{}
	for _, f := range filters {
		if f.Op != store.Eq {
			continue
		}
		v, err := store.Normalize(f.Value)
		if err != nil {
			return nil, err
		}
		switch tv := v.(type) {
		case float64, bool:
			doc[f.Field] = tv
		case string:
			if _, err := time.Parse(time.RFC3339Nano, tv); err != nil {
				doc[f.Field] = tv
			}
		}
	}
	return doc, nil
}

// Query narrows rows in SQL with a containment match and applies the full
// filter set and ordering to the decoded documents.
func (r *Repository) Query(ctx context.Context, collection string, filters []store.Filter, order []store.Order, out interface{}) error {
	sql := `SELECT body FROM documents WHERE collection = $1`
	args := []interface{}{collection}

	contains, err := containment(filters)
	if err != nil {
		return err
	}
	if len(contains) > 0 {
		body, err := json.Marshal(contains)
		if err != nil {
			return errors.Wrap(err, "encode filter")
		}
		sql += ` AND body @> $2`
		args = append(args, body)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return errors.Wrapf(err, "query %s", collection)
	}
	defer rows.Close()

	docs := []store.JSONDoc{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return errors.Wrap(err, "scan document")
		}
		var doc store.JSONDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			return errors.Wrap(err, "decode document")
		}
		ok, err := store.Match(doc, filters)
		if err != nil {
			return err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "query %s", collection)
	}

	store.SortDocs(docs, order)
	return store.DecodeAll(docs, out)
}

// mutateTrip applies fn to a trip document under a row lock.
func (r *Repository) mutateTrip(ctx context.Context, tripID string, fn func(store.JSONDoc) error) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var body []byte
		err := tx.QueryRow(ctx, `
			SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE
		`, domain.CollectionTrips, tripID).Scan(&body)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(domain.CollectionTrips, tripID)
		}
		if err != nil {
			return errors.Wrap(err, "lock trip")
		}
		var doc store.JSONDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			return errors.Wrap(err, "decode trip")
		}
		if err := fn(doc); err != nil {
			return err
		}
		if body, err = json.Marshal(doc); err != nil {
			return errors.Wrap(err, "encode trip")
		}
		_, err = tx.Exec(ctx, `
			UPDATE documents SET body = $3 WHERE collection = $1 AND id = $2
		`, domain.CollectionTrips, tripID, body)
		return errors.Wrap(err, "write trip")
	})
}

func (r *Repository) ClaimSeat(ctx context.Context, tripID string, seat int) error {
	return r.mutateTrip(ctx, tripID, func(doc store.JSONDoc) error {
		return doc.ClaimSeat(seat)
	})
}

func (r *Repository) ReleaseSeat(ctx context.Context, tripID string, seat int) error {
	return r.mutateTrip(ctx, tripID, func(doc store.JSONDoc) error {
		doc.ReleaseSeat(seat)
		return nil
	})
}
