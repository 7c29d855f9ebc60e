package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/outbox"
)

// Emit appends an event to the outbox table. The event id is the dedupe key,
// so emitting the same event twice stores it once.
func (r *Repository) Emit(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, created_at, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, 'NEW', $7)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, uuid.New(), event.AggregateType, event.AggregateID, event.Type, payload, event.OccurredAt, event.ID.String())
	return errors.Wrapf(err, "insert outbox %s", event.Type)
}

// RelayBatch locks up to limit unpublished rows, hands each to publish and
// marks the published ones. It stops at the first publish failure; that row
// and the rest stay NEW for the next batch.
func (r *Repository) RelayBatch(ctx context.Context, limit int, publish func(outbox.Record) error) (int, error) {
	var (
		published  int
		publishErr error
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, dedupe_key
			FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return errors.Wrap(err, "select outbox")
		}
		var (
			records []outbox.Record
			ids     []uuid.UUID
		)
		for rows.Next() {
			var (
				rec outbox.Record
				id  uuid.UUID
			)
			if err := rows.Scan(&id, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.DedupeKey); err != nil {
				rows.Close()
				return errors.Wrap(err, "scan outbox")
			}
			rec.ID = id.String()
			records = append(records, rec)
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "select outbox")
		}

		published = 0
		publishErr = nil
		for i, rec := range records {
			if err := publish(rec); err != nil {
				publishErr = errors.Wrapf(err, "publish %s", rec.EventType)
				break
			}
			if err := r.MarkPublished(ctx, tx, ids[i], time.Now().UTC()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, publishErr
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return errors.Wrap(err, "mark published")
}
