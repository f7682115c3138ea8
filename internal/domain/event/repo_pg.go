package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type eventRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the Postgres-backed canonical event store.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &eventRepoPG{pool: pool}
}

const eventCols = `seq, id, event_type, subject_kind, subject_id, actor_user_id, ts, meta, created_at`

func (r *eventRepoPG) scanEvent(row pgx.Row) (*CanonicalEvent, error) {
	var e CanonicalEvent
	var metaRaw []byte
	err := row.Scan(&e.Seq, &e.ID, &e.Type, &e.Subject.Kind, &e.Subject.ID,
		&e.ActorUserID, &e.Timestamp, &metaRaw, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &e.Meta); err != nil {
			return nil, fmt.Errorf("decode event meta: %w", err)
		}
	}
	return &e, nil
}

func (r *eventRepoPG) Append(ctx context.Context, e *CanonicalEvent) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("encode event meta: %w", err)
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO canonical_event (id, event_type, subject_kind, subject_id, actor_user_id, ts, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq, created_at`,
		e.ID, e.Type, e.Subject.Kind, e.Subject.ID, e.ActorUserID, e.Timestamp, meta,
	).Scan(&e.Seq, &e.CreatedAt)
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CanonicalEvent, error) {
	return r.scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM canonical_event WHERE id = $1`, id))
}

func (r *eventRepoPG) ListBySubject(ctx context.Context, subject Subject, limit, offset int) ([]*CanonicalEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM canonical_event WHERE subject_kind = $1 AND subject_id = $2`,
		subject.Kind, subject.ID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventCols+` FROM canonical_event
		 WHERE subject_kind = $1 AND subject_id = $2
		 ORDER BY ts DESC LIMIT $3 OFFSET $4`,
		subject.Kind, subject.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*CanonicalEvent
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *eventRepoPG) ListAfter(ctx context.Context, after int64, limit int) ([]*CanonicalEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventCols+` FROM canonical_event WHERE seq > $1 ORDER BY seq ASC LIMIT $2`,
		after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CanonicalEvent
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
