package kpi

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type kpiRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the Postgres-backed KPI repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &kpiRepoPG{pool: pool}
}

const kpiCols = `id, kind, episode_id, from_state, to_state, trigger, amount, occurred_at, created_at`

func (r *kpiRepoPG) scanRow(row pgx.Row) (*Row, error) {
	var k Row
	err := row.Scan(&k.ID, &k.Kind, &k.EpisodeID, &k.FromState, &k.ToState,
		&k.Trigger, &k.Amount, &k.OccurredAt, &k.CreatedAt)
	return &k, err
}

func (r *kpiRepoPG) Put(ctx context.Context, row *Row) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO kpi_event (id, kind, episode_id, from_state, to_state, trigger, amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			episode_id = EXCLUDED.episode_id,
			from_state = EXCLUDED.from_state,
			to_state = EXCLUDED.to_state,
			trigger = EXCLUDED.trigger,
			amount = EXCLUDED.amount,
			occurred_at = EXCLUDED.occurred_at
		RETURNING created_at`,
		row.ID, row.Kind, row.EpisodeID, row.FromState, row.ToState, row.Trigger, row.Amount, row.OccurredAt,
	).Scan(&row.CreatedAt)
}

func (r *kpiRepoPG) ListByKind(ctx context.Context, kind Kind, limit, offset int) ([]*Row, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kpi_event WHERE kind = $1`, kind).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+kpiCols+` FROM kpi_event WHERE kind = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
		kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *kpiRepoPG) ListByEpisode(ctx context.Context, episodeID string, limit, offset int) ([]*Row, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kpi_event WHERE episode_id = $1`, episodeID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+kpiCols+` FROM kpi_event WHERE episode_id = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
		episodeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *kpiRepoPG) collect(rows pgx.Rows, total int) ([]*Row, int, error) {
	var items []*Row
	for rows.Next() {
		k, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, k)
	}
	return items, total, rows.Err()
}
