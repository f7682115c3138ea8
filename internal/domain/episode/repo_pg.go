package episode

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type episodeRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the Postgres-backed episode repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &episodeRepoPG{pool: pool}
}

const episodeCols = `id, patient_id, state, risk_flags, reason, tags, started_at, closed_at, updated_at`

func (r *episodeRepoPG) scanEpisode(row pgx.Row) (*Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.PatientID, &e.State, &e.RiskFlags, &e.Reason,
		&e.Tags, &e.StartedAt, &e.ClosedAt, &e.UpdatedAt)
	return &e, err
}

func (r *episodeRepoPG) Create(ctx context.Context, e *Episode) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO episode (id, patient_id, state, risk_flags, reason, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING started_at, updated_at`,
		e.ID, e.PatientID, e.State, e.RiskFlags, e.Reason, e.Tags,
	).Scan(&e.StartedAt, &e.UpdatedAt)
}

func (r *episodeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return r.scanEpisode(r.pool.QueryRow(ctx, `SELECT `+episodeCols+` FROM episode WHERE id = $1`, id))
}

func (r *episodeRepoPG) UpdateState(ctx context.Context, id uuid.UUID, from, to State, closedAt *time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE episode
		SET state = $3, closed_at = COALESCE(closed_at, $4), updated_at = NOW()
		WHERE id = $1 AND state = $2`,
		id, from, to, closedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *episodeRepoPG) UpdateDetails(ctx context.Context, e *Episode) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE episode SET risk_flags = $2, reason = $3, tags = $4, updated_at = NOW()
		WHERE id = $1`,
		e.ID, e.RiskFlags, e.Reason, e.Tags)
	return err
}

func (r *episodeRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Episode, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM episode WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+episodeCols+` FROM episode WHERE patient_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *episodeRepoPG) ListByState(ctx context.Context, state State, limit, offset int) ([]*Episode, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM episode WHERE state = $1`, state).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+episodeCols+` FROM episode WHERE state = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		state, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *episodeRepoPG) collect(rows pgx.Rows, total int) ([]*Episode, int, error) {
	var items []*Episode
	for rows.Next() {
		e, err := r.scanEpisode(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
