package task

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type taskRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the Postgres-backed task repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &taskRepoPG{pool: pool}
}

const taskCols = `id, summary, priority, status, subject_kind, subject_id, source, due_at, created_at, updated_at`

func (r *taskRepoPG) scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Summary, &t.Priority, &t.Status, &t.SubjectKind,
		&t.SubjectID, &t.Source, &t.DueAt, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *taskRepoPG) Put(ctx context.Context, t *Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO task (id, summary, priority, status, subject_kind, subject_id, source, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			subject_kind = EXCLUDED.subject_kind,
			subject_id = EXCLUDED.subject_id,
			source = EXCLUDED.source,
			due_at = EXCLUDED.due_at,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		t.ID, t.Summary, t.Priority, t.Status, t.SubjectKind, t.SubjectID, t.Source, t.DueAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *taskRepoPG) GetByID(ctx context.Context, id string) (*Task, error) {
	return r.scanTask(r.pool.QueryRow(ctx, `SELECT `+taskCols+` FROM task WHERE id = $1`, id))
}

func (r *taskRepoPG) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepoPG) ListOpen(ctx context.Context, limit, offset int) ([]*Task, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM task WHERE status = 'open'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskCols+` FROM task WHERE status = 'open'
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *taskRepoPG) ListBySubject(ctx context.Context, subjectKind, subjectID string, limit, offset int) ([]*Task, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM task WHERE subject_kind = $1 AND subject_id = $2`,
		subjectKind, subjectID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskCols+` FROM task WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		subjectKind, subjectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *taskRepoPG) collect(rows pgx.Rows, total int) ([]*Task, int, error) {
	var items []*Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
