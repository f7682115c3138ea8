package automation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DedupeStore is the ledger of processed event ids. It approximates
// exactly-once handling under at-least-once delivery: a non-expired
// record for an event id means the event must not be handled again.
type DedupeStore interface {
	// MarkIfNew atomically claims the event id. It returns true when
	// this caller won the claim (no non-expired record existed) and
	// false when the event is a duplicate. Two processors racing on
	// the same id must see exactly one true.
	MarkIfNew(ctx context.Context, eventID uuid.UUID, eventType string, ttl time.Duration) (bool, error)
	// Release drops the claim so a later redelivery can retry. Used
	// when the handler fails after the claim was taken.
	Release(ctx context.Context, eventID uuid.UUID) error
}

// ----------------------------------------------------------------------------
// In-memory dedupe store
// ----------------------------------------------------------------------------

type memoryRecord struct {
	eventType string
	expireAt  time.Time
}

// MemoryDedupe is an in-memory DedupeStore for tests and local
// development.
type MemoryDedupe struct {
	mu      sync.Mutex
	records map[uuid.UUID]memoryRecord
}

func NewMemoryDedupe() *MemoryDedupe {
	return &MemoryDedupe{records: make(map[uuid.UUID]memoryRecord)}
}

func (d *MemoryDedupe) MarkIfNew(_ context.Context, eventID uuid.UUID, eventType string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if rec, ok := d.records[eventID]; ok && rec.expireAt.After(now) {
		return false, nil
	}
	d.records[eventID] = memoryRecord{eventType: eventType, expireAt: now.Add(ttl)}
	return true, nil
}

func (d *MemoryDedupe) Release(_ context.Context, eventID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, eventID)
	return nil
}

// ----------------------------------------------------------------------------
// Postgres dedupe store
// ----------------------------------------------------------------------------

type pgDedupe struct{ pool *pgxpool.Pool }

// NewPGDedupe creates the Postgres-backed dedupe ledger.
func NewPGDedupe(pool *pgxpool.Pool) DedupeStore {
	return &pgDedupe{pool: pool}
}

// MarkIfNew claims the event id with a single conditional insert. An
// expired record is taken over in the same statement, so no sweeper is
// needed.
func (d *pgDedupe) MarkIfNew(ctx context.Context, eventID uuid.UUID, eventType string, ttl time.Duration) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO processed_event (event_id, event_type, processed_at, expire_at)
		VALUES ($1, $2, NOW(), NOW() + $3)
		ON CONFLICT (event_id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			processed_at = NOW(),
			expire_at = NOW() + $3
		WHERE processed_event.expire_at <= NOW()`,
		eventID, eventType, ttl)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (d *pgDedupe) Release(ctx context.Context, eventID uuid.UUID) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM processed_event WHERE event_id = $1`, eventID)
	return err
}
