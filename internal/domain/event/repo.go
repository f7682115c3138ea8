package event

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository is the append-only canonical event store.
type Repository interface {
	Append(ctx context.Context, e *CanonicalEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*CanonicalEvent, error)
	ListBySubject(ctx context.Context, subject Subject, limit, offset int) ([]*CanonicalEvent, int, error)
	// ListAfter returns up to limit events with Seq > after, in sequence
	// order. Listeners use it as their polling cursor.
	ListAfter(ctx context.Context, after int64, limit int) ([]*CanonicalEvent, error)
}

// MemoryRepository is a thread-safe, in-memory Repository used in tests and
// development mode.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []*CanonicalEvent
	byID   map[uuid.UUID]*CanonicalEvent
	seq    int64
}

// NewMemoryRepository creates a new empty in-memory event store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*CanonicalEvent)}
}

func (r *MemoryRepository) Append(_ context.Context, e *CanonicalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return fmt.Errorf("event %s already exists", e.ID)
	}
	r.seq++
	e.Seq = r.seq
	r.events = append(r.events, e)
	r.byID[e.ID] = e
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*CanonicalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	return e, nil
}

func (r *MemoryRepository) ListBySubject(_ context.Context, subject Subject, limit, offset int) ([]*CanonicalEvent, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*CanonicalEvent
	for _, e := range r.events {
		if e.Subject == subject {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Timestamp > filtered[j].Timestamp })

	total := len(filtered)
	if offset >= total {
		return []*CanonicalEvent{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (r *MemoryRepository) ListAfter(_ context.Context, after int64, limit int) ([]*CanonicalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*CanonicalEvent
	for _, e := range r.events {
		if e.Seq > after {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
