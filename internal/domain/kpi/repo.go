package kpi

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists KPI rows.
type Repository interface {
	// Put inserts the row, or overwrites an existing row with the same
	// ID.
	Put(ctx context.Context, row *Row) error
	ListByKind(ctx context.Context, kind Kind, limit, offset int) ([]*Row, int, error)
	ListByEpisode(ctx context.Context, episodeID string, limit, offset int) ([]*Row, int, error)
}

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Row
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*Row)}
}

func (r *MemoryRepository) Put(_ context.Context, row *Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[row.ID]; ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = time.Now().UTC()
	}
	cp := *row
	r.items[row.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListByKind(_ context.Context, kind Kind, limit, offset int) ([]*Row, int, error) {
	return r.list(func(row *Row) bool { return row.Kind == kind }, limit, offset)
}

func (r *MemoryRepository) ListByEpisode(_ context.Context, episodeID string, limit, offset int) ([]*Row, int, error) {
	return r.list(func(row *Row) bool { return row.EpisodeID == episodeID }, limit, offset)
}

func (r *MemoryRepository) list(match func(*Row) bool, limit, offset int) ([]*Row, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*Row
	for _, row := range r.items {
		if match(row) {
			cp := *row
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].OccurredAt.Equal(all[j].OccurredAt) {
			return all[i].OccurredAt.Before(all[j].OccurredAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
