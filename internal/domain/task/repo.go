package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Repository persists tasks.
type Repository interface {
	// Put inserts the task, or overwrites an existing task with the
	// same ID. This is the write primitive automation relies on for
	// idempotent re-processing.
	Put(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	ListOpen(ctx context.Context, limit, offset int) ([]*Task, int, error)
	ListBySubject(ctx context.Context, subjectKind, subjectID string, limit, offset int) ([]*Task, int, error)
}

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*Task)}
}

func (r *MemoryRepository) Put(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.items[t.ID]; ok {
		t.CreatedAt = existing.CreatedAt
	} else {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	cp := *t
	r.items[t.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ListOpen(_ context.Context, limit, offset int) ([]*Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*Task
	for _, t := range r.items {
		if t.Status == StatusOpen {
			cp := *t
			all = append(all, &cp)
		}
	}
	sortTasks(all)
	return page(all, limit, offset), len(all), nil
}

func (r *MemoryRepository) ListBySubject(_ context.Context, subjectKind, subjectID string, limit, offset int) ([]*Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*Task
	for _, t := range r.items {
		if t.SubjectKind == subjectKind && t.SubjectID == subjectID {
			cp := *t
			all = append(all, &cp)
		}
	}
	sortTasks(all)
	return page(all, limit, offset), len(all), nil
}

func sortTasks(ts []*Task) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

func page(ts []*Task, limit, offset int) []*Task {
	if offset >= len(ts) {
		return nil
	}
	end := offset + limit
	if end > len(ts) {
		end = len(ts)
	}
	return ts[offset:end]
}
