package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service holds task business logic.
type Service struct {
	tasks Repository
	log   zerolog.Logger
}

func NewService(tasks Repository, log zerolog.Logger) *Service {
	return &Service{tasks: tasks, log: log}
}

// CreateTask stores a user-created task. Automation writes tasks
// through Repository.Put directly with deterministic IDs; user tasks
// get a random ID here.
func (s *Service) CreateTask(ctx context.Context, summary string, priority Priority, subjectKind, subjectID string, dueAt *time.Time) (*Task, error) {
	if summary == "" {
		return nil, fmt.Errorf("summary is required")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	t := &Task{
		ID:          uuid.NewString(),
		Summary:     summary,
		Priority:    priority,
		Status:      StatusOpen,
		SubjectKind: subjectKind,
		SubjectID:   subjectID,
		Source:      "manual",
		DueAt:       dueAt,
	}
	if err := s.tasks.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// SetStatus moves a task to the given lifecycle status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.tasks.UpdateStatus(ctx, id, status)
}

func (s *Service) ListOpen(ctx context.Context, limit, offset int) ([]*Task, int, error) {
	return s.tasks.ListOpen(ctx, limit, offset)
}

func (s *Service) ListBySubject(ctx context.Context, subjectKind, subjectID string, limit, offset int) ([]*Task, int, error) {
	return s.tasks.ListBySubject(ctx, subjectKind, subjectID, limit, offset)
}
