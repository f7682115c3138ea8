package episode

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the episode persistence interface.
type Repository interface {
	Create(ctx context.Context, e *Episode) error
	GetByID(ctx context.Context, id uuid.UUID) (*Episode, error)
	// UpdateState moves the episode from the expected current state to the
	// new one, setting closedAt when non-nil. It returns false (and no
	// error) when the episode was not in the expected state, which callers
	// treat as a concurrent-modification conflict.
	UpdateState(ctx context.Context, id uuid.UUID, from, to State, closedAt *time.Time) (bool, error)
	UpdateDetails(ctx context.Context, e *Episode) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Episode, int, error)
	ListByState(ctx context.Context, state State, limit, offset int) ([]*Episode, int, error)
}
