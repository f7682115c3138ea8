package episode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wiye1050/gestionclinica-sub003/internal/domain/event"
)

// ErrConflict is returned when a transition attempt lost a race with a
// concurrent update on the same episode. Callers may reload and retry.
var ErrConflict = errors.New("episode was modified concurrently")

// RejectedError wraps a state machine rejection as an error the domain
// action layer can surface to users.
type RejectedError struct {
	Rejection *Rejection
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transition rejected: %s", e.Rejection.Reason)
}

// Service owns episode lifecycle: creation, guarded transitions, and the
// audit events each transition emits. Emission is deliberately non-atomic
// with the state write: the persisted state is the source of truth and the
// event stream is best-effort audit/automation, so an emission failure is
// logged and swallowed.
type Service struct {
	episodes Repository
	emitter  *event.Emitter
	log      zerolog.Logger
}

// NewService creates a new episode service.
func NewService(episodes Repository, emitter *event.Emitter, log zerolog.Logger) *Service {
	return &Service{episodes: episodes, emitter: emitter, log: log}
}

// CreateEpisode opens a new episode in CAPTACION for the given patient.
func (s *Service) CreateEpisode(ctx context.Context, patientID uuid.UUID, reason string, tags []string, actorUserID string) (*Episode, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	e := &Episode{
		PatientID: patientID,
		State:     StateCaptacion,
		Reason:    reason,
		Tags:      tags,
	}
	if err := s.episodes.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create episode: %w", err)
	}

	s.emit(ctx, event.Draft{
		Type:        "Episode.Created",
		Subject:     event.Subject{Kind: event.SubjectEpisode, ID: e.ID.String()},
		ActorUserID: actorUserID,
		Meta:        event.Meta{"patientId": e.PatientID.String(), "reason": e.Reason},
	})
	return e, nil
}

// GetEpisode retrieves an episode by id.
func (s *Service) GetEpisode(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return s.episodes.GetByID(ctx, id)
}

// CanApply reports whether the trigger would be accepted for the episode's
// current state under the given guard context, without mutating anything.
// The returned description explains the matched transition (or is empty when
// none exists).
func (s *Service) CanApply(ctx context.Context, id uuid.UUID, trigger string, gctx GuardContext) (bool, string, error) {
	e, err := s.episodes.GetByID(ctx, id)
	if err != nil {
		return false, "", err
	}
	return CanTransition(e.State, trigger, gctx), TransitionDescription(e.State, trigger), nil
}

// ApplyTransition attempts a guarded state transition. On success the new
// state is persisted (with ClosedAt set once when the episode closes) and an
// Episode.StateChanged event is emitted. A rejection returns *RejectedError;
// losing a concurrent race returns ErrConflict; neither mutates state.
func (s *Service) ApplyTransition(ctx context.Context, id uuid.UUID, trigger string, gctx GuardContext, actorUserID string) (*Episode, error) {
	e, err := s.episodes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load episode: %w", err)
	}

	next, rej := NextState(e.State, trigger, gctx)
	if rej != nil {
		return nil, &RejectedError{Rejection: rej}
	}

	var closedAt *time.Time
	if next.Closing() && e.ClosedAt == nil {
		now := time.Now().UTC()
		closedAt = &now
	}

	ok, err := s.episodes.UpdateState(ctx, e.ID, e.State, next, closedAt)
	if err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	if !ok {
		return nil, ErrConflict
	}

	from := e.State
	e.State = next
	if closedAt != nil {
		e.ClosedAt = closedAt
	}
	e.UpdatedAt = time.Now().UTC()

	s.emit(ctx, event.Draft{
		Type:        "Episode.StateChanged",
		Subject:     event.Subject{Kind: event.SubjectEpisode, ID: e.ID.String()},
		ActorUserID: actorUserID,
		Meta: event.Meta{
			"from":    string(from),
			"to":      string(next),
			"trigger": trigger,
		},
	})
	return e, nil
}

// UpdateDetails mutates the free-form metadata fields. State is untouched.
func (s *Service) UpdateDetails(ctx context.Context, e *Episode) error {
	return s.episodes.UpdateDetails(ctx, e)
}

// ListByPatient returns the patient's episodes, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Episode, int, error) {
	return s.episodes.ListByPatient(ctx, patientID, limit, offset)
}

// ListByState returns episodes currently in the given state.
func (s *Service) ListByState(ctx context.Context, state State, limit, offset int) ([]*Episode, int, error) {
	if !state.Valid() {
		return nil, 0, fmt.Errorf("invalid state: %s", state)
	}
	return s.episodes.ListByState(ctx, state, limit, offset)
}

func (s *Service) emit(ctx context.Context, d event.Draft) {
	if s.emitter == nil {
		return
	}
	if _, err := s.emitter.Emit(ctx, d); err != nil {
		s.log.Warn().Err(err).Str("event_type", d.Type).
			Str("subject_id", d.Subject.ID).
			Msg("event emission failed, state persisted without audit event")
	}
}
