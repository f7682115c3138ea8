package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// nowMillis is a variable to allow test injection.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Emitter turns drafts into durable canonical events. It assigns a unique id
// and a timestamp (when absent) and appends the full event before returning.
// Safe for concurrent use: ids are random and the append is a single insert.
type Emitter struct {
	repo Repository
}

// NewEmitter creates an Emitter over the given store.
func NewEmitter(repo Repository) *Emitter {
	return &Emitter{repo: repo}
}

// Emit persists the draft as a canonical event and returns the stored event.
// The returned event is immutable from the caller's perspective.
func (em *Emitter) Emit(ctx context.Context, d Draft) (*CanonicalEvent, error) {
	if d.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if !d.Subject.Kind.Valid() {
		return nil, fmt.Errorf("invalid subject kind: %q", d.Subject.Kind)
	}
	if d.Subject.ID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	ts := d.Timestamp
	if ts == 0 {
		ts = nowMillis()
	}

	e := &CanonicalEvent{
		ID:          uuid.New(),
		Type:        d.Type,
		Subject:     d.Subject,
		ActorUserID: d.ActorUserID,
		Timestamp:   ts,
		Meta:        d.Meta,
	}

	if err := em.repo.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	return e, nil
}
