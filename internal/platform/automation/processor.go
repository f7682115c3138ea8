package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wiye1050/gestionclinica-sub003/internal/domain/event"
)

// DefaultDedupeTTL bounds how long a processed event id blocks
// redelivery. Events replayed after the window rely on handler-level
// idempotency (deterministic record ids) instead.
const DefaultDedupeTTL = 30 * 24 * time.Hour

// HandlerFunc is the side effect bound to one canonical event type.
type HandlerFunc func(ctx context.Context, ev *event.CanonicalEvent) error

// Processor turns "one canonical event appears" into at most one
// handler execution, despite at-least-once delivery.
type Processor struct {
	handlers map[string]HandlerFunc
	dedupe   DedupeStore
	ttl      time.Duration
	log      zerolog.Logger
}

// NewProcessor builds a processor over a fixed handler table. The
// table is read-only after this call.
func NewProcessor(handlers map[string]HandlerFunc, dedupe DedupeStore, ttl time.Duration, log zerolog.Logger) *Processor {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	h := make(map[string]HandlerFunc, len(handlers))
	for k, v := range handlers {
		h[k] = v
	}
	return &Processor{handlers: h, dedupe: dedupe, ttl: ttl, log: log}
}

// Process runs the handler registered for the event's type exactly
// once per event id within the dedupe window.
//
// An unknown type is a normal outcome: it is logged at debug level and
// acknowledged without writing a ledger record, so the same id arriving
// later under a registered type is still processed. A duplicate is
// logged at info level and skipped. A handler failure releases the
// claim and propagates, leaving retry policy to the caller.
func (p *Processor) Process(ctx context.Context, ev *event.CanonicalEvent) error {
	handler, ok := p.handlers[ev.Type]
	if !ok {
		p.log.Debug().
			Str("event_id", ev.ID.String()).
			Str("event_type", ev.Type).
			Msg("no handler registered, skipping")
		return nil
	}

	won, err := p.dedupe.MarkIfNew(ctx, ev.ID, ev.Type, p.ttl)
	if err != nil {
		return fmt.Errorf("dedupe check for event %s: %w", ev.ID, err)
	}
	if !won {
		p.log.Info().
			Str("event_id", ev.ID.String()).
			Str("event_type", ev.Type).
			Msg("duplicate event, skipping")
		return nil
	}

	if err := handler(ctx, ev); err != nil {
		if relErr := p.dedupe.Release(ctx, ev.ID); relErr != nil {
			p.log.Warn().Err(relErr).
				Str("event_id", ev.ID.String()).
				Msg("failed to release dedupe claim after handler error")
		}
		return fmt.Errorf("handler for %s event %s: %w", ev.Type, ev.ID, err)
	}
	return nil
}

// Handles reports whether a handler is registered for the given type.
func (p *Processor) Handles(eventType string) bool {
	_, ok := p.handlers[eventType]
	return ok
}
