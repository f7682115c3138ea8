package automation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wiye1050/gestionclinica-sub003/internal/domain/event"
)

// Source is the stream the listener reads. The event store's
// sequence-cursor query satisfies it; tests substitute a replayable
// in-memory fake.
type Source interface {
	ListAfter(ctx context.Context, after int64, limit int) ([]*event.CanonicalEvent, error)
}

// Listener polls the event stream and feeds each event to the
// processor. Delivery is at-least-once: the cursor only advances past
// an event once Process returned without error, so a failed handler is
// retried on the next poll.
type Listener struct {
	source    Source
	processor *Processor
	interval  time.Duration
	batchSize int
	log       zerolog.Logger

	cursor int64
}

func NewListener(source Source, processor *Processor, interval time.Duration, batchSize int, log zerolog.Logger) *Listener {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Listener{
		source:    source,
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// SetCursor positions the listener after the given sequence number.
// Call before Run to skip the backlog.
func (l *Listener) SetCursor(seq int64) { l.cursor = seq }

// Cursor returns the sequence number of the last fully processed
// event.
func (l *Listener) Cursor() int64 { return l.cursor }

// Run polls until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if err := l.Drain(ctx); err != nil {
			l.log.Error().Err(err).Int64("cursor", l.cursor).Msg("event batch failed, will retry")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain processes everything currently in the stream past the cursor.
// It stops at the first handler error, leaving the cursor on the last
// successfully processed event.
func (l *Listener) Drain(ctx context.Context) error {
	for {
		batch, err := l.source.ListAfter(ctx, l.cursor, l.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, ev := range batch {
			if err := l.processor.Process(ctx, ev); err != nil {
				return err
			}
			l.cursor = ev.Seq
		}
	}
}
