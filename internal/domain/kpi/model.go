package kpi

import "time"

// Kind classifies a KPI row.
type Kind string

const (
	KindStateChange   Kind = "state_change"
	KindQuoteAccepted Kind = "quote_accepted"
)

// Row is a single denormalized KPI fact. Rows are keyed by an ID
// derived from the event that produced them, so reprocessing an event
// rewrites the same row instead of double-counting.
type Row struct {
	ID         string    `db:"id" json:"id"`
	Kind       Kind      `db:"kind" json:"kind"`
	EpisodeID  string    `db:"episode_id" json:"episode_id,omitempty"`
	FromState  string    `db:"from_state" json:"from_state,omitempty"`
	ToState    string    `db:"to_state" json:"to_state,omitempty"`
	Trigger    string    `db:"trigger" json:"trigger,omitempty"`
	Amount     float64   `db:"amount" json:"amount,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
