// Package event defines the canonical event vocabulary shared by the episode
// workflow, the processor, and the automation handlers. Events are immutable
// once emitted and form a durable audit trail: they are appended exactly once
// and read at least once.
package event

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SubjectKind identifies the kind of entity an event is about.
type SubjectKind string

const (
	SubjectPatient     SubjectKind = "patient"
	SubjectEpisode     SubjectKind = "episode"
	SubjectPlan        SubjectKind = "plan"
	SubjectProcedure   SubjectKind = "procedure"
	SubjectAppointment SubjectKind = "appointment"
	SubjectQuote       SubjectKind = "quote"
)

var validSubjectKinds = map[SubjectKind]bool{
	SubjectPatient: true, SubjectEpisode: true, SubjectPlan: true,
	SubjectProcedure: true, SubjectAppointment: true, SubjectQuote: true,
}

// Valid reports whether the kind belongs to the closed enumeration.
func (k SubjectKind) Valid() bool { return validSubjectKinds[k] }

// Subject is the entity an event is about.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// Meta is the open, event-specific payload. Handlers must treat missing,
// null, or mistyped fields as unknown and fall back to a default; the
// accessors below never panic.
type Meta map[string]interface{}

// Str returns the string value for key, or fallback when the key is missing
// or not a string.
func (m Meta) Str(key, fallback string) string {
	if m == nil {
		return fallback
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return fallback
}

// Int64 returns the integer value for key, coercing JSON numbers and numeric
// strings, or fallback when absent or unparseable.
func (m Meta) Int64(key string, fallback int64) int64 {
	if m == nil {
		return fallback
	}
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(f)
		}
	}
	return fallback
}

// Float64 returns the numeric value for key, coercing JSON numbers and
// numeric strings, or fallback when absent or unparseable.
func (m Meta) Float64(key string, fallback float64) float64 {
	if m == nil {
		return fallback
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Bool returns the boolean value for key, or fallback when absent or not a
// boolean.
func (m Meta) Bool(key string, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

// CanonicalEvent is the immutable record of "something happened". ID doubles
// as the idempotency key for the processor and for handler-derived record
// ids. Timestamp is logical event time in epoch milliseconds, assigned at
// emission. Seq is a store-assigned monotonic position used by listeners as
// a cursor; it is not part of the event's identity.
type CanonicalEvent struct {
	Seq         int64     `db:"seq" json:"seq"`
	ID          uuid.UUID `db:"id" json:"id"`
	Type        string    `db:"event_type" json:"type"`
	Subject     Subject   `json:"subject"`
	ActorUserID string    `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Timestamp   int64     `db:"ts" json:"timestamp"`
	Meta        Meta      `db:"meta" json:"meta,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Time returns the logical event time as a time.Time.
func (e *CanonicalEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Draft is an event before emission: everything but the id, sequence, and
// (optionally) the timestamp.
type Draft struct {
	Type        string  `json:"type"`
	Subject     Subject `json:"subject"`
	ActorUserID string  `json:"actor_user_id,omitempty"`
	Timestamp   int64   `json:"timestamp,omitempty"`
	Meta        Meta    `json:"meta,omitempty"`
}
