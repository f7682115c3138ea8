// Package episode models a patient's bounded clinical journey and the
// deterministic state machine that governs it. The episode state is the only
// field the machine owns; every change goes through the static transition
// table, so the full legal-transition graph is enumerable and testable
// independent of data.
package episode

import (
	"time"

	"github.com/google/uuid"
)

// State is one of the closed, ordered set of clinical states an episode
// moves through, from lead capture to discharge and recall.
type State string

const (
	StateCaptacion     State = "CAPTACION"
	StateTriaje        State = "TRIAJE"
	StateCitacion      State = "CITACION"
	StateRecibimiento  State = "RECIBIMIENTO"
	StateExploracion   State = "EXPLORACION"
	StateDiagnostico   State = "DIAGNOSTICO"
	StatePlan          State = "PLAN"
	StatePresupuesto   State = "PRESUPUESTO"
	StateTratamiento   State = "TRATAMIENTO"
	StateSeguimiento   State = "SEGUIMIENTO"
	StateAlta          State = "ALTA"
	StateMantenimiento State = "MANTENIMIENTO"
)

// States returns the closed set in pipeline order.
func States() []State {
	return []State{
		StateCaptacion, StateTriaje, StateCitacion, StateRecibimiento,
		StateExploracion, StateDiagnostico, StatePlan, StatePresupuesto,
		StateTratamiento, StateSeguimiento, StateAlta, StateMantenimiento,
	}
}

var validStates = func() map[State]bool {
	m := make(map[State]bool)
	for _, s := range States() {
		m[s] = true
	}
	return m
}()

// Valid reports whether s belongs to the closed state set.
func (s State) Valid() bool { return validStates[s] }

// Closing reports whether entering s closes the episode. ALTA marks
// discharge; MANTENIMIENTO is the post-discharge recall state and keeps the
// original close timestamp.
func (s State) Closing() bool { return s == StateAlta }

// Episode is one patient's clinical journey. State may only change through
// the transition table; RiskFlags, Reason and Tags are free-form metadata
// mutated by domain actions directly.
type Episode struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	State     State      `db:"state" json:"state"`
	RiskFlags []string   `db:"risk_flags" json:"risk_flags,omitempty"`
	Reason    string     `db:"reason" json:"reason,omitempty"`
	Tags      []string   `db:"tags" json:"tags,omitempty"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	ClosedAt  *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
