package episode

import "fmt"

// QuoteStatus mirrors the status of the episode's active quote as seen by
// the guard context.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuotePresented QuoteStatus = "PRESENTED"
	QuoteAccepted  QuoteStatus = "ACCEPTED"
	QuoteRejected  QuoteStatus = "REJECTED"
)

// GuardContext carries the preconditions a caller has established before
// attempting a transition. Zero values mean "not established".
type GuardContext struct {
	HasBaseConsent           bool        `json:"hasBaseConsent"`
	HasSpecificConsent       bool        `json:"hasSpecificConsent"`
	QuoteStatus              QuoteStatus `json:"quoteStatus,omitempty"`
	AppointmentConfirmed     bool        `json:"appointmentConfirmed"`
	TreatmentControlRecorded bool        `json:"treatmentControlRecorded"`
	DischargeChecklistReady  bool        `json:"dischargeChecklistReady"`
	RecallScheduled          bool        `json:"recallScheduled"`
}

// Guard is a predicate over the guard context that must hold for a matched
// transition to be legal.
type Guard func(GuardContext) bool

// Transition is one edge of the static workflow graph. Trigger names match
// canonical event types wherever the transition is event-driven.
type Transition struct {
	From        State  `json:"from"`
	To          State  `json:"to"`
	Trigger     string `json:"trigger"`
	Guard       Guard  `json:"-"`
	Guarded     bool   `json:"guarded"`
	Description string `json:"description"`
}

// Rejection explains why a transition attempt was refused. It is an expected,
// checkable outcome, not an error.
type Rejection struct {
	From    State  `json:"from"`
	Trigger string `json:"trigger"`
	Reason  string `json:"reason"`
}

// transitionTable is the full legal-transition graph: a linear pipeline with
// eleven forward edges. Loaded once at process start, read-only afterwards.
var transitionTable = []Transition{
	{
		From: StateCaptacion, To: StateTriaje, Trigger: "Lead.Qualified",
		Description: "Lead cualificado pasa a triaje",
	},
	{
		From: StateTriaje, To: StateCitacion, Trigger: "Appointment.Booked",
		Description: "Triaje completado, primera visita agendada",
	},
	{
		From: StateCitacion, To: StateRecibimiento, Trigger: "Appointment.CheckedIn",
		Guard:       func(ctx GuardContext) bool { return ctx.AppointmentConfirmed },
		Guarded:     true,
		Description: "Paciente confirmado y recibido en clinica",
	},
	{
		From: StateRecibimiento, To: StateExploracion, Trigger: "Consent.Signed.Base",
		Guard:       func(ctx GuardContext) bool { return ctx.HasBaseConsent },
		Guarded:     true,
		Description: "Consentimiento base firmado, comienza la exploracion",
	},
	{
		From: StateExploracion, To: StateDiagnostico, Trigger: "Exam.Completed",
		Description: "Exploracion completada, pendiente de diagnostico",
	},
	{
		From: StateDiagnostico, To: StatePlan, Trigger: "Diagnosis.Recorded",
		Description: "Diagnostico registrado, elaboracion del plan de tratamiento",
	},
	{
		From: StatePlan, To: StatePresupuesto, Trigger: "Quote.Presented",
		Description: "Plan convertido en presupuesto presentado al paciente",
	},
	{
		From: StatePresupuesto, To: StateTratamiento, Trigger: "Quote.Accepted",
		Guard: func(ctx GuardContext) bool {
			return ctx.HasSpecificConsent && ctx.QuoteStatus == QuoteAccepted
		},
		Guarded:     true,
		Description: "Presupuesto aceptado y consentimiento especifico firmado",
	},
	{
		From: StateTratamiento, To: StateSeguimiento, Trigger: "Treatment.Completed",
		Guard:       func(ctx GuardContext) bool { return ctx.TreatmentControlRecorded },
		Guarded:     true,
		Description: "Tratamiento finalizado con control registrado",
	},
	{
		From: StateSeguimiento, To: StateAlta, Trigger: "Episode.Closed",
		Guard:       func(ctx GuardContext) bool { return ctx.DischargeChecklistReady },
		Guarded:     true,
		Description: "Checklist de alta completado, episodio cerrado",
	},
	{
		From: StateAlta, To: StateMantenimiento, Trigger: "Recall.Scheduled",
		Guard:       func(ctx GuardContext) bool { return ctx.RecallScheduled },
		Guarded:     true,
		Description: "Recall programado, paciente en mantenimiento",
	},
}

// transitionIndex resolves (from, trigger) to its unique transition. Built
// once; duplicate (from, trigger) pairs are a programming error.
var transitionIndex = func() map[State]map[string]*Transition {
	idx := make(map[State]map[string]*Transition)
	for i := range transitionTable {
		t := &transitionTable[i]
		if idx[t.From] == nil {
			idx[t.From] = make(map[string]*Transition)
		}
		if _, dup := idx[t.From][t.Trigger]; dup {
			panic(fmt.Sprintf("duplicate transition for (%s, %s)", t.From, t.Trigger))
		}
		idx[t.From][t.Trigger] = t
	}
	return idx
}()

// Transitions returns a read-only copy of the full transition table, for
// auditing and the workflow HTTP endpoint.
func Transitions() []Transition {
	out := make([]Transition, len(transitionTable))
	copy(out, transitionTable)
	return out
}

// Triggers returns the distinct trigger names of the table.
func Triggers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range transitionTable {
		if !seen[t.Trigger] {
			seen[t.Trigger] = true
			out = append(out, t.Trigger)
		}
	}
	return out
}

// NextState resolves a transition attempt. It returns the target state when
// the unique (current, trigger) transition exists and its guard (if any)
// holds; otherwise it returns a Rejection. It never mutates anything.
func NextState(current State, trigger string, ctx GuardContext) (State, *Rejection) {
	t := lookup(current, trigger)
	if t == nil {
		return "", &Rejection{
			From:    current,
			Trigger: trigger,
			Reason:  fmt.Sprintf("no hay transicion desde %s con %s", current, trigger),
		}
	}
	if t.Guard != nil && !t.Guard(ctx) {
		return "", &Rejection{
			From:    current,
			Trigger: trigger,
			Reason:  fmt.Sprintf("condiciones no cumplidas: %s", t.Description),
		}
	}
	return t.To, nil
}

// CanTransition reports whether NextState would succeed. It is a pure query
// used by callers to surface a user-facing message before attempting a write.
func CanTransition(current State, trigger string, ctx GuardContext) bool {
	_, rej := NextState(current, trigger, ctx)
	return rej == nil
}

// TransitionDescription returns the human-facing description of the
// (from, trigger) transition, or "" when none exists.
func TransitionDescription(from State, trigger string) string {
	if t := lookup(from, trigger); t != nil {
		return t.Description
	}
	return ""
}

func lookup(from State, trigger string) *Transition {
	byTrigger, ok := transitionIndex[from]
	if !ok {
		return nil
	}
	return byTrigger[trigger]
}
