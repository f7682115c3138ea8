package episode

import "testing"

func TestTransitionTable_UniquePerFromTrigger(t *testing.T) {
	seen := make(map[State]map[string]bool)
	for _, tr := range Transitions() {
		if seen[tr.From] == nil {
			seen[tr.From] = make(map[string]bool)
		}
		if seen[tr.From][tr.Trigger] {
			t.Errorf("duplicate transition for (%s, %s)", tr.From, tr.Trigger)
		}
		seen[tr.From][tr.Trigger] = true
	}
}

func TestTransitionTable_StatesAndTargetsValid(t *testing.T) {
	for _, tr := range Transitions() {
		if !tr.From.Valid() {
			t.Errorf("transition from unknown state %q", tr.From)
		}
		if !tr.To.Valid() {
			t.Errorf("transition to unknown state %q", tr.To)
		}
		if tr.Trigger == "" {
			t.Errorf("transition %s -> %s has empty trigger", tr.From, tr.To)
		}
		if tr.Description == "" {
			t.Errorf("transition (%s, %s) has empty description", tr.From, tr.Trigger)
		}
		if tr.Guarded != (tr.Guard != nil) {
			t.Errorf("transition (%s, %s): Guarded flag does not match Guard", tr.From, tr.Trigger)
		}
	}
	if n := len(Transitions()); n != 11 {
		t.Errorf("transition table has %d edges, want 11", n)
	}
}

// permissiveContext satisfies every guard in the table.
func permissiveContext() GuardContext {
	return GuardContext{
		HasBaseConsent:           true,
		HasSpecificConsent:       true,
		QuoteStatus:              QuoteAccepted,
		AppointmentConfirmed:     true,
		TreatmentControlRecorded: true,
		DischargeChecklistReady:  true,
		RecallScheduled:          true,
	}
}

func TestNextState_RejectsEverythingNotInTable(t *testing.T) {
	inTable := make(map[State]map[string]bool)
	for _, tr := range Transitions() {
		if inTable[tr.From] == nil {
			inTable[tr.From] = make(map[string]bool)
		}
		inTable[tr.From][tr.Trigger] = true
	}

	ctx := permissiveContext()
	for _, s := range States() {
		for _, trigger := range Triggers() {
			next, rej := NextState(s, trigger, ctx)
			if inTable[s][trigger] {
				if rej != nil {
					t.Errorf("(%s, %s) with permissive context rejected: %s", s, trigger, rej.Reason)
				}
				if !next.Valid() {
					t.Errorf("(%s, %s) produced invalid state %q", s, trigger, next)
				}
			} else {
				if rej == nil {
					t.Errorf("(%s, %s) not in table but accepted -> %s", s, trigger, next)
				}
			}
		}
	}
}

func TestNextState_GuardFailureRejectsMatchedTransition(t *testing.T) {
	// Empty context fails every guard; unguarded transitions still pass.
	for _, tr := range Transitions() {
		next, rej := NextState(tr.From, tr.Trigger, GuardContext{})
		if tr.Guarded {
			if rej == nil {
				t.Errorf("guarded (%s, %s) accepted with empty context -> %s", tr.From, tr.Trigger, next)
			}
		} else {
			if rej != nil {
				t.Errorf("unguarded (%s, %s) rejected: %s", tr.From, tr.Trigger, rej.Reason)
			}
		}
	}
}

func TestNextState_LeadQualified(t *testing.T) {
	next, rej := NextState(StateCaptacion, "Lead.Qualified", GuardContext{})
	if rej != nil {
		t.Fatalf("unexpected rejection: %s", rej.Reason)
	}
	if next != StateTriaje {
		t.Errorf("next = %s, want TRIAJE", next)
	}
}

func TestNextState_BaseConsentGuard(t *testing.T) {
	if _, rej := NextState(StateRecibimiento, "Consent.Signed.Base", GuardContext{HasBaseConsent: false}); rej == nil {
		t.Error("expected rejection without base consent")
	}

	next, rej := NextState(StateRecibimiento, "Consent.Signed.Base", GuardContext{HasBaseConsent: true})
	if rej != nil {
		t.Fatalf("unexpected rejection: %s", rej.Reason)
	}
	if next != StateExploracion {
		t.Errorf("next = %s, want EXPLORACION", next)
	}
}

func TestNextState_QuoteAcceptedGuard(t *testing.T) {
	next, rej := NextState(StatePresupuesto, "Quote.Accepted", GuardContext{
		HasSpecificConsent: true,
		QuoteStatus:        QuoteAccepted,
	})
	if rej != nil {
		t.Fatalf("unexpected rejection: %s", rej.Reason)
	}
	if next != StateTratamiento {
		t.Errorf("next = %s, want TRATAMIENTO", next)
	}

	if _, rej := NextState(StatePresupuesto, "Quote.Accepted", GuardContext{
		HasSpecificConsent: true,
		QuoteStatus:        QuotePresented,
	}); rej == nil {
		t.Error("expected rejection when quote is only presented")
	}

	if _, rej := NextState(StatePresupuesto, "Quote.Accepted", GuardContext{
		HasSpecificConsent: false,
		QuoteStatus:        QuoteAccepted,
	}); rej == nil {
		t.Error("expected rejection without specific consent")
	}
}

func TestNextState_RecallScheduledGuard(t *testing.T) {
	if _, rej := NextState(StateAlta, "Recall.Scheduled", GuardContext{RecallScheduled: false}); rej == nil {
		t.Error("expected rejection without recall scheduled")
	}

	next, rej := NextState(StateAlta, "Recall.Scheduled", GuardContext{RecallScheduled: true})
	if rej != nil {
		t.Fatalf("unexpected rejection: %s", rej.Reason)
	}
	if next != StateMantenimiento {
		t.Errorf("next = %s, want MANTENIMIENTO", next)
	}
}

func TestCanTransition_MatchesNextState(t *testing.T) {
	ctx := permissiveContext()
	for _, s := range States() {
		for _, trigger := range Triggers() {
			_, rej := NextState(s, trigger, ctx)
			if got := CanTransition(s, trigger, ctx); got != (rej == nil) {
				t.Errorf("CanTransition(%s, %s) = %v, NextState rejection = %v", s, trigger, got, rej)
			}
		}
	}
}

func TestTransitionDescription(t *testing.T) {
	if desc := TransitionDescription(StateCaptacion, "Lead.Qualified"); desc == "" {
		t.Error("expected non-empty description for a table edge")
	}
	if desc := TransitionDescription(StateCaptacion, "Quote.Accepted"); desc != "" {
		t.Errorf("expected empty description for missing edge, got %q", desc)
	}
}

func TestRejection_CarriesAttemptedPair(t *testing.T) {
	_, rej := NextState(StateTriaje, "Recall.Scheduled", GuardContext{})
	if rej == nil {
		t.Fatal("expected rejection")
	}
	if rej.From != StateTriaje || rej.Trigger != "Recall.Scheduled" {
		t.Errorf("rejection pair = (%s, %s)", rej.From, rej.Trigger)
	}
	if rej.Reason == "" {
		t.Error("expected a reason")
	}
}
