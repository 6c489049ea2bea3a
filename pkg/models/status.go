package models

// Phase is one of the four coarse lifecycle stages. It is derived from the status.
type Phase int

const (
	PhaseLead         Phase = 1
	PhasePotential    Phase = 2
	PhaseActiveClient Phase = 3
	PhaseCompletion   Phase = 4
)

// CaseStatus is one of the sixteen fine-grained lifecycle states.
type CaseStatus string

const (
	// Phase 1: Lead
	StatusNew              CaseStatus = "new"
	StatusContacted        CaseStatus = "contacted"
	StatusMeetingScheduled CaseStatus = "meeting_scheduled"
	StatusMeetingCompleted CaseStatus = "meeting_completed"

	// Phase 2: Potential
	StatusProposalSent    CaseStatus = "proposal_sent"
	StatusNegotiating     CaseStatus = "negotiating"
	StatusAwaitingPayment CaseStatus = "awaiting_payment"
	StatusPaymentReceived CaseStatus = "payment_received"

	// Phase 3: Active client
	StatusOnboarding           CaseStatus = "onboarding"
	StatusDocumentsPending     CaseStatus = "documents_pending"
	StatusDocumentsReview      CaseStatus = "documents_review"
	StatusApplicationSubmitted CaseStatus = "application_submitted"

	// Phase 4: Completion
	StatusProcessing CaseStatus = "processing"
	StatusApproved   CaseStatus = "approved"
	StatusFinalizing CaseStatus = "finalizing"
	StatusCompleted  CaseStatus = "completed"
)

var phaseStatuses = map[Phase][]CaseStatus{
	PhaseLead:         {StatusNew, StatusContacted, StatusMeetingScheduled, StatusMeetingCompleted},
	PhasePotential:    {StatusProposalSent, StatusNegotiating, StatusAwaitingPayment, StatusPaymentReceived},
	PhaseActiveClient: {StatusOnboarding, StatusDocumentsPending, StatusDocumentsReview, StatusApplicationSubmitted},
	PhaseCompletion:   {StatusProcessing, StatusApproved, StatusFinalizing, StatusCompleted},
}

var statusPhase = func() map[CaseStatus]Phase {
	m := make(map[CaseStatus]Phase, 16)
	for p, list := range phaseStatuses {
		for _, s := range list {
			m[s] = p
		}
	}
	return m
}()

// Phases returns the four phases in order.
func Phases() []Phase {
	return []Phase{PhaseLead, PhasePotential, PhaseActiveClient, PhaseCompletion}
}

// Valid reports whether p is one of the four phases.
func (p Phase) Valid() bool {
	_, ok := phaseStatuses[p]
	return ok
}

// Statuses returns the ordered statuses owned by p (nil for an unknown phase).
func (p Phase) Statuses() []CaseStatus {
	list := phaseStatuses[p]
	out := make([]CaseStatus, len(list))
	copy(out, list)
	return out
}

// Owns reports whether s belongs to p.
func (p Phase) Owns(s CaseStatus) bool {
	got, ok := statusPhase[s]
	return ok && got == p
}

// Valid reports whether s is one of the sixteen statuses.
func (s CaseStatus) Valid() bool {
	_, ok := statusPhase[s]
	return ok
}

// StatusPhase returns the phase owning s.
func StatusPhase(s CaseStatus) (Phase, bool) {
	p, ok := statusPhase[s]
	return p, ok
}

// ParseStatus converts raw input to a known status. No normalisation is applied.
func ParseStatus(raw string) (CaseStatus, bool) {
	s := CaseStatus(raw)
	return s, s.Valid()
}
