package model

import "encoding/json"

// OutcomeKind tags a classification outcome. Exactly one kind is active per
// phone number.
type OutcomeKind string

const (
	OutcomeUnknown          OutcomeKind = "unknown"
	OutcomeLead             OutcomeKind = "lead"
	OutcomePlanShipped      OutcomeKind = "plan_shipped"
	OutcomeConsultationDone OutcomeKind = "consultation_done"
	OutcomePlanDelivered    OutcomeKind = "plan_delivered"
)

// NoRaazMitra is the attribution used for delivered plans without a Raaz Mitra.
// It is a real group key, not a null.
const NoRaazMitra = "None"

// Outcome is the single category a phone number resolves to. Build values
// with the constructors; the zero value is Unknown.
type Outcome struct {
	kind      OutcomeKind
	name      string
	owner     string
	raazMitra string
}

// Unknown is the outcome for numbers neither queried successfully nor matched.
func Unknown() Outcome { return Outcome{kind: OutcomeUnknown} }

// Lead is a number matched in the Leads module.
func Lead(name, owner string) Outcome {
	return Outcome{kind: OutcomeLead, name: name, owner: owner}
}

// PlanShipped is a deal whose latest stage is "Plan Shipped".
func PlanShipped() Outcome { return Outcome{kind: OutcomePlanShipped} }

// ConsultationDone is a deal whose latest stage is "Consultation Done".
func ConsultationDone() Outcome { return Outcome{kind: OutcomeConsultationDone} }

// PlanDelivered is a delivered-plan deal attributed to raazMitra ("None" when empty).
func PlanDelivered(raazMitra string) Outcome {
	if raazMitra == "" {
		raazMitra = NoRaazMitra
	}
	return Outcome{kind: OutcomePlanDelivered, raazMitra: raazMitra}
}

// Kind returns the active tag.
func (o Outcome) Kind() OutcomeKind {
	if o.kind == "" {
		return OutcomeUnknown
	}
	return o.kind
}

// Name is the lead's full name; empty for other kinds.
func (o Outcome) Name() string { return o.name }

// Owner is the lead owner's display name; empty for other kinds.
func (o Outcome) Owner() string { return o.owner }

// RaazMitra is the delivered-plan attribution; empty for other kinds.
func (o Outcome) RaazMitra() string { return o.raazMitra }

// Label renders the owner column shown to consumers.
func (o Outcome) Label() string {
	switch o.Kind() {
	case OutcomeLead:
		return o.owner
	case OutcomePlanShipped:
		return "Plan Shipped"
	case OutcomeConsultationDone:
		return "Consultation Done"
	case OutcomePlanDelivered:
		return "Plan Delivered (" + o.raazMitra + ")"
	default:
		return "Unknown"
	}
}

type outcomeJSON struct {
	Type      OutcomeKind `json:"type"`
	Name      string      `json:"name,omitempty"`
	Owner     string      `json:"owner,omitempty"`
	RaazMitra string      `json:"raaz_mitra,omitempty"`
}

// MarshalJSON encodes the outcome as a tagged object.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON{Type: o.Kind(), Name: o.name, Owner: o.owner, RaazMitra: o.raazMitra})
}
