package model

import "sort"

// ResultRow is one classified phone as delivered to consumers.
type ResultRow struct {
	Phone    string      `json:"phone"`
	Date     string      `json:"date"`
	Time     string      `json:"time"`
	Owner    string      `json:"owner"`
	Category OutcomeKind `json:"category"`
	Outcome  Outcome     `json:"-"`
}

// LeadInfo is a lead entry in the grouped summary.
type LeadInfo struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// Summary groups a run's outcomes by category, the one-shot response shape.
type Summary struct {
	Leads            map[string]LeadInfo `json:"leads"`
	PlanShipped      []string            `json:"plan_shipped"`
	ConsultationDone []string            `json:"consultation_done"`
	PlanDelivered    map[string][]string `json:"plan_delivered"`
	Unknown          []string            `json:"unknown"`
	Error            string              `json:"error,omitempty"`
}

// NewSummary returns an empty summary with non-nil collections so they
// encode as {} and [] rather than null.
func NewSummary() *Summary {
	return &Summary{
		Leads:            map[string]LeadInfo{},
		PlanShipped:      []string{},
		ConsultationDone: []string{},
		PlanDelivered:    map[string][]string{},
		Unknown:          []string{},
	}
}

// Add files a phone under its outcome's group.
func (s *Summary) Add(phone string, o Outcome) {
	switch o.Kind() {
	case OutcomeLead:
		s.Leads[phone] = LeadInfo{Name: o.Name(), Owner: o.Owner()}
	case OutcomePlanShipped:
		s.PlanShipped = append(s.PlanShipped, phone)
	case OutcomeConsultationDone:
		s.ConsultationDone = append(s.ConsultationDone, phone)
	case OutcomePlanDelivered:
		s.PlanDelivered[o.RaazMitra()] = append(s.PlanDelivered[o.RaazMitra()], phone)
	default:
		s.Unknown = append(s.Unknown, phone)
	}
}

// Sort orders every phone list so repeated runs over the same input encode
// identically.
func (s *Summary) Sort() {
	sort.Strings(s.PlanShipped)
	sort.Strings(s.ConsultationDone)
	sort.Strings(s.Unknown)
	for _, phones := range s.PlanDelivered {
		sort.Strings(phones)
	}
}
