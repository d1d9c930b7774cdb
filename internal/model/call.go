package model

import (
	"strings"
	"time"
)

// MissedAgentSentinel is the agent value the telephony provider writes when
// nobody picked up.
const MissedAgentSentinel = "missed"

// CallRecord is one row of the telephony call log.
type CallRecord struct {
	CustomerNumber string         `json:"customer_number"`
	AgentNumber    string         `json:"agent_number"`
	StartTime      time.Time      `json:"start_time"`     // zero when RawStartTime did not parse
	RawStartTime   string         `json:"raw_start_time"` // as delivered by the provider
	Raw            map[string]any `json:"raw,omitempty"`
}

// Attended reports whether a real agent took the call.
func (r CallRecord) Attended() bool {
	agent := strings.TrimSpace(r.AgentNumber)
	return agent != "" && !strings.EqualFold(agent, MissedAgentSentinel)
}

// Candidate is a customer number whose latest contact was unattended with no
// later attended call.
type Candidate struct {
	Phone        string    `json:"phone"`
	EventTime    time.Time `json:"event_time"`
	RawEventTime string    `json:"raw_event_time"`
}

// NormalizePhone strips everything but digits, dropping the leading "+".
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
