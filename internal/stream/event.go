package stream

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/missedcall/internal/model"
)

// EventName is the SSE event name. Data events are sent unnamed.
type EventName string

const (
	EventHeartbeat EventName = "heartbeat"
	EventData      EventName = "data"
	EventEnd       EventName = "end"
	EventError     EventName = "error"
)

// Error codes carried in the error field of an error event.
const (
	ErrTokenUnavailable = "token_unavailable"
	ErrIngestionFailed  = "ingestion_failed"
	ErrNoCandidates     = "no_candidates"
)

// Event is one emission to the consumer.
type Event struct {
	Name    EventName         `json:"-"`
	RunID   string            `json:"run_id"`
	Status  string            `json:"status,omitempty"`
	Slice   int               `json:"slice,omitempty"`
	Results []model.ResultRow `json:"results,omitempty"`
	Count   int               `json:"count,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Frame encodes the event as "event: <name>\ndata: <json>\n\n". Data events
// omit the event line.
func (e Event) Frame() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrap(err, "stream: marshal event")
	}

	var buf []byte
	if e.Name != "" && e.Name != EventData {
		buf = append(buf, "event: "...)
		buf = append(buf, e.Name...)
		buf = append(buf, '\n')
	}
	buf = append(buf, "data: "...)
	buf = append(buf, payload...)
	buf = append(buf, '\n', '\n')
	return buf, nil
}
