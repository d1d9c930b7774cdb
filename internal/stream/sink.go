package stream

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Sink receives events in emission order. A Send error means the consumer
// is gone and the run should stop.
type Sink interface {
	Send(ev Event) error
}

// ErrStreamClosed is returned by SSEWriter.Send after an end or error event
// has been written.
var ErrStreamClosed = eris.New("stream: closed")

// SSEWriter frames events onto w and flushes after each one when w supports
// it. Send is safe to call from the keep-alive goroutine and the run at once.
type SSEWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

// NewSSEWriter wraps w. An http.ResponseWriter gets flushed per event.
func NewSSEWriter(w io.Writer) *SSEWriter {
	s := &SSEWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Send writes one framed event. An end or error event is terminal: every
// later Send, including keep-alive heartbeats, returns ErrStreamClosed.
func (s *SSEWriter) Send(ev Event) error {
	frame, err := ev.Frame()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if ev.Name == EventEnd || ev.Name == EventError {
		s.closed = true
	}
	if _, err := s.w.Write(frame); err != nil {
		return eris.Wrap(err, "stream: write event")
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// KeepAlive sends a heartbeat every interval until ctx is done. It blocks;
// run it in its own goroutine.
func (s *SSEWriter) KeepAlive(ctx context.Context, interval time.Duration, runID string) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Send(Event{Name: EventHeartbeat, RunID: runID, Status: "alive"}); err != nil {
				return
			}
		}
	}
}

// MemorySink collects events in order.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Send(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything sent so far.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
