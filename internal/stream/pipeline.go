// Package stream drives one resolution run: token, ingestion, then
// classification slice by slice, pushing each slice to a Sink as it is ready.
package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/internal/store"
)

// State is the run's position in start → token_acquired → ingesting →
// classifying → done, with error as the other terminal state.
type State string

const (
	StateStart         State = "start"
	StateTokenAcquired State = "token_acquired"
	StateIngesting     State = "ingesting"
	StateClassifying   State = "classifying"
	StateDone          State = "done"
	StateError         State = "error"
)

const (
	defaultSliceSize = 10
	defaultHoursBack = 24

	// NotAvailable is the date shown when a call time did not parse.
	NotAvailable = "N/A"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// TokenSource acquires the CRM credential for the run.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// CandidateSource yields the missed-call candidates of a window.
type CandidateSource interface {
	Candidates(ctx context.Context, hoursBack int) ([]model.Candidate, error)
	Location() *time.Location
}

// Classifier resolves phones to outcomes, consulting the shared cache.
type Classifier interface {
	Classify(ctx context.Context, phones []string) map[string]model.Outcome
}

// Deps are the collaborators of one run. Marker may be nil.
type Deps struct {
	Tokens     TokenSource
	Candidates CandidateSource
	Classifier Classifier
	Marker     store.Store
}

// Config tunes slicing and pacing.
type Config struct {
	SliceSize int
	Pacing    time.Duration
	HoursBack int
}

// Pipeline runs the resolution flow against a Sink.
type Pipeline struct {
	deps Deps
	cfg  Config
}

// New creates a Pipeline, filling zero config values with defaults.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.SliceSize <= 0 {
		cfg.SliceSize = defaultSliceSize
	}
	if cfg.HoursBack <= 0 {
		cfg.HoursBack = defaultHoursBack
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Run executes one full run, emitting a heartbeat first and then data events
// per slice, closed by exactly one end or error event. If ctx is cancelled
// or the sink fails, remaining slices are abandoned silently.
func (p *Pipeline) Run(ctx context.Context, runID string, sink Sink) (State, error) {
	if runID == "" {
		runID = NewRunID()
	}
	log := zap.L().With(zap.String("run_id", runID))
	state := StateStart

	if err := sink.Send(Event{Name: EventHeartbeat, RunID: runID, Status: string(state)}); err != nil {
		return StateError, eris.Wrap(err, "stream: send heartbeat")
	}

	if _, err := p.deps.Tokens.Acquire(ctx); err != nil {
		log.Error("stream: token unavailable", zap.Error(err))
		p.fail(sink, runID, ErrTokenUnavailable, "could not generate access token")
		return StateError, eris.Wrap(err, "stream: acquire token")
	}
	state = StateTokenAcquired
	log.Debug("stream: state", zap.String("state", string(state)))

	state = StateIngesting
	candidates, err := p.deps.Candidates.Candidates(ctx, p.cfg.HoursBack)
	if err != nil {
		if ctx.Err() != nil {
			return StateError, eris.Wrap(ctx.Err(), "stream: ingest")
		}
		log.Error("stream: ingestion failed", zap.Error(err))
		p.fail(sink, runID, ErrIngestionFailed, "could not fetch call log")
		return StateError, eris.Wrap(err, "stream: ingest")
	}
	if len(candidates) == 0 {
		log.Info("stream: no missed-call candidates", zap.Int("hours_back", p.cfg.HoursBack))
		p.fail(sink, runID, ErrNoCandidates, "no missed calls in window")
		return StateDone, nil
	}

	log.Info("stream: classifying",
		zap.Int("candidates", len(candidates)),
		zap.Int("slice_size", p.cfg.SliceSize),
	)

	loc := p.deps.Candidates.Location()
	emitted := 0
	for start, n := 0, 1; start < len(candidates); start, n = start+p.cfg.SliceSize, n+1 {
		if err := ctx.Err(); err != nil {
			log.Info("stream: consumer gone, abandoning run", zap.Int("emitted", emitted))
			return StateError, eris.Wrap(err, "stream: run cancelled")
		}
		state = StateClassifying

		slice := candidates[start:min(start+p.cfg.SliceSize, len(candidates))]
		rows := p.classifySlice(ctx, slice, loc)
		// Searches cut short by cancellation degrade to Unknown; those rows
		// are neither emitted nor marked.
		if err := ctx.Err(); err != nil {
			log.Info("stream: consumer gone mid-slice, abandoning run", zap.Int("slice", n), zap.Int("emitted", emitted))
			return StateError, eris.Wrap(err, "stream: run cancelled")
		}

		if err := sink.Send(Event{Name: EventData, RunID: runID, Slice: n, Results: rows}); err != nil {
			log.Info("stream: sink closed, abandoning run", zap.Int("emitted", emitted), zap.Error(err))
			return StateError, eris.Wrap(err, "stream: send slice")
		}
		emitted += len(rows)
		p.mark(ctx, rows)

		if p.cfg.Pacing > 0 && start+p.cfg.SliceSize < len(candidates) {
			timer := time.NewTimer(p.cfg.Pacing)
			select {
			case <-ctx.Done():
				timer.Stop()
				return StateError, eris.Wrap(ctx.Err(), "stream: run cancelled")
			case <-timer.C:
			}
		}
	}

	state = StateDone
	if err := sink.Send(Event{Name: EventEnd, RunID: runID, Status: "finished", Count: emitted}); err != nil {
		return StateError, eris.Wrap(err, "stream: send end")
	}
	log.Info("stream: run finished", zap.Int("emitted", emitted))
	return state, nil
}

// Collect runs without pacing into memory and groups the outcomes. The
// summary's Error field carries the error code when the run emitted one.
func (p *Pipeline) Collect(ctx context.Context) (*model.Summary, error) {
	oneShot := &Pipeline{deps: p.deps, cfg: p.cfg}
	oneShot.cfg.Pacing = 0

	sink := &MemorySink{}
	_, err := oneShot.Run(ctx, NewRunID(), sink)

	summary := model.NewSummary()
	for _, ev := range sink.Events() {
		switch ev.Name {
		case EventData:
			for _, row := range ev.Results {
				summary.Add(row.Phone, row.Outcome)
			}
		case EventError:
			summary.Error = ev.Error
		}
	}
	summary.Sort()
	return summary, err
}

func (p *Pipeline) classifySlice(ctx context.Context, slice []model.Candidate, loc *time.Location) []model.ResultRow {
	phones := make([]string, len(slice))
	for i, c := range slice {
		phones[i] = c.Phone
	}
	outcomes := p.deps.Classifier.Classify(ctx, phones)

	rows := make([]model.ResultRow, len(slice))
	for i, c := range slice {
		rows[i] = buildRow(c, outcomes[c.Phone], loc)
	}
	return rows
}

func (p *Pipeline) mark(ctx context.Context, rows []model.ResultRow) {
	if p.deps.Marker == nil {
		return
	}
	processed := make([]store.ProcessedPhone, len(rows))
	for i, r := range rows {
		processed[i] = store.ProcessedPhone{Phone: r.Phone, Owner: r.Owner}
	}
	if err := p.deps.Marker.MarkProcessed(ctx, processed); err != nil {
		zap.L().Warn("stream: mark processed failed", zap.Int("rows", len(rows)), zap.Error(err))
	}
}

func (p *Pipeline) fail(sink Sink, runID, code, msg string) {
	if err := sink.Send(Event{Name: EventError, RunID: runID, Error: code, Message: msg}); err != nil {
		zap.L().Debug("stream: could not deliver error event", zap.String("error_code", code), zap.Error(err))
	}
}

// buildRow renders a candidate in the reference zone. A zero event time
// means the raw value did not parse: the date becomes N/A and the raw text
// is shown as the time.
func buildRow(c model.Candidate, o model.Outcome, loc *time.Location) model.ResultRow {
	row := model.ResultRow{
		Phone:    c.Phone,
		Owner:    o.Label(),
		Category: o.Kind(),
		Outcome:  o,
	}
	if c.EventTime.IsZero() {
		row.Date = NotAvailable
		row.Time = c.RawEventTime
		return row
	}
	if loc == nil {
		loc = time.UTC
	}
	t := c.EventTime.In(loc)
	row.Date = t.Format(dateLayout)
	row.Time = t.Format(timeLayout)
	return row
}
