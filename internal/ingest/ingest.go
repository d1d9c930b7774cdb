// Package ingest pulls the telephony call log for a time window and reduces
// it to the numbers whose latest contact went unanswered.
package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/pkg/telephony"
)

const (
	defaultPageSize           = 100
	defaultMaxConcurrentPages = 8
)

// Ingestor fetches call-log windows from the telephony provider.
type Ingestor struct {
	client        telephony.Client
	loc           *time.Location
	pageSize      int
	maxConcurrent int
	now           func() time.Time
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLocation sets the reference zone used for the window and timestamps.
func WithLocation(loc *time.Location) Option {
	return func(i *Ingestor) {
		if loc != nil {
			i.loc = loc
		}
	}
}

// WithPageSize sets the per-page record limit.
func WithPageSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.pageSize = n
		}
	}
}

// WithMaxConcurrentPages bounds the page fan-out.
func WithMaxConcurrentPages(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxConcurrent = n
		}
	}
}

// New creates an Ingestor. The reference zone defaults to Asia/Kolkata.
func New(client telephony.Client, opts ...Option) *Ingestor {
	i := &Ingestor{
		client:        client,
		loc:           LoadLocation(DefaultTimezone),
		pageSize:      defaultPageSize,
		maxConcurrent: defaultMaxConcurrentPages,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Location returns the reference zone.
func (i *Ingestor) Location() *time.Location { return i.loc }

// Window returns [now-hoursBack, now] in the reference zone.
func (i *Ingestor) Window(hoursBack int) (time.Time, time.Time) {
	end := i.now().In(i.loc).Truncate(time.Second)
	return end.Add(-time.Duration(hoursBack) * time.Hour), end
}

// FetchWindow returns every call record of the last hoursBack hours in page
// order. The first page learns the total count; the rest are fetched
// concurrently. A failed later page is logged and contributes no records.
// Only a failed first page is an error.
func (i *Ingestor) FetchWindow(ctx context.Context, hoursBack int) ([]model.CallRecord, error) {
	if hoursBack <= 0 {
		return nil, eris.Errorf("ingest: hours back must be positive, got %d", hoursBack)
	}
	start, end := i.Window(hoursBack)
	log := zap.L().With(
		zap.String("window_start", start.Format(telephony.TimeLayout)),
		zap.String("window_end", end.Format(telephony.TimeLayout)),
	)

	first, err := i.client.FetchPage(ctx, telephony.PageQuery{Start: start, End: end, Limit: i.pageSize})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: fetch first page")
	}

	pageCount := pages(first.TotalCount, i.pageSize)
	log.Info("ingest: fetching call log",
		zap.Int("total_count", first.TotalCount),
		zap.Int("pages", pageCount),
	)

	results := make([][]model.CallRecord, max(pageCount, 1))
	results[0] = i.toRecords(first.Calls)

	if pageCount > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(i.maxConcurrent)

		for p := 1; p < pageCount; p++ {
			g.Go(func() error {
				page, err := i.client.FetchPage(gCtx, telephony.PageQuery{
					Start:  start,
					End:    end,
					Limit:  i.pageSize,
					Offset: p * i.pageSize,
				})
				if err != nil {
					log.Warn("ingest: page failed, treated as empty",
						zap.Int("page", p),
						zap.Error(err),
					)
					return nil
				}
				results[p] = i.toRecords(page.Calls)
				return nil
			})
		}

		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: fetch window")
	}

	var records []model.CallRecord
	for _, r := range results {
		records = append(records, r...)
	}
	return records, nil
}

// Candidates fetches the window and resolves it to missed-call candidates.
func (i *Ingestor) Candidates(ctx context.Context, hoursBack int) ([]model.Candidate, error) {
	records, err := i.FetchWindow(ctx, hoursBack)
	if err != nil {
		return nil, err
	}
	candidates := ResolveMissed(records)
	zap.L().Info("ingest: resolved missed calls",
		zap.Int("records", len(records)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (i *Ingestor) toRecords(calls []telephony.CallLog) []model.CallRecord {
	out := make([]model.CallRecord, 0, len(calls))
	for _, c := range calls {
		ts, err := ParseTimestamp(c.StartTime, i.loc)
		if err != nil {
			zap.L().Debug("ingest: unparsable start time", zap.String("call_id", c.ID), zap.Error(err))
		}
		out = append(out, model.CallRecord{
			CustomerNumber: c.CustomerNumber,
			AgentNumber:    c.AgentNumber,
			StartTime:      ts,
			RawStartTime:   c.StartTime,
			Raw:            c.Raw,
		})
	}
	return out
}

func pages(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
