package ingest

import (
	"sort"
	"time"

	"github.com/sells-group/missedcall/internal/model"
)

// ResolveMissed returns one candidate per customer number whose latest
// unattended call is strictly later than its latest attended call (or that
// has no attended call at all), ordered by event time ascending.
//
// Records are stable-sorted by start time first, so equal timestamps keep
// provider order. A record with an unparsable time sorts first and can only
// win when the number has no dated record.
func ResolveMissed(records []model.CallRecord) []model.Candidate {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]model.CallRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	attended := make(map[string]time.Time)
	for _, r := range sorted {
		phone := model.NormalizePhone(r.CustomerNumber)
		if phone == "" || !r.Attended() {
			continue
		}
		attended[phone] = r.StartTime
	}

	latest := make(map[string]model.Candidate)
	var order []string
	for _, r := range sorted {
		phone := model.NormalizePhone(r.CustomerNumber)
		if phone == "" || r.Attended() {
			continue
		}
		if at, ok := attended[phone]; ok && !r.StartTime.After(at) {
			continue
		}
		if _, seen := latest[phone]; !seen {
			order = append(order, phone)
		}
		latest[phone] = model.Candidate{Phone: phone, EventTime: r.StartTime, RawEventTime: r.RawStartTime}
	}

	out := make([]model.Candidate, 0, len(order))
	for _, phone := range order {
		out = append(out, latest[phone])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventTime.Before(out[j].EventTime)
	})
	return out
}
