package ingest

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/resilience"
)

// DefaultTimezone is the account's reference zone.
const DefaultTimezone = "Asia/Kolkata"

// istOffset is used when the zone database is unavailable.
var istOffset = time.FixedZone("IST", 5*60*60+30*60)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04",
}

// LoadLocation loads name from the zone database, falling back to a fixed
// +05:30 offset.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		zap.L().Warn("ingest: timezone unavailable, using fixed +05:30",
			zap.String("timezone", name), zap.Error(err))
		return istOffset
	}
	return loc
}

// ParseTimestamp parses a provider timestamp. Values without a zone are read
// in loc. On failure the zero time is returned with a ParseError.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &resilience.ParseError{Field: "start_time", Value: raw, Err: eris.New("empty")}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &resilience.ParseError{Field: "start_time", Value: raw, Err: eris.New("unrecognized layout")}
}
