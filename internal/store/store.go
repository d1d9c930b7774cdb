// Package store persists the numbers a run has already delivered.
package store

import (
	"context"
	"time"
)

// ProcessedPhone is one delivered number and the owner label it was shown with.
type ProcessedPhone struct {
	Phone     string    `json:"phone_number"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable "already processed" marker. Marking the same number
// twice updates its owner and keeps the first created_at.
type Store interface {
	MarkProcessed(ctx context.Context, rows []ProcessedPhone) error
	IsProcessed(ctx context.Context, phone string) (bool, error)
	ListProcessed(ctx context.Context, limit int) ([]ProcessedPhone, error)
	ClearProcessed(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// dedupe keeps the last row per phone, preserving first-seen order. The
// Postgres merge cannot touch one row twice in a single statement.
func dedupe(rows []ProcessedPhone) []ProcessedPhone {
	idx := make(map[string]int, len(rows))
	out := make([]ProcessedPhone, 0, len(rows))
	for _, r := range rows {
		if r.Phone == "" {
			continue
		}
		if i, ok := idx[r.Phone]; ok {
			out[i] = r
			continue
		}
		idx[r.Phone] = len(out)
		out = append(out, r)
	}
	return out
}
