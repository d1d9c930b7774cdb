package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_MarkDefaultsCreatedAt(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkProcessed(ctx, []ProcessedPhone{{Phone: "919811111111", Owner: "Unknown"}}))

	got, err := st.ListProcessed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSQLite_ListRespectsLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rows := []ProcessedPhone{
		{Phone: "1", Owner: "Unknown"},
		{Phone: "2", Owner: "Unknown"},
		{Phone: "3", Owner: "Unknown"},
	}
	require.NoError(t, st.MarkProcessed(ctx, rows))

	got, err := st.ListProcessed(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_ClosedDatabaseErrors(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Close())

	err := st.MarkProcessed(context.Background(), []ProcessedPhone{{Phone: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: begin mark processed")
}
