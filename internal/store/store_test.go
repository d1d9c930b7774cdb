package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("MarkAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.MarkProcessed(ctx, []ProcessedPhone{
			{Phone: "919811111111", Owner: "Plan Shipped", CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
			{Phone: "919822222222", Owner: "Aarti Sharma", CreatedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)},
		})
		require.NoError(t, err)

		got, err := s.ListProcessed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "919822222222", got[0].Phone)
		assert.Equal(t, "Aarti Sharma", got[0].Owner)
		assert.Equal(t, "919811111111", got[1].Phone)
	})

	t.Run("MarkTwiceUpdatesOwner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, s.MarkProcessed(ctx, []ProcessedPhone{{Phone: "919811111111", Owner: "Unknown", CreatedAt: first}}))
		require.NoError(t, s.MarkProcessed(ctx, []ProcessedPhone{{Phone: "919811111111", Owner: "Consultation Done"}}))

		got, err := s.ListProcessed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Consultation Done", got[0].Owner)
		assert.True(t, got[0].CreatedAt.Equal(first))
	})

	t.Run("DuplicatesInOneBatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.MarkProcessed(ctx, []ProcessedPhone{
			{Phone: "919811111111", Owner: "Unknown"},
			{Phone: "919811111111", Owner: "Plan Shipped"},
			{Phone: "", Owner: "ignored"},
		}))

		got, err := s.ListProcessed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Plan Shipped", got[0].Owner)
	})

	t.Run("IsProcessed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.MarkProcessed(ctx, []ProcessedPhone{{Phone: "919811111111", Owner: "Unknown"}}))

		ok, err := s.IsProcessed(ctx, "919811111111")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.IsProcessed(ctx, "919800000000")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.MarkProcessed(ctx, []ProcessedPhone{
			{Phone: "919811111111", Owner: "Unknown"},
			{Phone: "919822222222", Owner: "Unknown"},
		}))

		n, err := s.ClearProcessed(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := s.ListProcessed(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("EmptyMarkIsNoop", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkProcessed(context.Background(), nil))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestDedupe(t *testing.T) {
	got := dedupe([]ProcessedPhone{
		{Phone: "1", Owner: "a"},
		{Phone: "2", Owner: "b"},
		{Phone: "1", Owner: "c"},
		{Phone: ""},
	})
	require.Len(t, got, 2)
	assert.Equal(t, ProcessedPhone{Phone: "1", Owner: "c"}, got[0])
	assert.Equal(t, "2", got[1].Phone)
}
