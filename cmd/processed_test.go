package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/missedcall/internal/config"
	"github.com/sells-group/missedcall/internal/store"
)

// withSQLiteConfig points the global cfg at a temp SQLite file for the test.
func withSQLiteConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marker.db")
	prev := cfg
	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: path}}
	t.Cleanup(func() { cfg = prev })
	return path
}

func runSub(t *testing.T, cmd *cobra.Command) string {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })
	require.NoError(t, cmd.RunE(cmd, nil))
	return buf.String()
}

func TestProcessedListAndClear(t *testing.T) {
	path := withSQLiteConfig(t)

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.MarkProcessed(context.Background(), []store.ProcessedPhone{
		{Phone: "919811111111", Owner: "Plan Shipped"},
		{Phone: "919822222222", Owner: "Akash Kumar"},
	}))
	require.NoError(t, st.Close())

	out := runSub(t, processedListCmd)
	assert.Contains(t, out, "PHONE")
	assert.Contains(t, out, "919811111111")
	assert.Contains(t, out, "Akash Kumar")

	out = runSub(t, processedClearCmd)
	assert.Equal(t, "cleared 2 processed numbers\n", out)

	out = runSub(t, processedListCmd)
	assert.NotContains(t, out, "919811111111")
}

func TestProcessedIs(t *testing.T) {
	path := withSQLiteConfig(t)

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.MarkProcessed(context.Background(), []store.ProcessedPhone{
		{Phone: "919811111111", Owner: "Plan Shipped"},
	}))
	require.NoError(t, st.Close())

	var buf bytes.Buffer
	processedIsCmd.SetOut(&buf)
	processedIsCmd.SetContext(context.Background())
	t.Cleanup(func() { processedIsCmd.SetOut(nil) })

	require.NoError(t, processedIsCmd.RunE(processedIsCmd, []string{"919811111111"}))
	require.NoError(t, processedIsCmd.RunE(processedIsCmd, []string{"919899999999"}))

	assert.Equal(t, "919811111111: processed\n919899999999: not processed\n", buf.String())
	assert.Error(t, processedIsCmd.Args(processedIsCmd, nil))
}

func TestOpenMarkerStore_NoDriver(t *testing.T) {
	prev := cfg
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = prev })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := openMarkerStore(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store driver configured")
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitApp_MissingCredentials(t *testing.T) {
	_, err := initApp(context.Background(), &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZOHO_CLIENT_ID")
}
