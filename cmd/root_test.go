package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "resolve", "processed"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "missedcall", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestResolveCommand_Flags(t *testing.T) {
	hours := resolveCmd.Flags().Lookup("hours")
	require.NotNil(t, hours)
	assert.Equal(t, "0", hours.DefValue)

	streamFlag := resolveCmd.Flags().Lookup("stream")
	require.NotNil(t, streamFlag)
	assert.Equal(t, "false", streamFlag.DefValue)
}

func TestProcessedCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range processedCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["clear"])
	assert.True(t, names["is"])

	limit := processedListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)
}

func TestRootCommand_LogLevelFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
	assert.True(t, rootCmd.SilenceUsage)
}
