package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/stream"
)

var (
	resolveHours  int
	resolveStream bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run one resolution and print the result",
	Long:  "Runs the full pipeline once. Prints the grouped JSON summary, or SSE frames as each slice is classified with --stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		p := env.NewPipeline(resolveHours)
		out := cmd.OutOrStdout()
		if resolveStream {
			return streamTo(ctx, p, out)
		}
		return printSummary(ctx, p, out)
	},
}

func init() {
	resolveCmd.Flags().IntVar(&resolveHours, "hours", 0, "window size in hours (default from config)")
	resolveCmd.Flags().BoolVar(&resolveStream, "stream", false, "print SSE frames instead of a summary")
	rootCmd.AddCommand(resolveCmd)
}

// printSummary runs once and writes the indented summary. A run that ended
// in an error event still prints the summary before returning the error.
func printSummary(ctx context.Context, p *stream.Pipeline, out io.Writer) error {
	summary, runErr := p.Collect(ctx)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return eris.Wrap(err, "resolve: encode summary")
	}
	return runErr
}

func streamTo(ctx context.Context, p *stream.Pipeline, out io.Writer) error {
	state, err := p.Run(ctx, stream.NewRunID(), stream.NewSSEWriter(out))
	if err != nil {
		zap.L().Warn("resolve: run ended early", zap.String("state", string(state)), zap.Error(err))
	}
	return err
}
