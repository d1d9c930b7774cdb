package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/missedcall/internal/store"
)

var processedLimit int

var processedCmd = &cobra.Command{
	Use:   "processed",
	Short: "Inspect or clear the processed-phone marker table",
}

var processedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently processed numbers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openMarkerStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.ListProcessed(ctx, processedLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PHONE\tOWNER\tCREATED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Phone, r.Owner, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var processedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every processed-phone marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openMarkerStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ClearProcessed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d processed numbers\n", n)
		return nil
	},
}

var processedIsCmd = &cobra.Command{
	Use:   "is <phone>",
	Short: "Report whether a number has already been processed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openMarkerStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ok, err := st.IsProcessed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: processed\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: not processed\n", args[0])
		}
		return nil
	},
}

func init() {
	processedListCmd.Flags().IntVar(&processedLimit, "limit", 50, "maximum rows to print")
	processedCmd.AddCommand(processedListCmd, processedIsCmd, processedClearCmd)
	rootCmd.AddCommand(processedCmd)
}

// openMarkerStore opens and migrates the configured store. Provider
// credentials are not needed here.
func openMarkerStore(cmd *cobra.Command) (store.Store, error) {
	st, err := initStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("processed: no store driver configured")
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "processed: migrate store")
	}
	return st, nil
}
