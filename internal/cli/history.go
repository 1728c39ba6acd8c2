package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kdbxtools/kdbxrecover/internal/ledger"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var ledgerPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished recovery runs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ledger.Open(ledgerPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot open ledger", err)
			}
			defer l.Close()

			runs, err := l.ListRuns(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot list runs", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FINISHED\tTARGET\tSTATUS\tATTEMPTS\tWINNER")
			for _, r := range runs {
				winner := "-"
				if r.WinnerDesc != "" {
					winner = r.WinnerDesc
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.FinishedAt.Format("2006-01-02 15:04"),
					r.TargetPath, r.Status, r.Attempts, winner)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "SQLite ledger path (required)")
	_ = cmd.MarkFlagRequired("ledger")
	return cmd
}
