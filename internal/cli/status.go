package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kdbxtools/kdbxrecover/internal/progress"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var progressFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the persisted recovery progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := progress.NewStore(progressFile)
			st, err := store.Read()
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "no progress recorded at %s\n", progressFile)
				return nil
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot read progress", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target:       %s\n", st.TargetPath)
			fmt.Fprintf(out, "fingerprint:  %s\n", st.TargetFingerprint)
			fmt.Fprintf(out, "status:       %s\n", st.Status)
			fmt.Fprintf(out, "run id:       %s\n", st.RunID)
			fmt.Fprintf(out, "started:      %s\n", humanize.Time(st.StartedAt))
			fmt.Fprintf(out, "last updated: %s\n", humanize.Time(st.UpdatedAt))

			var failed, errored int
			for _, rec := range st.Attempts {
				switch rec.Outcome {
				case progress.OutcomeFailed:
					failed++
				case progress.OutcomeErrored:
					errored++
				}
			}
			fmt.Fprintf(out, "attempts:     %s recorded (%d failed, %d errored)\n",
				humanize.Comma(int64(len(st.Attempts))), failed, errored)

			if st.Winner != nil {
				fmt.Fprintf(out, "winner:       %s\n", st.Winner.Combination().Desc())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&progressFile, "progress-file", DefaultProgressFile, "progress file location")
	return cmd
}
