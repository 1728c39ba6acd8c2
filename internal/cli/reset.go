package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdbxtools/kdbxrecover/internal/progress"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var progressFile string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted progress file",
		Long: `Delete the progress file unconditionally. The next run starts from
scratch. This is the only way to recover from a corrupt progress file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := progress.NewStore(progressFile)
			if err := store.Reset(); err != nil {
				return WrapExitError(ExitCommandError, "reset failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress file %s cleared\n", progressFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&progressFile, "progress-file", DefaultProgressFile, "progress file location")
	return cmd
}
