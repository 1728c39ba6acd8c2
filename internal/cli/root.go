package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Quiet   bool
}

// NewRootCommand creates the root command for the kdbxrecover CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kdbxrecover",
		Short: "Recover access to a KeePassXC database by trying credential combinations",
		Long: `kdbxrecover exhaustively tries combinations of passphrases, keyfiles
and hardware token slots against a locked KeePassXC database, delegating
each unlock attempt to keepassxc-cli. Progress is recorded durably after
every attempt, so an interrupted run resumes exactly where it left off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress progress output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}
