package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
	"github.com/kdbxtools/kdbxrecover/internal/enumerate"
	"github.com/kdbxtools/kdbxrecover/internal/ledger"
	"github.com/kdbxtools/kdbxrecover/internal/probe"
	"github.com/kdbxtools/kdbxrecover/internal/progress"
	"github.com/kdbxtools/kdbxrecover/internal/runner"
)

// DefaultProgressFile is where run state is persisted unless
// overridden.
const DefaultProgressFile = ".kdbxrecover.json"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Job string

	PassphraseFile string
	Passphrases    []string
	KeyfileDir     string
	Keyfiles       []string
	TokenSlots     []int

	IncludeNoPassphrase bool
	IncludeNoKeyfile    bool
	IncludeNoToken      bool

	ProgressFile string
	Resume       bool
	StrictResume bool
	Timeout      time.Duration
	Ledger       string
	ProbeBinary  string

	// Probe allows substituting the unlock collaborator (for testing).
	// If nil, a keepassxc-cli probe is built from ProbeBinary.
	Probe probe.Probe
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [database.kdbx]",
		Short: "Try credential combinations against a locked database",
		Long: `Try every combination of the supplied passphrases, keyfiles and token
slots against the database, simplest combinations first. Every attempt
is recorded in the progress file before the next one starts; rerunning
the same command resumes without repeating resolved attempts.

Example:
  kdbxrecover run vault.kdbx --passphrase-file words.txt --keyfile-dir ./keys
  kdbxrecover run --job recovery.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runRecovery(cmd, opts, target)
		},
	}

	cmd.Flags().StringVar(&opts.Job, "job", "", "YAML job file with recovery inputs")
	cmd.Flags().StringVarP(&opts.PassphraseFile, "passphrase-file", "p", "", "file with passphrase candidates, one per line")
	cmd.Flags().StringArrayVar(&opts.Passphrases, "passphrase", nil, "individual passphrase candidate (repeatable)")
	cmd.Flags().StringVarP(&opts.KeyfileDir, "keyfile-dir", "k", "", "directory whose files are keyfile candidates")
	cmd.Flags().StringArrayVar(&opts.Keyfiles, "keyfile", nil, "individual keyfile candidate (repeatable)")
	cmd.Flags().IntSliceVar(&opts.TokenSlots, "token-slots", nil, "hardware token slots to try (e.g. 1,2)")
	cmd.Flags().BoolVar(&opts.IncludeNoPassphrase, "include-no-passphrase", true, "also try combinations without a passphrase")
	cmd.Flags().BoolVar(&opts.IncludeNoKeyfile, "include-no-keyfile", true, "also try combinations without a keyfile")
	cmd.Flags().BoolVar(&opts.IncludeNoToken, "include-no-token", true, "also try combinations without a hardware token")
	cmd.Flags().StringVar(&opts.ProgressFile, "progress-file", DefaultProgressFile, "progress file location")
	cmd.Flags().BoolVar(&opts.Resume, "resume", true, "resume from the progress file if present")
	cmd.Flags().BoolVar(&opts.StrictResume, "strict-resume", false, "abort instead of starting fresh when the target changed since the last run")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "timeout per unlock attempt")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "optional SQLite ledger recording finished runs")
	cmd.Flags().StringVar(&opts.ProbeBinary, "probe-bin", probe.DefaultBinary, "unlock tool executable")

	return cmd
}

func runRecovery(cmd *cobra.Command, opts *RunOptions, target string) error {
	configureLogging(opts.RootOptions)

	if opts.Job != "" {
		job, err := LoadJob(opts.Job)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid job file", err)
		}
		applyJob(cmd, opts, job, &target)
	}

	if target == "" {
		return NewExitError(ExitCommandError, "no database given: pass it as an argument or set it in the job file")
	}
	if _, err := os.Stat(target); err != nil {
		return WrapExitError(ExitCommandError, "cannot read database", err)
	}

	factors, err := buildFactors(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading credential candidates failed", err)
	}
	stats := factors.Stats()
	slog.Info("credential space built",
		"passphrases", stats.Passphrases,
		"keyfiles", stats.Keyfiles,
		"token_slots", stats.TokenSlots,
		"combinations", enumerate.Count(factors))

	fingerprint, err := progress.Fingerprint(target)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot fingerprint database", err)
	}

	store := progress.NewStore(opts.ProgressFile)
	if !opts.Resume {
		if err := store.Reset(); err != nil {
			return WrapExitError(ExitCommandError, "cannot clear previous progress", err)
		}
	}

	st, err := loadState(store, target, fingerprint, opts.StrictResume)
	if err != nil {
		return err
	}

	// A prior run already found the winner: report it and stop
	// without touching the probe.
	if st.Status == progress.StatusSucceeded && st.Winner != nil {
		winner := st.Winner.Combination()
		printSuccess(cmd, winner.Desc(), opts.ProgressFile)
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the in-flight attempt", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	pr := opts.Probe
	if pr == nil {
		pr = &probe.KeePassXC{Binary: opts.ProbeBinary}
	}
	r := runner.New(store, pr, runner.Options{
		Timeout: opts.Timeout,
		Quiet:   opts.Quiet,
	})

	result, runErr := r.Run(ctx, target, factors, st)

	if opts.Ledger != "" && (result.Status == runner.StatusSucceeded || result.Status == runner.StatusExhausted) {
		recordToLedger(cmd.Context(), opts.Ledger, st, result)
	}

	switch result.Status {
	case runner.StatusSucceeded:
		printSuccess(cmd, result.Winner.Desc(), opts.ProgressFile)
		return nil
	case runner.StatusExhausted:
		return NewExitError(ExitExhausted, fmt.Sprintf(
			"no working combination found (%d attempted, %d resumed)", result.Attempted, result.Skipped))
	default:
		if runErr != nil {
			return WrapExitError(ExitAborted, "run aborted", runErr)
		}
		return NewExitError(ExitAborted, "run interrupted; progress saved, rerun to resume")
	}
}

// applyJob fills options from the job file. Flags the user set
// explicitly win; list-valued inputs are concatenated.
func applyJob(cmd *cobra.Command, opts *RunOptions, job *Job, target *string) {
	flags := cmd.Flags()

	if *target == "" {
		*target = job.Database
	}
	if !flags.Changed("passphrase-file") && job.PassphraseFile != "" {
		opts.PassphraseFile = job.PassphraseFile
	}
	if !flags.Changed("keyfile-dir") && job.KeyfileDir != "" {
		opts.KeyfileDir = job.KeyfileDir
	}
	opts.Passphrases = append(opts.Passphrases, job.Passphrases...)
	opts.Keyfiles = append(opts.Keyfiles, job.Keyfiles...)
	opts.TokenSlots = append(opts.TokenSlots, job.TokenSlots...)

	if !flags.Changed("include-no-passphrase") && job.IncludeNoPassphrase != nil {
		opts.IncludeNoPassphrase = *job.IncludeNoPassphrase
	}
	if !flags.Changed("include-no-keyfile") && job.IncludeNoKeyfile != nil {
		opts.IncludeNoKeyfile = *job.IncludeNoKeyfile
	}
	if !flags.Changed("include-no-token") && job.IncludeNoToken != nil {
		opts.IncludeNoToken = *job.IncludeNoToken
	}
	if !flags.Changed("timeout") && job.Timeout != "" {
		opts.Timeout = job.TimeoutDuration()
	}
	if !flags.Changed("progress-file") && job.ProgressFile != "" {
		opts.ProgressFile = job.ProgressFile
	}
	if !flags.Changed("ledger") && job.Ledger != "" {
		opts.Ledger = job.Ledger
	}
}

func buildFactors(opts *RunOptions) (credential.Factors, error) {
	b := credential.NewBuilder()
	b.IncludeNoPassphrase = opts.IncludeNoPassphrase
	b.IncludeNoKeyfile = opts.IncludeNoKeyfile
	b.IncludeNoToken = opts.IncludeNoToken

	if opts.PassphraseFile != "" {
		if err := b.LoadPassphraseFile(opts.PassphraseFile); err != nil {
			return credential.Factors{}, err
		}
	}
	b.AddPassphrases(opts.Passphrases...)
	if opts.KeyfileDir != "" {
		if err := b.LoadKeyfileDir(opts.KeyfileDir); err != nil {
			return credential.Factors{}, err
		}
	}
	b.AddKeyfiles(opts.Keyfiles...)
	b.AddTokenSlots(opts.TokenSlots...)

	return b.Build(), nil
}

// loadState loads persisted progress for the target. On a fingerprint
// mismatch the default is to discard the stale state and start fresh
// (the user may have pointed at a different or re-saved database);
// --strict-resume turns the mismatch into a fatal error. Corrupt
// files are never discarded automatically.
func loadState(store *progress.Store, target, fingerprint string, strict bool) (*progress.State, error) {
	st, err := store.Load(target, fingerprint)
	if err == nil {
		return st, nil
	}

	if progress.IsIntegrityMismatch(err) {
		if strict {
			return nil, WrapExitError(ExitCommandError, "target changed since the recorded run", err)
		}
		slog.Warn("target changed since the recorded run, starting fresh", "error", err)
		if resetErr := store.Reset(); resetErr != nil {
			return nil, WrapExitError(ExitCommandError, "cannot clear stale progress", resetErr)
		}
		st, err = store.Load(target, fingerprint)
		if err == nil {
			return st, nil
		}
	}
	return nil, WrapExitError(ExitCommandError, "progress file unusable", err)
}

func recordToLedger(ctx context.Context, path string, st *progress.State, result runner.Result) {
	l, err := ledger.Open(path)
	if err != nil {
		slog.Error("cannot open ledger, run not recorded", "error", err)
		return
	}
	defer l.Close()

	run := ledger.Run{
		RunID:             st.RunID,
		TargetPath:        st.TargetPath,
		TargetFingerprint: st.TargetFingerprint,
		Status:            string(st.Status),
		Attempts:          len(st.Attempts),
		StartedAt:         st.StartedAt,
		FinishedAt:        st.UpdatedAt,
	}
	if result.Winner != nil {
		run.WinnerIdentity = result.Winner.Identity()
		run.WinnerDesc = result.Winner.Desc()
	}
	if err := l.RecordRun(ctx, run); err != nil {
		slog.Error("cannot record run in ledger", "error", err)
	}
}

func printSuccess(cmd *cobra.Command, desc, progressFile string) {
	out := cmd.OutOrStdout()
	color.New(color.FgGreen, color.Bold).Fprintln(out, "database unlocked")
	fmt.Fprintf(out, "  combination: %s\n", desc)
	fmt.Fprintf(out, "  full winning combination (including the passphrase) is saved in %s\n", progressFile)
}

// configureLogging sets the default slog handler per the global
// flags. Quiet wins over verbose.
func configureLogging(opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	if opts.Quiet {
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
