package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

// DefaultBinary is the unlock tool invoked unless overridden.
const DefaultBinary = "keepassxc-cli"

// KeePassXC probes a database by running `keepassxc-cli open` once per
// combination. The passphrase is written to the tool's stdin, never
// passed on the command line, so it does not leak into the process
// table. On success the tool drops into its interactive shell; stdin
// reaching EOF makes it exit immediately with status 0.
type KeePassXC struct {
	// Binary is the executable to run. Defaults to DefaultBinary.
	Binary string
}

// Try runs one unlock attempt. The tool process is started under a
// deadline context; if the deadline fires, the process is killed and
// reaped before Try returns. Cancellation of ctx itself also kills
// the process, but that is not a verdict on the combination: the
// result is Interrupted, never Failure.
func (p *KeePassXC) Try(ctx context.Context, target string, c credential.Combination, timeout time.Duration) Result {
	binary := p.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(attemptCtx, binary, buildArgs(target, c)...)
	if c.HasPassphrase {
		cmd.Stdin = strings.NewReader(c.Passphrase + "\n")
	}
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	// Bound the wait after kill so a tool that ignores SIGKILL on a
	// wedged FUSE mount cannot hang the runner forever.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	switch {
	case err == nil:
		return Result{Outcome: Success}
	case ctx.Err() != nil:
		// The run was cancelled and the process killed mid-attempt.
		// The resulting exit status says nothing about the credentials.
		return Result{Outcome: Interrupted}
	case attemptCtx.Err() == context.DeadlineExceeded:
		return Result{Outcome: TimedOut, Detail: "attempt exceeded " + timeout.String()}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and said no. Wrong credentials.
			return Result{Outcome: Failure, Detail: stderrTail(stderr.Bytes())}
		}
		// Could not even start the tool.
		return Result{Outcome: ToolError, Detail: err.Error(), Binary: binary}
	}
}

// buildArgs assembles the keepassxc-cli argument list for a
// combination. Split out of Try for testability.
func buildArgs(target string, c credential.Combination) []string {
	args := []string{"open", "--quiet"}
	if c.Keyfile != "" {
		args = append(args, "--key-file", c.Keyfile)
	}
	if c.TokenSlot != 0 {
		args = append(args, "--yubikey", strconv.Itoa(c.TokenSlot))
	}
	if !c.HasPassphrase {
		args = append(args, "--no-password")
	}
	return append(args, target)
}

// stderrTail returns the last line of tool stderr, trimmed. Enough
// for diagnostics without dumping the tool's full chatter into the
// progress log.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
