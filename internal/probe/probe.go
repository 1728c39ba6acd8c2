// Package probe isolates the core from the external unlock tool. The
// tool is the sole arbiter of whether a combination is correct; the
// core never inspects the target file's contents.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

// Outcome classifies one unlock attempt.
type Outcome int

const (
	// Success: the combination unlocked the target.
	Success Outcome = iota + 1
	// Failure: the tool ran and rejected the combination.
	Failure
	// TimedOut: the attempt exceeded its deadline and the tool
	// process was killed.
	TimedOut
	// ToolError: the tool itself malfunctioned (missing executable,
	// not startable). The combination's correctness is unknown.
	ToolError
	// Interrupted: the run was cancelled while the tool was mid-attempt
	// and the process was killed before it could answer. The
	// combination's correctness is unknown and it must be retried on
	// the next run.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case TimedOut:
		return "timed-out"
	case ToolError:
		return "tool-error"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the verdict for a single attempt. Detail carries tool
// diagnostics (stderr tail or spawn error) for TimedOut and
// ToolError; it is empty on Success. Binary names the executable that
// could not run on ToolError.
type Result struct {
	Outcome Outcome
	Detail  string
	Binary  string
}

// Probe attempts to unlock target with one credential combination.
// Implementations must be synchronous: exactly one attempt is in
// flight at a time, and Try must not return before the attempt's
// resources are reclaimed (a timed-out tool process must be dead).
type Probe interface {
	Try(ctx context.Context, target string, c credential.Combination, timeout time.Duration) Result
}

// UnavailableError is surfaced when the external tool cannot run at
// all. It aborts the whole run: no attempt can succeed without the
// collaborator.
type UnavailableError struct {
	Binary string
	Detail string
}

func (e *UnavailableError) Error() string {
	msg := "unlock tool unavailable"
	if e.Binary != "" {
		msg = fmt.Sprintf("unlock tool %q unavailable", e.Binary)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
