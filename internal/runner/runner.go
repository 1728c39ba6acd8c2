// Package runner drives the combination enumerator against the
// external unlock tool, one attempt at a time, recording every
// resolved attempt durably before moving on.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
	"github.com/kdbxtools/kdbxrecover/internal/enumerate"
	"github.com/kdbxtools/kdbxrecover/internal/probe"
	"github.com/kdbxtools/kdbxrecover/internal/progress"
)

// Status is the runner's state machine position:
// Idle → Running → {Succeeded, Exhausted, Aborted}.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusExhausted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusExhausted:
		return "exhausted"
	case StatusAborted:
		return "aborted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Options configures a run.
type Options struct {
	// Timeout bounds each individual unlock attempt. A timed-out
	// attempt is recorded as errored and the run continues.
	Timeout time.Duration

	// Quiet suppresses the progress bar and summary output.
	Quiet bool

	// Log receives structured progress events. Defaults to
	// slog.Default().
	Log *slog.Logger
}

// Result is the final outcome of a run.
type Result struct {
	Status    Status
	Winner    *credential.Combination // set iff Status == StatusSucceeded
	Attempted int                     // probe invocations this run
	Skipped   int                     // combinations resolved by a previous run
	Elapsed   time.Duration
}

// Runner owns the ProgressState for the duration of a run. No other
// component reads or writes the state while a run is in flight.
type Runner struct {
	store *progress.Store
	probe probe.Probe
	opts  Options

	status Status
}

// New creates an idle runner.
func New(store *progress.Store, p probe.Probe, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Runner{store: store, probe: p, opts: opts, status: StatusIdle}
}

// Status returns the runner's current state machine position.
func (r *Runner) Status() Status { return r.status }

// Run enumerates the factor space against the target and probes every
// unresolved combination in order, halting on first success, input
// exhaustion, context cancellation, or a tool failure.
//
// Error contract: attempt-local failures (wrong credentials, probe
// timeout) are absorbed into attempt records and never returned.
// Errors about shared state — persistence failure, missing unlock
// tool — abort the run and are returned alongside StatusAborted.
// Cancellation is not an error: whether it lands between attempts or
// kills the in-flight tool process, the state is flushed and the
// runner returns StatusAborted with a nil error, preserving exact
// resumability. An attempt cut short by cancellation is never
// recorded.
func (r *Runner) Run(ctx context.Context, target string, factors credential.Factors, st *progress.State) (Result, error) {
	r.status = StatusRunning
	start := time.Now()
	log := r.opts.Log

	total := enumerate.Count(factors)
	bar := newBar(total, r.opts.Quiet)

	res := Result{}
	finish := func(s Status) Result {
		r.status = s
		res.Status = s
		res.Elapsed = time.Since(start)
		bar.done()
		return res
	}

	log.Info("run starting",
		"target", target,
		"combinations", total,
		"resolved", st.ResolvedCount(),
		"timeout", r.opts.Timeout)

	for c := range enumerate.Combinations(factors) {
		// Interrupt check between attempts. A cancelled run flushes
		// state and exits cleanly; nothing is lost or duplicated on
		// the next invocation.
		if ctx.Err() != nil {
			if err := r.store.Flush(st); err != nil {
				return finish(StatusAborted), err
			}
			log.Info("run interrupted",
				"attempted", res.Attempted,
				"elapsed", time.Since(start).Round(time.Second))
			return finish(StatusAborted), nil
		}

		identity := c.Identity()
		if st.Resolved(identity) {
			res.Skipped++
			bar.add(1)
			continue
		}

		log.Debug("attempting", "combination", c.Desc())
		verdict := r.probe.Try(ctx, target, c, r.opts.Timeout)
		res.Attempted++

		switch verdict.Outcome {
		case probe.Success:
			if err := r.store.MarkSucceeded(st, c); err != nil {
				return finish(StatusAborted), err
			}
			winner := c
			res.Winner = &winner
			log.Info("combination found",
				"combination", c.Desc(),
				"attempted", res.Attempted,
				"elapsed", time.Since(start).Round(time.Second))
			return finish(StatusSucceeded), nil

		case probe.Failure:
			if err := r.store.RecordAttempt(st, c, progress.OutcomeFailed); err != nil {
				return finish(StatusAborted), err
			}

		case probe.TimedOut:
			log.Warn("attempt timed out", "combination", c.Desc(), "detail", verdict.Detail)
			if err := r.store.RecordAttempt(st, c, progress.OutcomeErrored); err != nil {
				return finish(StatusAborted), err
			}

		case probe.Interrupted:
			// The in-flight process was killed by cancellation. Its
			// outcome is unknown, so it is not recorded and the next
			// run retries it.
			if err := r.store.Flush(st); err != nil {
				return finish(StatusAborted), err
			}
			log.Info("run interrupted",
				"attempted", res.Attempted,
				"elapsed", time.Since(start).Round(time.Second))
			return finish(StatusAborted), nil

		case probe.ToolError:
			// The combination's outcome is unknown: do not record it,
			// so the next run retries it.
			if err := r.store.Flush(st); err != nil {
				log.Error("flush after tool error failed", "error", err)
			}
			return finish(StatusAborted), &probe.UnavailableError{Binary: verdict.Binary, Detail: verdict.Detail}

		default:
			return finish(StatusAborted), fmt.Errorf("probe returned unknown outcome %v", verdict.Outcome)
		}

		bar.add(1)
	}

	if err := r.store.MarkExhausted(st); err != nil {
		return finish(StatusAborted), err
	}
	log.Info("combination space exhausted",
		"attempted", humanize.Comma(int64(res.Attempted)),
		"skipped", humanize.Comma(int64(res.Skipped)),
		"elapsed", time.Since(start).Round(time.Second))
	return finish(StatusExhausted), nil
}
