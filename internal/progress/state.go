package progress

import (
	"time"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

// formatVersion is bumped when the progress file layout changes in a
// way old readers cannot handle. The fingerprint header must stay
// readable across versions so a mismatch is detectable without
// decoding the attempt log.
const formatVersion = 1

// Status is the overall state of a recovery run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusExhausted Status = "exhausted"
)

// Outcome is the recorded result of one attempt.
type Outcome string

const (
	OutcomeUntried   Outcome = "untried"
	OutcomeFailed    Outcome = "failed"
	OutcomeErrored   Outcome = "errored"
	OutcomeSucceeded Outcome = "succeeded"
)

// Terminal reports whether the outcome resolves the combination.
// Resolved combinations are never re-attempted on resume.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeFailed, OutcomeErrored, OutcomeSucceeded:
		return true
	}
	return false
}

// AttemptRecord is one attempted combination and its result. The
// combination itself is stored as its canonical identity plus a
// redacted description; the progress file never contains passphrase
// values from failed attempts.
type AttemptRecord struct {
	Identity string    `json:"identity"`
	Desc     string    `json:"desc"`
	Outcome  Outcome   `json:"outcome"`
	At       time.Time `json:"at"`
}

// WinningCombination is the full serialized form of the combination
// that unlocked the target. Unlike attempt records it includes the
// passphrase value: recovering it is the point of the tool.
type WinningCombination struct {
	Passphrase *string `json:"passphrase"` // nil = absent; "" is a valid passphrase
	Keyfile    string  `json:"keyfile,omitempty"`
	TokenSlot  int     `json:"token_slot,omitempty"`
}

// Combination converts the stored winner back to a credential value.
func (w WinningCombination) Combination() credential.Combination {
	c := credential.Combination{
		Keyfile:   w.Keyfile,
		TokenSlot: w.TokenSlot,
	}
	if w.Passphrase != nil {
		c.Passphrase = *w.Passphrase
		c.HasPassphrase = true
	}
	return c
}

func newWinningCombination(c credential.Combination) *WinningCombination {
	w := &WinningCombination{
		Keyfile:   c.Keyfile,
		TokenSlot: c.TokenSlot,
	}
	if c.HasPassphrase {
		p := c.Passphrase
		w.Passphrase = &p
	}
	return w
}

// State is the durable record of a recovery run. It is owned by the
// attempt runner for the duration of a run and only ever mutated
// through Store methods, which persist every change before it is
// considered applied.
type State struct {
	FormatVersion     int                 `json:"format_version"`
	RunID             string              `json:"run_id"`
	TargetPath        string              `json:"target_path"`
	TargetFingerprint string              `json:"target_fingerprint"`
	StartedAt         time.Time           `json:"started_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Status            Status              `json:"status"`
	Attempts          []AttemptRecord     `json:"attempts"`
	Winner            *WinningCombination `json:"winner,omitempty"`

	// index maps combination identity to position in Attempts.
	// Rebuilt on load, maintained on record.
	index map[string]int
}

// Lookup returns the attempt record for a combination identity.
func (s *State) Lookup(identity string) (AttemptRecord, bool) {
	i, ok := s.index[identity]
	if !ok {
		return AttemptRecord{}, false
	}
	return s.Attempts[i], true
}

// Resolved reports whether the combination already has a terminal
// record and must be skipped on resume.
func (s *State) Resolved(identity string) bool {
	rec, ok := s.Lookup(identity)
	return ok && rec.Outcome.Terminal()
}

// ResolvedCount returns the number of combinations with terminal
// records. Used for the run-start summary on resume.
func (s *State) ResolvedCount() int {
	n := 0
	for _, rec := range s.Attempts {
		if rec.Outcome.Terminal() {
			n++
		}
	}
	return n
}

func (s *State) rebuildIndex() {
	s.index = make(map[string]int, len(s.Attempts))
	for i, rec := range s.Attempts {
		s.index[rec.Identity] = i
	}
}

// upsert appends or replaces the record for rec.Identity and keeps the
// index consistent.
func (s *State) upsert(rec AttemptRecord) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[rec.Identity]; ok {
		s.Attempts[i] = rec
		return
	}
	s.Attempts = append(s.Attempts, rec)
	s.index[rec.Identity] = len(s.Attempts) - 1
}
