// Package progress is the durable, crash-safe record of which
// combinations have been attempted against a target. Every mutation
// is persisted with a write-to-temp-then-rename before it is
// considered applied, so a crash mid-write never corrupts the
// previous file and a resumed run loses at most the in-flight
// attempt.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

// Store persists recovery state to a single JSON file. The file is
// the only shared mutable resource across process invocations;
// concurrent runs against the same file are not supported.
type Store struct {
	path string

	// now is the clock used for record timestamps. Overridden in
	// tests for deterministic golden files.
	now func() time.Time
}

// NewStore creates a store backed by the given progress file path.
// The file need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the progress file path.
func (s *Store) Path() string { return s.path }

// header is the forward-compatible prefix of the progress file:
// enough to detect a fingerprint mismatch without decoding the
// attempt log, even against a newer format version.
type header struct {
	FormatVersion     int    `json:"format_version"`
	TargetFingerprint string `json:"target_fingerprint"`
}

// Load reads persisted state for a target with the given fingerprint.
//
// If no progress file exists, a fresh State tagged with the
// fingerprint is returned. If the file exists but records a different
// fingerprint, Load fails with *IntegrityError and leaves the file
// untouched; the caller decides whether to Reset and retry or abort.
// A file that cannot be decoded fails with *CorruptError.
func (s *Store) Load(targetPath, fingerprint string) (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		now := s.now().UTC()
		return &State{
			FormatVersion:     formatVersion,
			RunID:             uuid.Must(uuid.NewV7()).String(),
			TargetPath:        targetPath,
			TargetFingerprint: fingerprint,
			StartedAt:         now,
			UpdatedAt:         now,
			Status:            StatusRunning,
		}, nil
	}
	if err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}

	// Fingerprint check first, against the header only. This must
	// succeed even if the rest of the file is from a future format.
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	if h.TargetFingerprint != fingerprint {
		return nil, &IntegrityError{Path: s.path, Stored: h.TargetFingerprint, Current: fingerprint}
	}

	st, err := decodeState(data)
	if err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	return st, nil
}

// Read loads the persisted state without fingerprint validation.
// Used by the status command, which has no target file to hash.
// Returns an error wrapping fs.ErrNotExist when no file exists.
func (s *Store) Read() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	st, err := decodeState(data)
	if err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	return st, nil
}

func decodeState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.FormatVersion < 1 {
		return nil, fmt.Errorf("missing or invalid format_version")
	}
	switch st.Status {
	case StatusRunning, StatusSucceeded, StatusExhausted:
	default:
		return nil, fmt.Errorf("unknown status %q", st.Status)
	}
	for _, rec := range st.Attempts {
		if rec.Identity == "" {
			return nil, fmt.Errorf("attempt record with empty identity")
		}
		if !rec.Outcome.Terminal() && rec.Outcome != OutcomeUntried {
			return nil, fmt.Errorf("attempt record with unknown outcome %q", rec.Outcome)
		}
	}
	st.rebuildIndex()
	return &st, nil
}

// RecordAttempt records the outcome of one attempted combination and
// persists immediately. If the durable write fails, the in-memory
// state is rolled back and *PersistError is returned: the attempt is
// NOT considered recorded and the run must not advance past it.
func (s *Store) RecordAttempt(st *State, c credential.Combination, outcome Outcome) error {
	identity := c.Identity()
	prev, existed := st.Lookup(identity)
	prevUpdated := st.UpdatedAt

	st.upsert(AttemptRecord{
		Identity: identity,
		Desc:     c.Desc(),
		Outcome:  outcome,
		At:       s.now().UTC(),
	})
	st.UpdatedAt = s.now().UTC()

	if err := s.save(st); err != nil {
		if existed {
			st.upsert(prev)
		} else {
			st.Attempts = st.Attempts[:len(st.Attempts)-1]
			delete(st.index, identity)
		}
		st.UpdatedAt = prevUpdated
		return err
	}
	return nil
}

// MarkSucceeded records the winning combination, flips the overall
// status to succeeded, and persists atomically.
func (s *Store) MarkSucceeded(st *State, c credential.Combination) error {
	prevStatus, prevWinner := st.Status, st.Winner
	identity := c.Identity()
	prev, existed := st.Lookup(identity)

	st.upsert(AttemptRecord{
		Identity: identity,
		Desc:     c.Desc(),
		Outcome:  OutcomeSucceeded,
		At:       s.now().UTC(),
	})
	st.Status = StatusSucceeded
	st.Winner = newWinningCombination(c)
	st.UpdatedAt = s.now().UTC()

	if err := s.save(st); err != nil {
		st.Status, st.Winner = prevStatus, prevWinner
		if existed {
			st.upsert(prev)
		} else {
			st.Attempts = st.Attempts[:len(st.Attempts)-1]
			delete(st.index, identity)
		}
		return err
	}
	return nil
}

// MarkExhausted records that the full combination space was attempted
// without success and persists atomically.
func (s *Store) MarkExhausted(st *State) error {
	prev := st.Status
	st.Status = StatusExhausted
	st.UpdatedAt = s.now().UTC()
	if err := s.save(st); err != nil {
		st.Status = prev
		return err
	}
	return nil
}

// Flush persists the current state unchanged. Used for the final
// write before a clean abort.
func (s *Store) Flush(st *State) error {
	st.UpdatedAt = s.now().UTC()
	return s.save(st)
}

// Reset removes the persisted state unconditionally. Missing files
// are not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset progress file: %w", err)
	}
	return nil
}

// save writes the state with write-to-temp-then-rename semantics. The
// temp file is fsynced before the rename so the new content is on
// disk before it replaces the old file. Mode 0600: the file can hold
// the winning passphrase.
func (s *Store) save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".kdbxrecover-*.tmp")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
