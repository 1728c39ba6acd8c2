package progress

import (
	"errors"
	"fmt"
)

// IntegrityError reports that a persisted progress file was written
// against a different target file than the one being recovered now.
// The stale state must never be silently reused: the caller decides
// whether to discard it and start fresh or abort.
type IntegrityError struct {
	Path    string // progress file path
	Stored  string // fingerprint recorded in the progress file
	Current string // fingerprint of the target file right now
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("progress file %s was recorded against a different target (stored fingerprint %s, current %s)",
		e.Path, e.Stored, e.Current)
}

// CorruptError reports a progress file that could not be decoded.
// Recovery requires an explicit reset; the store never repairs or
// overwrites a corrupt file on its own.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt progress file %s: %v (delete it or run reset to start over)", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// PersistError reports a failed durable write. An attempt whose result
// hit a PersistError is NOT recorded; the run must halt rather than
// advance past state that would be lost on resume.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist progress to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsIntegrityMismatch reports whether err is an IntegrityError.
// Uses errors.As to handle wrapped errors.
func IsIntegrityMismatch(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsCorrupt reports whether err is a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// IsPersist reports whether err is a PersistError.
func IsPersist(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
