package credential

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Domain prefix for content-addressed combination identity.
// Version suffix enables future algorithm migration.
const identityDomain = "kdbxrecover/combination/v1"

// Combination is one (passphrase, keyfile, token slot) triple to attempt.
// A Combination is immutable once built; callers compare them by Identity.
//
// Absent factors are encoded as:
//   - HasPassphrase=false (the empty string is a valid passphrase, so
//     presence needs an explicit flag)
//   - Keyfile == "" (paths are never empty)
//   - TokenSlot == 0 (hardware token slots are numbered from 1)
type Combination struct {
	Passphrase    string
	HasPassphrase bool
	Keyfile       string
	TokenSlot     int
}

// FactorCount returns the number of non-absent factors (0..3).
// The enumerator orders combinations by ascending FactorCount.
func (c Combination) FactorCount() int {
	n := 0
	if c.HasPassphrase {
		n++
	}
	if c.Keyfile != "" {
		n++
	}
	if c.TokenSlot != 0 {
		n++
	}
	return n
}

// Identity returns the canonical identity of the combination:
// SHA-256 over a domain-separated canonical encoding of the triple.
// Two combinations are the same attempt iff their identities are equal.
//
// The encoding length-prefixes each field, so no concatenation of
// values can collide with another triple.
func (c Combination) Identity() string {
	h := sha256.New()
	h.Write([]byte(identityDomain))
	h.Write([]byte{0x00})

	writeField := func(present bool, value string) {
		if !present {
			h.Write([]byte{0x00})
			return
		}
		h.Write([]byte{0x01})
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(value)))
		h.Write(n[:])
		h.Write([]byte(value))
	}

	writeField(c.HasPassphrase, c.Passphrase)
	writeField(c.Keyfile != "", c.Keyfile)
	writeField(c.TokenSlot != 0, fmt.Sprintf("%d", c.TokenSlot))

	return hex.EncodeToString(h.Sum(nil))
}

// Desc returns a human-readable description with the passphrase
// redacted. Safe for logs and the progress file's attempt records.
func (c Combination) Desc() string {
	var parts []string
	if c.HasPassphrase {
		parts = append(parts, "passphrase=***")
	}
	if c.Keyfile != "" {
		parts = append(parts, "keyfile="+filepath.Base(c.Keyfile))
	}
	if c.TokenSlot != 0 {
		parts = append(parts, fmt.Sprintf("token_slot=%d", c.TokenSlot))
	}
	if len(parts) == 0 {
		return "(no credentials)"
	}
	return strings.Join(parts, " ")
}

// String implements fmt.Stringer. Never includes the passphrase value.
func (c Combination) String() string {
	return c.Desc()
}
