// Package enumerate produces the ordered, deduplicated cross-product
// of the three credential dimensions, grouped into complexity tiers so
// the simplest combinations are always attempted first.
package enumerate

import (
	"iter"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

// Combinations returns a lazy, restartable sequence over the factor
// cross-product, ordered by ascending factor count (tier 0, then 1,
// then 2, then 3). Within a tier the order is deterministic: the
// passphrase varies slowest, then the keyfile, and the token slot
// varies fastest, each in input-list order.
//
// The sequence never materializes the space: each pull walks the
// nested loops in place, so memory stays constant for arbitrarily
// large input lists. Ranging twice yields the identical sequence,
// which is what lets resumed runs match prior attempt records by
// identity.
//
// Duplicate candidates within a dimension are dropped before
// enumeration, so no duplicate Combination is ever emitted. An empty
// dimension is treated as fixed-absent, but the all-absent combination
// is only emitted when every dimension's absent sentinel was genuinely
// enabled; a dimension that is empty because its absent option was
// disabled suppresses tier 0 entirely.
func Combinations(f credential.Factors) iter.Seq[credential.Combination] {
	passphrases, keyfiles, slots, tierZero := normalize(f)

	return func(yield func(credential.Combination) bool) {
		for tier := 0; tier <= 3; tier++ {
			for _, p := range passphrases {
				for _, k := range keyfiles {
					for _, t := range slots {
						c := credential.Combination{
							Passphrase:    p.Value,
							HasPassphrase: p.Present,
							Keyfile:       k,
							TokenSlot:     t,
						}
						if c.FactorCount() != tier {
							continue
						}
						if tier == 0 && !tierZero {
							continue
						}
						if !yield(c) {
							return
						}
					}
				}
			}
		}
	}
}

// Count returns the number of combinations Combinations will emit,
// without enumerating them.
func Count(f credential.Factors) int {
	passphrases, keyfiles, slots, tierZero := normalize(f)

	total := len(passphrases) * len(keyfiles) * len(slots)
	if total == 0 {
		return 0
	}

	// The all-absent triple is part of the raw product iff every
	// dimension contains its sentinel; subtract it when tier 0 is
	// suppressed.
	if !tierZero && hasAbsentPassphrase(passphrases) && hasAbsentKeyfile(keyfiles) && hasAbsentSlot(slots) {
		total--
	}
	return total
}

// normalize dedups each dimension and substitutes a fixed-absent
// option for empty dimensions. The returned flag reports whether the
// all-absent combination may be emitted.
func normalize(f credential.Factors) (passphrases []credential.PassphraseOption, keyfiles []string, slots []int, tierZero bool) {
	tierZero = true

	seenP := make(map[credential.PassphraseOption]struct{}, len(f.Passphrases))
	for _, p := range f.Passphrases {
		if _, dup := seenP[p]; dup {
			continue
		}
		seenP[p] = struct{}{}
		passphrases = append(passphrases, p)
	}
	if len(passphrases) == 0 {
		passphrases = []credential.PassphraseOption{{}}
		tierZero = false
	} else if !hasAbsentPassphrase(passphrases) {
		tierZero = false
	}

	seenK := make(map[string]struct{}, len(f.Keyfiles))
	for _, k := range f.Keyfiles {
		if _, dup := seenK[k]; dup {
			continue
		}
		seenK[k] = struct{}{}
		keyfiles = append(keyfiles, k)
	}
	if len(keyfiles) == 0 {
		keyfiles = []string{""}
		tierZero = false
	} else if !hasAbsentKeyfile(keyfiles) {
		tierZero = false
	}

	seenT := make(map[int]struct{}, len(f.TokenSlots))
	for _, t := range f.TokenSlots {
		if _, dup := seenT[t]; dup {
			continue
		}
		seenT[t] = struct{}{}
		slots = append(slots, t)
	}
	if len(slots) == 0 {
		slots = []int{0}
		tierZero = false
	} else if !hasAbsentSlot(slots) {
		tierZero = false
	}

	return passphrases, keyfiles, slots, tierZero
}

func hasAbsentPassphrase(opts []credential.PassphraseOption) bool {
	for _, p := range opts {
		if !p.Present {
			return true
		}
	}
	return false
}

func hasAbsentKeyfile(keyfiles []string) bool {
	for _, k := range keyfiles {
		if k == "" {
			return true
		}
	}
	return false
}

func hasAbsentSlot(slots []int) bool {
	for _, t := range slots {
		if t == 0 {
			return true
		}
	}
	return false
}
