package credential

import (
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// PassphraseOption is one candidate value for the passphrase dimension.
// Present=false is the "no passphrase" sentinel. The wrapper exists
// because the empty string is itself a valid passphrase.
type PassphraseOption struct {
	Value   string
	Present bool
}

// Factors is the normalized credential search space: three ordered
// candidate lists, one per dimension. When a dimension's absent option
// is enabled it appears exactly once, at index 0. An empty dimension
// contributes no factor to any combination.
//
// Sentinels: PassphraseOption{Present: false}, the empty keyfile path,
// and token slot 0.
type Factors struct {
	Passphrases []PassphraseOption
	Keyfiles    []string
	TokenSlots  []int
}

// Builder accumulates raw credential candidates and normalizes them
// into Factors. It is a pure transformation over its inputs: no file
// I/O happens here (see load.go for the loading helpers that feed it).
//
// Duplicates are dropped by canonical identity, first occurrence wins,
// regardless of whether an entry arrived from a file or a flag.
// Passphrases are NFC-normalized before comparison so byte-different
// encodings of the same text collapse to a single candidate. Keyfile
// paths are cleaned before comparison.
type Builder struct {
	passphrases []string
	keyfiles    []string
	tokenSlots  []int

	// Inclusion flags for the absent sentinels. All default true.
	IncludeNoPassphrase bool
	IncludeNoKeyfile    bool
	IncludeNoToken      bool
}

// NewBuilder returns a Builder with all absent-sentinel inclusion
// flags enabled.
func NewBuilder() *Builder {
	return &Builder{
		IncludeNoPassphrase: true,
		IncludeNoKeyfile:    true,
		IncludeNoToken:      true,
	}
}

// AddPassphrases appends raw passphrase candidates.
func (b *Builder) AddPassphrases(passphrases ...string) {
	b.passphrases = append(b.passphrases, passphrases...)
}

// AddKeyfiles appends raw keyfile path candidates.
func (b *Builder) AddKeyfiles(paths ...string) {
	b.keyfiles = append(b.keyfiles, paths...)
}

// AddTokenSlots appends hardware token slot candidates. Slot numbers
// must be positive; zero is reserved for the absent sentinel.
func (b *Builder) AddTokenSlots(slots ...int) {
	b.tokenSlots = append(b.tokenSlots, slots...)
}

// Build produces the normalized factor lists. The builder can be
// reused; Build does not mutate accumulated state.
func (b *Builder) Build() Factors {
	var f Factors

	if b.IncludeNoPassphrase {
		f.Passphrases = append(f.Passphrases, PassphraseOption{})
	}
	seenP := make(map[string]struct{}, len(b.passphrases))
	for _, p := range b.passphrases {
		p = norm.NFC.String(p)
		if _, dup := seenP[p]; dup {
			continue
		}
		seenP[p] = struct{}{}
		f.Passphrases = append(f.Passphrases, PassphraseOption{Value: p, Present: true})
	}
	// No candidates and no sentinel: the dimension stays empty and the
	// caller gets zero combinations involving a passphrase.

	if b.IncludeNoKeyfile {
		f.Keyfiles = append(f.Keyfiles, "")
	}
	seenK := make(map[string]struct{}, len(b.keyfiles))
	for _, k := range b.keyfiles {
		k = filepath.Clean(k)
		if k == "" || k == "." {
			continue
		}
		if _, dup := seenK[k]; dup {
			continue
		}
		seenK[k] = struct{}{}
		f.Keyfiles = append(f.Keyfiles, k)
	}

	if b.IncludeNoToken {
		f.TokenSlots = append(f.TokenSlots, 0)
	}
	seenT := make(map[int]struct{}, len(b.tokenSlots))
	for _, s := range b.tokenSlots {
		if s <= 0 {
			continue
		}
		if _, dup := seenT[s]; dup {
			continue
		}
		seenT[s] = struct{}{}
		f.TokenSlots = append(f.TokenSlots, s)
	}

	return f
}

// Stats reports the candidate counts per dimension, excluding the
// absent sentinels. Used for the pre-run summary.
type Stats struct {
	Passphrases int
	Keyfiles    int
	TokenSlots  int
}

// Stats returns candidate counts for the factor lists.
func (f Factors) Stats() Stats {
	var s Stats
	for _, p := range f.Passphrases {
		if p.Present {
			s.Passphrases++
		}
	}
	for _, k := range f.Keyfiles {
		if k != "" {
			s.Keyfiles++
		}
	}
	for _, t := range f.TokenSlots {
		if t != 0 {
			s.TokenSlots++
		}
	}
	return s
}
