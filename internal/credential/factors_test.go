package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SentinelsFirst(t *testing.T) {
	b := NewBuilder()
	b.AddPassphrases("a", "b")
	b.AddKeyfiles("/keys/k1")
	b.AddTokenSlots(1, 2)

	f := b.Build()

	require.Len(t, f.Passphrases, 3)
	assert.False(t, f.Passphrases[0].Present, "absent sentinel must be at index 0")
	assert.Equal(t, PassphraseOption{Value: "a", Present: true}, f.Passphrases[1])
	assert.Equal(t, PassphraseOption{Value: "b", Present: true}, f.Passphrases[2])

	require.Len(t, f.Keyfiles, 2)
	assert.Equal(t, "", f.Keyfiles[0])

	require.Len(t, f.TokenSlots, 3)
	assert.Equal(t, 0, f.TokenSlots[0])
	assert.Equal(t, []int{0, 1, 2}, f.TokenSlots)
}

func TestBuilder_InclusionFlagsDisabled(t *testing.T) {
	b := NewBuilder()
	b.IncludeNoPassphrase = false
	b.IncludeNoKeyfile = false
	b.IncludeNoToken = false
	b.AddPassphrases("a")

	f := b.Build()

	require.Len(t, f.Passphrases, 1)
	assert.True(t, f.Passphrases[0].Present)
	assert.Empty(t, f.Keyfiles, "no candidates and no sentinel leaves the dimension empty")
	assert.Empty(t, f.TokenSlots)
}

func TestBuilder_EmptyInputsWithDefaults(t *testing.T) {
	f := NewBuilder().Build()

	assert.Equal(t, []PassphraseOption{{}}, f.Passphrases)
	assert.Equal(t, []string{""}, f.Keyfiles)
	assert.Equal(t, []int{0}, f.TokenSlots)
}

func TestBuilder_DedupFirstOccurrenceWins(t *testing.T) {
	b := NewBuilder()
	b.AddPassphrases("a", "b", "a", "b", "a")
	b.AddKeyfiles("/keys/k1", "/keys/./k1", "/keys/k2")
	b.AddTokenSlots(1, 1, 2, 2)

	f := b.Build()

	assert.Len(t, f.Passphrases, 3) // sentinel + a + b
	assert.Len(t, f.Keyfiles, 3)    // sentinel + k1 + k2 (path-cleaned dedup)
	assert.Len(t, f.TokenSlots, 3)  // sentinel + 1 + 2
}

func TestBuilder_NFCNormalizationDedup(t *testing.T) {
	// U+00E9 (é precomposed) vs U+0065 U+0301 (e + combining acute):
	// the same passphrase in two encodings must collapse to one.
	b := NewBuilder()
	b.IncludeNoPassphrase = false
	b.AddPassphrases("caf\u00e9", "cafe\u0301")

	f := b.Build()

	require.Len(t, f.Passphrases, 1)
	assert.Equal(t, "caf\u00e9", f.Passphrases[0].Value)
}

func TestBuilder_RejectsNonPositiveSlots(t *testing.T) {
	b := NewBuilder()
	b.IncludeNoToken = false
	b.AddTokenSlots(0, -1, 1)

	f := b.Build()
	assert.Equal(t, []int{1}, f.TokenSlots)
}

func TestFactors_Stats(t *testing.T) {
	b := NewBuilder()
	b.AddPassphrases("a", "b")
	b.AddKeyfiles("/keys/k1")
	b.AddTokenSlots(1)

	s := b.Build().Stats()

	assert.Equal(t, Stats{Passphrases: 2, Keyfiles: 1, TokenSlots: 1}, s)
}
