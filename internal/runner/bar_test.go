package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The bar must start empty: work resolved by a previous run is counted
// by the per-skip increment as the loop passes over it, and a pre-seed
// on top of that would make a resumed bar over-report.
func TestNewBar_StartsUnfilled(t *testing.T) {
	b := newBar(4, false)
	require.NotNil(t, b.b)
	defer b.done()

	assert.Zero(t, b.b.State().CurrentPercent)

	b.add(2)
	assert.InDelta(t, 0.5, b.b.State().CurrentPercent, 0.001)
}

func TestNewBar_QuietIsNilSafe(t *testing.T) {
	b := newBar(4, true)
	assert.Nil(t, b.b)
	b.add(1)
	b.done()
}
