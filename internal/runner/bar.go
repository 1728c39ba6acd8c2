package runner

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// bar is a nil-safe wrapper so quiet mode can skip the progress bar
// without guarding every call site.
type bar struct {
	b *progressbar.ProgressBar
}

// Combinations resolved by a previous run are counted as the loop
// skips over them, never pre-seeded: seeding and per-skip increments
// together would count resumed work twice.
func newBar(total int, quiet bool) *bar {
	if quiet || total == 0 {
		return &bar{}
	}
	b := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("testing combinations"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &bar{b: b}
}

func (p *bar) add(n int) {
	if p.b != nil {
		_ = p.b.Add(n)
	}
}

func (p *bar) done() {
	if p.b != nil {
		_ = p.b.Finish()
	}
}
