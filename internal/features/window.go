package features

import (
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Window is a fixed-size FIFO of the most recent cleaned samples for
// one stream. Eviction is strict FIFO by arrival (and therefore by
// timestamp, since the pipeline enforces monotonic ingestion).
type Window struct {
	size    int
	samples []vitals.CleanedSample
}

// NewWindow creates a window holding up to size samples.
func NewWindow(size int) *Window {
	if size < 2 {
		size = 2
	}
	return &Window{size: size, samples: make([]vitals.CleanedSample, 0, size)}
}

// Push appends a cleaned sample, evicting the oldest once full.
func (w *Window) Push(s vitals.CleanedSample) {
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, s)
}

// Full reports whether the window has reached its configured size.
func (w *Window) Full() bool {
	return len(w.samples) == w.size
}

// Len returns the current number of buffered samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Size returns the configured capacity.
func (w *Window) Size() int {
	return w.size
}

// Snapshot returns a copy of the buffered samples, oldest first.
func (w *Window) Snapshot() []vitals.CleanedSample {
	out := make([]vitals.CleanedSample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Reset empties the window, as on a stream session restart.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}
