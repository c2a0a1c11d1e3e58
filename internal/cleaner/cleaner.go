// Package cleaner turns (sample, flag) pairs into artifact-gated
// cleaned samples.
//
// Motion artifacts are held at the last trusted value immediately:
// interpolating across a spike would fabricate a trend through it.
// Dropouts are buffered and linearly interpolated once the next trusted
// value arrives; a run longer than the configured maximum gap degrades
// to hold with an unresolved marker instead, so emission latency stays
// bounded. One Cleaner belongs to exactly one stream session.
package cleaner

import (
	"math"

	"github.com/mbd888/vitalflow/internal/vitals"
)

// Config holds the cleaner's single knob.
type Config struct {
	// MaxGapLength is the longest dropout run (in samples, per channel)
	// that will be interpolated. Longer runs are resolved as holds.
	MaxGapLength int
}

// DefaultConfig allows 30 s of gap at the nominal 1 Hz rate.
func DefaultConfig() Config {
	return Config{MaxGapLength: 30}
}

// pending is a sample whose cleaned values are not all final yet.
type pending struct {
	out   vitals.CleanedSample
	await int // channels still waiting on gap resolution
}

// gap tracks one open dropout run on a single channel.
type gap struct {
	// before is the last trusted value when the run opened; NaN when the
	// stream started inside a dropout.
	before  float64
	entries []*pending
}

// Cleaner owns the per-channel last-trusted-value and open-gap state
// for one stream. It is not safe for concurrent use; each stream
// session drives its own instance.
type Cleaner struct {
	cfg         Config
	lastTrusted map[vitals.Channel]float64
	gaps        map[vitals.Channel]*gap
	queue       []*pending
}

// New creates a cleaner for a fresh stream session.
func New(cfg Config) *Cleaner {
	if cfg.MaxGapLength <= 0 {
		cfg.MaxGapLength = 30
	}
	return &Cleaner{
		cfg:         cfg,
		lastTrusted: make(map[vitals.Channel]float64, 3),
		gaps:        make(map[vitals.Channel]*gap, 3),
	}
}

// Reset drops all hold/gap state, as on a stream session restart.
func (c *Cleaner) Reset() {
	c.lastTrusted = make(map[vitals.Channel]float64, 3)
	c.gaps = make(map[vitals.Channel]*gap, 3)
	c.queue = nil
}

// Push consumes one flagged sample and returns every cleaned sample
// that became final, in timestamp order. The slice is often empty (a
// dropout run is open) or longer than one (a trusted value just closed
// a run and released the buffered samples behind it).
func (c *Cleaner) Push(s vitals.Sample, flags vitals.FlagSet) []vitals.CleanedSample {
	p := &pending{out: vitals.CleanedSample{
		Timestamp:  s.Timestamp,
		Motion:     s.Motion,
		Values:     make(map[vitals.Channel]float64, 3),
		Provenance: make(map[vitals.Channel]vitals.Provenance, 3),
		Flags:      flags,
		Unresolved: make(map[vitals.Channel]bool, 3),
	}}

	for _, ch := range vitals.Channels() {
		f := flags[ch]
		switch {
		case f.IsArtifact && f.Kind == vitals.FlagDropout:
			c.openOrExtendGap(ch, p)
		case f.IsArtifact:
			// Motion artifact: hold, and do not promote to trusted.
			p.out.Values[ch] = c.heldValue(ch)
			p.out.Provenance[ch] = vitals.ProvHeld
		default:
			v := s.Value(ch)
			p.out.Values[ch] = v
			p.out.Provenance[ch] = vitals.ProvOriginal
			c.closeGap(ch, v)
			c.lastTrusted[ch] = v
		}
	}

	c.queue = append(c.queue, p)
	return c.drain()
}

// Flush resolves every open gap as held (unresolved) and releases the
// whole queue. Call at end of stream so trailing dropouts still emit.
func (c *Cleaner) Flush() []vitals.CleanedSample {
	for ch, g := range c.gaps {
		c.degrade(ch, g)
	}
	c.gaps = make(map[vitals.Channel]*gap, 3)
	return c.drain()
}

// openOrExtendGap registers the pending sample in the channel's dropout
// run, degrading the run to holds once it exceeds MaxGapLength.
func (c *Cleaner) openOrExtendGap(ch vitals.Channel, p *pending) {
	g := c.gaps[ch]
	if g == nil {
		g = &gap{before: c.heldValue(ch)}
		c.gaps[ch] = g
	}
	g.entries = append(g.entries, p)
	p.await++

	if len(g.entries) > c.cfg.MaxGapLength {
		c.degrade(ch, g)
		delete(c.gaps, ch)
	}
}

// closeGap linearly interpolates the channel across its open run, now
// that the value after the gap is known.
func (c *Cleaner) closeGap(ch vitals.Channel, after float64) {
	g := c.gaps[ch]
	if g == nil {
		return
	}
	delete(c.gaps, ch)

	n := len(g.entries)
	for i, p := range g.entries {
		var v float64
		switch {
		case math.IsNaN(g.before):
			// Stream opened inside a dropout: backfill with the first
			// trusted value rather than inventing a ramp from nothing.
			v = after
		default:
			frac := float64(i+1) / float64(n+1)
			v = g.before + (after-g.before)*frac
		}
		p.out.Values[ch] = v
		p.out.Provenance[ch] = vitals.ProvInterpolated
		p.await--
	}
}

// degrade resolves a too-long run as held values with the unresolved
// marker set; the scorer penalizes confidence for these.
func (c *Cleaner) degrade(ch vitals.Channel, g *gap) {
	for _, p := range g.entries {
		p.out.Values[ch] = g.before // NaN when the stream never had a trusted value
		p.out.Provenance[ch] = vitals.ProvHeld
		p.out.Unresolved[ch] = true
		p.await--
	}
}

// drain emits finalized samples from the head of the queue, preserving
// timestamp order: a sample behind an open gap waits even if its own
// channels are final.
func (c *Cleaner) drain() []vitals.CleanedSample {
	var out []vitals.CleanedSample
	for len(c.queue) > 0 && c.queue[0].await == 0 {
		out = append(out, c.queue[0].out)
		c.queue = c.queue[1:]
	}
	return out
}

// heldValue is the channel's last trusted value, NaN before any exists.
func (c *Cleaner) heldValue(ch vitals.Channel) float64 {
	if v, ok := c.lastTrusted[ch]; ok {
		return v
	}
	return math.NaN()
}

// PendingLen reports how many samples are buffered awaiting gap
// resolution. Bounded by MaxGapLength plus one by construction.
func (c *Cleaner) PendingLen() int {
	return len(c.queue)
}
