// Package artifact classifies incoming samples as transport-induced
// artifacts or trustworthy readings.
//
// The central rule is asymmetric: a sharp per-sample jump concurrent
// with elevated motion is an artifact, while a comparable change that
// arrives gradually under low motion is treated as a real physiological
// trend and passed through untouched. Missing values are flagged as
// dropouts, kept distinct from motion artifacts so the scorer can
// account for them separately in its confidence estimate.
package artifact

import (
	"math"

	"github.com/mbd888/vitalflow/internal/vitals"
)

// Config holds the detector's tuning knobs.
type Config struct {
	// MotionThreshold is the motion amplitude above which a sample is a
	// candidate artifact window.
	MotionThreshold float64
	// MotionWindow is the number of recent samples the peak motion
	// level is taken over.
	MotionWindow int
	// JumpThresholds give, per channel, the absolute one-sample change
	// considered sharp (e.g. >5 bpm/s for heart rate).
	JumpThresholds map[vitals.Channel]float64
	// MinHistory is the number of prior samples required before any
	// artifact flag may be raised. Below it, readings are trusted.
	MinHistory int
	// ImplausibleMotion is the peak motion level above which a reading
	// outside its plausible range is flagged regardless of jump.
	ImplausibleMotion float64
	// PlausibleRanges bound each channel for the implausible-value rule.
	PlausibleRanges map[vitals.Channel]vitals.PlausibleRange
}

// DefaultConfig mirrors the tuned thresholds for 1 Hz ambulance streams.
func DefaultConfig() Config {
	return Config{
		MotionThreshold: 0.6,
		MotionWindow:    5,
		JumpThresholds: map[vitals.Channel]float64{
			vitals.HeartRate:  5.0,
			vitals.SpO2:       2.0,
			vitals.BPSystolic: 8.0,
		},
		MinHistory:        2,
		ImplausibleMotion: 0.8,
		PlausibleRanges:   vitals.DefaultPlausibleRanges(),
	}
}

// Detector is a pure classifier: Flag depends only on the current
// sample and the bounded history the caller supplies. It holds no
// state of its own, so one instance may serve many streams.
type Detector struct {
	cfg Config
}

// New creates a detector with the given configuration.
func New(cfg Config) *Detector {
	if cfg.MotionWindow <= 0 {
		cfg.MotionWindow = 5
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 2
	}
	return &Detector{cfg: cfg}
}

// verdict is one row outcome of the classification table.
type verdict int

const (
	verdictTrend verdict = iota // trust the reading
	verdictArtifact
	verdictDropout
)

// classify is the motion × sharpness decision table:
//
//	missing value                → dropout
//	sharp jump   + high motion   → artifact
//	implausible  + very high motion → artifact
//	sharp jump   + low motion    → trend (potential real deterioration)
//	gradual      + any motion    → trend
func (d *Detector) classify(ch vitals.Channel, cur, prev float64, motion float64) verdict {
	if math.IsNaN(cur) {
		return verdictDropout
	}
	if math.IsNaN(prev) {
		// No comparison point survives on this channel; trust it.
		return verdictTrend
	}
	jump := math.Abs(cur - prev)
	sharp := jump > d.cfg.JumpThresholds[ch]
	elevated := motion > d.cfg.MotionThreshold

	if sharp && elevated {
		return verdictArtifact
	}
	if motion > d.cfg.ImplausibleMotion {
		if r, ok := d.cfg.PlausibleRanges[ch]; ok && (cur < r.Min || cur > r.Max) {
			return verdictArtifact
		}
	}
	return verdictTrend
}

// Flag classifies every vital channel of the current sample given a
// bounded history of prior raw samples (oldest first). The first
// MinHistory samples of a stream are never flagged as motion artifacts:
// with that little evidence the reading is trusted by default. Missing
// values are flagged as dropouts regardless of history length.
func (d *Detector) Flag(current vitals.Sample, history []vitals.Sample) vitals.FlagSet {
	motion := d.peakMotion(current, history)
	flags := make(vitals.FlagSet, 3)

	for _, ch := range vitals.Channels() {
		cur := current.Value(ch)

		if math.IsNaN(cur) {
			flags[ch] = vitals.ArtifactFlag{
				Timestamp:  current.Timestamp,
				IsArtifact: true,
				Kind:       vitals.FlagDropout,
				Severity:   1,
			}
			continue
		}

		if len(history) < d.cfg.MinHistory {
			flags[ch] = vitals.ArtifactFlag{Timestamp: current.Timestamp, Kind: vitals.FlagNone}
			continue
		}

		prev := lastValue(ch, history)
		switch d.classify(ch, cur, prev, motion) {
		case verdictArtifact:
			flags[ch] = vitals.ArtifactFlag{
				Timestamp:  current.Timestamp,
				IsArtifact: true,
				Kind:       vitals.FlagMotion,
				Severity:   d.severity(ch, cur, prev, motion),
			}
		default:
			flags[ch] = vitals.ArtifactFlag{Timestamp: current.Timestamp, Kind: vitals.FlagNone}
		}
	}
	return flags
}

// peakMotion takes the maximum motion amplitude over the current sample
// and up to MotionWindow-1 predecessors. A bump extends artifact
// candidacy across the whole window; one quiet reading in the middle of
// an episode never dilutes it, and a single-sample burst is enough on
// its own.
func (d *Detector) peakMotion(current vitals.Sample, history []vitals.Sample) float64 {
	peak := current.Motion
	n := 1
	for i := len(history) - 1; i >= 0 && n < d.cfg.MotionWindow; i-- {
		if history[i].Motion > peak {
			peak = history[i].Motion
		}
		n++
	}
	return peak
}

// severity scales with both how far the value jumped past its threshold
// and how hard the vehicle was moving, clamped to [0,1].
func (d *Detector) severity(ch vitals.Channel, cur, prev, motion float64) float64 {
	jump := math.Abs(cur - prev)
	th := d.cfg.JumpThresholds[ch]
	js := 0.0
	if th > 0 {
		js = jump / (2 * th)
	}
	ms := 0.0
	if d.cfg.MotionThreshold > 0 {
		ms = motion / (2 * d.cfg.MotionThreshold)
	}
	sev := 0.5*clamp01(js) + 0.5*clamp01(ms)
	return clamp01(sev)
}

// lastValue walks history backwards for the most recent non-missing
// reading on the channel. Returns NaN if none exists.
func lastValue(ch vitals.Channel, history []vitals.Sample) float64 {
	for i := len(history) - 1; i >= 0; i-- {
		if v := history[i].Value(ch); !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
