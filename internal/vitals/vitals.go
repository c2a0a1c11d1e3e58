// Package vitals defines the data model shared by every stage of the
// scoring pipeline: raw samples, per-channel artifact flags, cleaned
// samples with provenance, and the feature vector computed per window.
//
// Values flow strictly forward (raw sample → flag → cleaned sample →
// features); nothing in this package is revised retroactively.
package vitals

import (
	"errors"
	"fmt"
	"math"
)

// Channel identifies one monitored vital sign.
type Channel string

const (
	HeartRate  Channel = "heart_rate"
	SpO2       Channel = "spo2"
	BPSystolic Channel = "bp_systolic"
)

// Channels lists every scored vital channel in a fixed order.
// Iteration order matters for deterministic factor output.
func Channels() []Channel {
	return []Channel{HeartRate, SpO2, BPSystolic}
}

// Sample is one raw reading from the monitor. A missing value on any
// vital channel is represented as NaN; Motion is the accompanying
// accelerometer/vibration magnitude and is never negative.
type Sample struct {
	Timestamp  float64 `json:"timestamp"`
	HeartRate  float64 `json:"heart_rate"`
	SpO2       float64 `json:"spo2"`
	BPSystolic float64 `json:"bp_systolic"`
	Motion     float64 `json:"motion"`
}

// Value returns the reading for the given channel.
func (s Sample) Value(ch Channel) float64 {
	switch ch {
	case HeartRate:
		return s.HeartRate
	case SpO2:
		return s.SpO2
	case BPSystolic:
		return s.BPSystolic
	}
	return math.NaN()
}

// FlagKind distinguishes why a value was not trusted.
type FlagKind string

const (
	FlagNone    FlagKind = "none"
	FlagMotion  FlagKind = "motion_artifact"
	FlagDropout FlagKind = "dropout"
)

// ArtifactFlag is the detector's verdict for one channel of one sample.
// Severity is always in [0,1]; dropout flags carry severity 1.
type ArtifactFlag struct {
	Timestamp  float64  `json:"timestamp"`
	IsArtifact bool     `json:"is_artifact"`
	Kind       FlagKind `json:"kind"`
	Severity   float64  `json:"severity"`
}

// FlagSet holds the per-channel flags for one sample.
type FlagSet map[Channel]ArtifactFlag

// Provenance records where a cleaned value came from.
type Provenance string

const (
	ProvOriginal     Provenance = "original"
	ProvInterpolated Provenance = "interpolated"
	ProvHeld         Provenance = "held"
)

// CleanedSample is a sample after artifact gating. Each vital value is
// the original reading, an interpolated estimate, or the last trusted
// value held across an artifact. Unresolved marks channels whose
// dropout run exceeded the maximum gap length and degraded to hold.
type CleanedSample struct {
	Timestamp  float64                `json:"timestamp"`
	Motion     float64                `json:"motion"`
	Values     map[Channel]float64    `json:"values"`
	Provenance map[Channel]Provenance `json:"provenance"`
	Flags      FlagSet                `json:"flags"`
	Unresolved map[Channel]bool       `json:"unresolved,omitempty"`
}

// Value returns the cleaned reading for the channel (NaN if absent).
func (c CleanedSample) Value(ch Channel) float64 {
	if v, ok := c.Values[ch]; ok {
		return v
	}
	return math.NaN()
}

// Flagged reports whether any channel of this sample carries the kind.
func (c CleanedSample) Flagged(kind FlagKind) bool {
	for _, f := range c.Flags {
		if f.IsArtifact && f.Kind == kind {
			return true
		}
	}
	return false
}

// AnyUnresolved reports whether any channel degraded to an unresolved hold.
func (c CleanedSample) AnyUnresolved() bool {
	for _, u := range c.Unresolved {
		if u {
			return true
		}
	}
	return false
}

// ChannelFeatures are the per-vital statistics of one window.
type ChannelFeatures struct {
	Mean            float64 `json:"mean"`
	Slope           float64 `json:"slope"`
	Std             float64 `json:"std"`
	MaxRateOfChange float64 `json:"max_rate_of_change"`
	// Usable counts the non-missing values the statistics were computed over.
	Usable int `json:"usable"`
}

// FeatureVector is the deterministic summary of one full window.
type FeatureVector struct {
	WindowStart     float64                     `json:"window_start"`
	WindowEnd       float64                     `json:"window_end"`
	SampleCount     int                         `json:"sample_count"`
	Channels        map[Channel]ChannelFeatures `json:"channels"`
	ArtifactRatio   float64                     `json:"artifact_ratio"`
	DropoutRatio    float64                     `json:"dropout_ratio"`
	UnresolvedRatio float64                     `json:"unresolved_ratio"`
}

// Physiologically-plausible hard bounds used at ingestion. A value
// outside these bounds with no motion corroboration is malformed, not
// an artifact; the ranges are wider than any live patient would show.
type PlausibleRange struct {
	Min float64
	Max float64
}

// DefaultPlausibleRanges covers the three monitored channels.
func DefaultPlausibleRanges() map[Channel]PlausibleRange {
	return map[Channel]PlausibleRange{
		HeartRate:  {Min: 20, Max: 260},
		SpO2:       {Min: 50, Max: 100},
		BPSystolic: {Min: 50, Max: 260},
	}
}

// Ingestion rejection reasons.
var (
	ErrNonMonotonic = errors.New("timestamp not after previous sample")
	ErrImplausible  = errors.New("value outside physiological range without motion corroboration")
	ErrNegMotion    = errors.New("motion must be non-negative")
)

// Validate gates a raw sample at ingestion. lastTS is the timestamp of
// the previously accepted sample (use math.Inf(-1) for the first).
// motionFloor is the motion level above which an implausible value is
// handed to the artifact detector instead of being rejected outright.
// NaN vital values are always accepted; they are dropouts, not errors.
func Validate(s Sample, lastTS float64, ranges map[Channel]PlausibleRange, motionFloor float64) error {
	if s.Timestamp <= lastTS {
		return fmt.Errorf("%w: %.3f after %.3f", ErrNonMonotonic, s.Timestamp, lastTS)
	}
	if s.Motion < 0 || math.IsNaN(s.Motion) {
		return ErrNegMotion
	}
	if s.Motion >= motionFloor {
		// Corroborated by motion: let the detector classify it.
		return nil
	}
	for ch, r := range ranges {
		v := s.Value(ch)
		if math.IsNaN(v) {
			continue
		}
		if v < r.Min || v > r.Max {
			return fmt.Errorf("%w: %s=%.1f", ErrImplausible, ch, v)
		}
	}
	return nil
}
