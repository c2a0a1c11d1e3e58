// Package scoring turns window feature vectors into bounded risk and
// confidence scores with an explainable factor breakdown.
//
// Risk and confidence are deliberately orthogonal: risk measures
// physiological instability across the vitals, confidence measures how
// trustworthy the underlying signal was (artifact and dropout density).
// A high-risk/low-confidence window is surfaced as "uncertain", never
// silently suppressed.
package scoring

import (
	"context"
	"time"

	"github.com/mbd888/vitalflow/internal/vitals"
)

// State is the four-way result alphabet the downstream consumer sees.
// Pending (window never filled) is distinct from a zero-risk normal,
// and uncertain (suppressed by low confidence) is distinct from both.
type State string

const (
	StatePending   State = "pending"
	StateNormal    State = "normal"
	StateWatch     State = "watch"     // threshold breached, persistence not yet met
	StateUncertain State = "uncertain" // would alert, but signal too unreliable
	StateAlert     State = "alert"
)

// Factor is one named contribution to the risk score, for
// explainability. Weights across an assessment sum to at most 1.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Assessment is the terminal output of the pipeline for one window.
type Assessment struct {
	ID                  string    `json:"id"`
	StreamID            string    `json:"stream_id,omitempty"`
	WindowStart         float64   `json:"window_start"`
	WindowEnd           float64   `json:"window_end"`
	RiskScore           float64   `json:"risk_score"`
	Confidence          float64   `json:"confidence"`
	Anomaly             bool      `json:"anomaly"`
	State               State     `json:"state"`
	ContributingFactors []Factor  `json:"contributing_factors"`
	Reasons             []string  `json:"reasons,omitempty"`
	Details             string    `json:"details"`
	ArtifactRatio       float64   `json:"artifact_ratio"`
	DropoutRatio        float64   `json:"dropout_ratio"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

// Store persists assessments for the audit/explainability trail.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	ListByStream(ctx context.Context, streamID string, limit int) ([]*Assessment, error)
}

// Norm is one vital's physiologically-plausible normalization range.
// Base is the healthy resting value and Extreme the fully-deteriorated
// one; Extreme < Base encodes a vital whose decline is the danger
// (SpO₂). SlopeScale and StdScale normalize the trend and variability
// terms the same way.
type Norm struct {
	Base       float64
	Extreme    float64
	Weight     float64
	SlopeScale float64 // units per second considered fully deteriorating
	StdScale   float64 // std considered fully unstable
}

// Config carries every scoring knob. All of these are surfaced through
// the service configuration; none are hard-coded at call sites.
type Config struct {
	Norms map[vitals.Channel]Norm

	// Intra-vital blend between level, trend, and variability terms.
	LevelWeight float64
	SlopeWeight float64
	StdWeight   float64

	RiskThreshold float64
	MinConfidence float64
	// Persistence is the number of consecutive threshold breaches
	// required before an alert fires.
	Persistence int

	// Critical synergy: rising HR while SpO₂ falls in the same window.
	SynergyBoost     float64
	SynergyHRSlope   float64
	SynergySpO2Slope float64

	// Confidence curve: linear in artifact and dropout density, with a
	// multiplicative penalty for unresolved gap runs.
	ConfArtifactWeight float64
	ConfDropoutWeight  float64
	UnresolvedPenalty  float64
}

// DefaultConfig mirrors the tuned parameters for 1 Hz ambulance streams.
func DefaultConfig() Config {
	return Config{
		Norms: map[vitals.Channel]Norm{
			vitals.HeartRate:  {Base: 75, Extreme: 120, Weight: 0.4, SlopeScale: 0.5, StdScale: 10},
			vitals.SpO2:       {Base: 98, Extreme: 90, Weight: 0.4, SlopeScale: 0.2, StdScale: 4},
			vitals.BPSystolic: {Base: 120, Extreme: 160, Weight: 0.2, SlopeScale: 0.8, StdScale: 12},
		},
		LevelWeight:        0.6,
		SlopeWeight:        0.3,
		StdWeight:          0.1,
		RiskThreshold:      0.35,
		MinConfidence:      0.7,
		Persistence:        2,
		SynergyBoost:       1.2,
		SynergyHRSlope:     0.02,
		SynergySpO2Slope:   -0.005,
		ConfArtifactWeight: 0.5,
		ConfDropoutWeight:  0.6,
		UnresolvedPenalty:  0.3,
	}
}
