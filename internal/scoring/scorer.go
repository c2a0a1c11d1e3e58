package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mbd888/vitalflow/internal/idgen"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Rule cutoffs for the human-readable reason strings. These annotate
// the assessment text only; the numeric gates live in Config.
const (
	reasonHRSlope   = 0.05
	reasonHRMean    = 100
	reasonSpO2Slope = -0.01
	reasonSpO2Mean  = 95
	reasonBPSlope   = 0.1
	reasonBPMean    = 140
)

// Scorer converts feature vectors into assessments. It carries the
// persistence counter for one stream, so each stream session owns its
// own instance; everything else about Score is a pure function of the
// feature vector and configuration.
type Scorer struct {
	cfg       Config
	breachRun int
}

// NewScorer creates a scorer for one stream session.
func NewScorer(cfg Config) *Scorer {
	if cfg.Persistence < 1 {
		cfg.Persistence = 1
	}
	return &Scorer{cfg: cfg}
}

// Reset clears the persistence state, as on a stream session restart.
func (s *Scorer) Reset() {
	s.breachRun = 0
}

// Score assesses one window. The caller only invokes it for full
// windows; the pending state for short windows is handled upstream and
// never reaches here as a zeroed feature vector.
func (s *Scorer) Score(fv vitals.FeatureVector) *Assessment {
	risk, factors := s.riskScore(fv)
	conf := s.confidence(fv)
	reasons := s.reasons(fv)

	breached := risk > s.cfg.RiskThreshold
	if breached {
		s.breachRun++
	} else {
		s.breachRun = 0
	}
	persisted := s.breachRun >= s.cfg.Persistence
	confident := conf >= s.cfg.MinConfidence

	// An unreliable breach is suppressed outright, whether or not the
	// persistence run has built up; watch is only for clean signals
	// still waiting on persistence.
	var state State
	anomaly := false
	switch {
	case breached && persisted && confident:
		state = StateAlert
		anomaly = true
	case breached && !confident:
		state = StateUncertain
	case breached:
		state = StateWatch
	default:
		state = StateNormal
	}

	a := &Assessment{
		ID:                  idgen.WithPrefix("va_"),
		WindowStart:         fv.WindowStart,
		WindowEnd:           fv.WindowEnd,
		RiskScore:           round3(risk),
		Confidence:          round3(conf),
		Anomaly:             anomaly,
		State:               state,
		ContributingFactors: factors,
		Reasons:             reasons,
		ArtifactRatio:       fv.ArtifactRatio,
		DropoutRatio:        fv.DropoutRatio,
		EvaluatedAt:         time.Now(),
	}
	a.Details = s.details(a)
	return a
}

// riskScore combines the per-vital instability sub-scores through the
// configured weights, applies the critical-synergy boost, and clamps.
// The returned factors are the weighted contributions, sorted by
// descending magnitude; their sum never exceeds the weight total (1).
func (s *Scorer) riskScore(fv vitals.FeatureVector) (float64, []Factor) {
	var risk float64
	factors := make([]Factor, 0, len(s.cfg.Norms))

	for _, ch := range vitals.Channels() {
		norm, ok := s.cfg.Norms[ch]
		if !ok {
			continue
		}
		sub := s.subScore(fv.Channels[ch], norm)
		contribution := norm.Weight * sub
		risk += contribution
		factors = append(factors, Factor{Name: string(ch), Weight: round3(contribution)})
	}

	hr := fv.Channels[vitals.HeartRate]
	sp := fv.Channels[vitals.SpO2]
	if hr.Usable > 0 && sp.Usable > 0 &&
		hr.Slope > s.cfg.SynergyHRSlope && sp.Slope < s.cfg.SynergySpO2Slope {
		risk *= s.cfg.SynergyBoost
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return math.Abs(factors[i].Weight) > math.Abs(factors[j].Weight)
	})
	return clamp01(risk), factors
}

// subScore is one vital's instability in [0,1]: a blend of how far the
// window mean sits along the Base→Extreme range, how fast it is
// trending toward Extreme, and how unstable it is. A channel with no
// usable values contributes nothing (its absence is accounted for in
// confidence via the dropout ratio, not smuggled into risk).
func (s *Scorer) subScore(cf vitals.ChannelFeatures, norm Norm) float64 {
	if cf.Usable == 0 {
		return 0
	}
	span := norm.Extreme - norm.Base
	if span == 0 {
		return 0
	}
	level := clamp01((cf.Mean - norm.Base) / span)

	// Slope toward Extreme counts; away from it does not.
	direction := 1.0
	if span < 0 {
		direction = -1.0
	}
	slope := 0.0
	if norm.SlopeScale > 0 {
		slope = clamp01(cf.Slope * direction / norm.SlopeScale)
	}

	std := 0.0
	if norm.StdScale > 0 {
		std = clamp01(cf.Std / norm.StdScale)
	}

	return clamp01(s.cfg.LevelWeight*level + s.cfg.SlopeWeight*slope + s.cfg.StdWeight*std)
}

// confidence decreases linearly with artifact and dropout density and
// takes a multiplicative penalty for unresolved gap runs. Monotonic in
// all three ratios; independent of the risk score by construction.
func (s *Scorer) confidence(fv vitals.FeatureVector) float64 {
	base := 1 - s.cfg.ConfArtifactWeight*fv.ArtifactRatio - s.cfg.ConfDropoutWeight*fv.DropoutRatio
	penalty := 1 - s.cfg.UnresolvedPenalty*fv.UnresolvedRatio
	return clamp01(clamp01(base) * clamp01(penalty))
}

// reasons annotates the assessment with the classic rule triggers.
func (s *Scorer) reasons(fv vitals.FeatureVector) []string {
	var out []string
	if hr := fv.Channels[vitals.HeartRate]; hr.Usable > 0 && hr.Slope > reasonHRSlope && hr.Mean > reasonHRMean {
		out = append(out, "rising heart rate trend")
	}
	if sp := fv.Channels[vitals.SpO2]; sp.Usable > 0 && sp.Slope < reasonSpO2Slope && sp.Mean < reasonSpO2Mean {
		out = append(out, "declining SpO2 trend")
	}
	if bp := fv.Channels[vitals.BPSystolic]; bp.Usable > 0 && bp.Slope > reasonBPSlope && bp.Mean > reasonBPMean {
		out = append(out, "rising systolic BP trend")
	}
	return out
}

// details renders the one-line operator summary.
func (s *Scorer) details(a *Assessment) string {
	switch a.State {
	case StateAlert:
		return fmt.Sprintf("CRITICAL: high risk (%.2f) with reliable signal (%.2f)%s",
			a.RiskScore, a.Confidence, joinReasons(a.Reasons))
	case StateUncertain:
		return fmt.Sprintf("SUPPRESSED: high risk (%.2f) but low confidence (%.2f) due to motion/artifacts",
			a.RiskScore, a.Confidence)
	case StateWatch:
		return "WAITING: risk threshold breached, awaiting trend persistence"
	default:
		return "normal status"
	}
}

func joinReasons(reasons []string) string {
	out := ""
	for _, r := range reasons {
		out += "; " + r
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
