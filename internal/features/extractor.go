// Package features computes trend, variability, and rate-of-change
// statistics over a sliding window of cleaned samples.
//
// Extraction is a pure function of the window contents: the same
// window always yields the same feature vector.
package features

import (
	"errors"
	"math"

	"github.com/mbd888/vitalflow/internal/vitals"
)

// ErrInsufficientData is returned while the window has not yet filled.
// It marks the pipeline's explicit pending state, never an error the
// caller should log and drop.
var ErrInsufficientData = errors.New("window not full: insufficient data")

// Extract computes the feature vector for one full window (oldest
// sample first). Windows shorter than size are not scored.
func Extract(window []vitals.CleanedSample, size int) (vitals.FeatureVector, error) {
	if len(window) < size || len(window) < 2 {
		return vitals.FeatureVector{}, ErrInsufficientData
	}

	fv := vitals.FeatureVector{
		WindowStart: window[0].Timestamp,
		WindowEnd:   window[len(window)-1].Timestamp,
		SampleCount: len(window),
		Channels:    make(map[vitals.Channel]vitals.ChannelFeatures, 3),
	}

	for _, ch := range vitals.Channels() {
		fv.Channels[ch] = channelFeatures(ch, window)
	}

	var artifacts, dropouts, unresolved int
	for _, s := range window {
		if s.Flagged(vitals.FlagMotion) {
			artifacts++
		}
		if s.Flagged(vitals.FlagDropout) {
			dropouts++
		}
		if s.AnyUnresolved() {
			unresolved++
		}
	}
	n := float64(len(window))
	fv.ArtifactRatio = float64(artifacts) / n
	fv.DropoutRatio = float64(dropouts) / n
	fv.UnresolvedRatio = float64(unresolved) / n

	return fv, nil
}

// channelFeatures computes mean, least-squares slope, sample standard
// deviation, and the maximum absolute first difference over the
// channel's non-missing values. A channel the monitor never reported
// (all NaN) yields zeroed features with Usable == 0.
func channelFeatures(ch vitals.Channel, window []vitals.CleanedSample) vitals.ChannelFeatures {
	var ts, vs []float64
	for _, s := range window {
		v := s.Value(ch)
		if math.IsNaN(v) {
			continue
		}
		ts = append(ts, s.Timestamp)
		vs = append(vs, v)
	}

	cf := vitals.ChannelFeatures{Usable: len(vs)}
	if len(vs) == 0 {
		return cf
	}

	var sum float64
	for _, v := range vs {
		sum += v
	}
	cf.Mean = sum / float64(len(vs))

	if len(vs) >= 2 {
		cf.Slope = leastSquaresSlope(ts, vs)
		cf.Std = sampleStd(vs, cf.Mean)
		cf.MaxRateOfChange = maxAbsDiff(vs)
	}
	return cf
}

// leastSquaresSlope fits value against time. Degenerate time spans
// (all identical timestamps) return 0 rather than blowing up.
func leastSquaresSlope(ts, vs []float64) float64 {
	n := float64(len(ts))
	var sumT, sumV, sumTV, sumTT float64
	for i := range ts {
		sumT += ts[i]
		sumV += vs[i]
		sumTV += ts[i] * vs[i]
		sumTT += ts[i] * ts[i]
	}
	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0
	}
	return (n*sumTV - sumT*sumV) / denom
}

// sampleStd is the n-1 standard deviation.
func sampleStd(vs []float64, mean float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}

// maxAbsDiff is the largest absolute change between consecutive
// non-missing values, the residual-spike feature surviving cleaning.
func maxAbsDiff(vs []float64) float64 {
	var maxD float64
	for i := 1; i < len(vs); i++ {
		if d := math.Abs(vs[i] - vs[i-1]); d > maxD {
			maxD = d
		}
	}
	return maxD
}
