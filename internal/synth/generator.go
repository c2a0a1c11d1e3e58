// Package synth generates labeled synthetic ambulance streams:
// baseline vitals with transport noise, a gradual deterioration ramp,
// motion-burst artifact episodes with coupled HR/SpO₂ corruption, and
// short sensor dropouts. Generation is fully deterministic for a
// given seed, which the replay CLI and the evaluation tests rely on.
package synth

import (
	"math"
	"math/rand"

	"github.com/mbd888/vitalflow/internal/evaluation"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Episode is a time interval in seconds from stream start.
type Episode struct {
	Start float64
	End   float64
}

// Config shapes the generated stream.
type Config struct {
	Seed     int64
	Duration float64 // seconds
	Rate     float64 // samples per second

	// Deterioration ramp: HR climbs, SpO₂ falls, BP climbs across the
	// interval. Distress is labeled once the trend is established
	// (LabelDelay seconds after onset).
	Deterioration Episode
	HRRise        float64
	SpO2Drop      float64
	BPRise        float64
	LabelDelay    float64

	// Motion bursts with coupled sensor corruption.
	ArtifactEpisodes []Episode

	// Sensor dropout intervals (HR and SpO₂ go missing).
	DropoutEpisodes []Episode
}

// DefaultConfig is a 30-minute transport with one deterioration and
// three bump episodes, matching the tuned evaluation scenario.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		Duration:      1800,
		Rate:          1,
		Deterioration: Episode{Start: 900, End: 1500},
		HRRise:        40,
		SpO2Drop:      8,
		BPRise:        30,
		LabelDelay:    100,
		ArtifactEpisodes: []Episode{
			{Start: 300, End: 330},
			{Start: 700, End: 720},
			{Start: 1200, End: 1230},
		},
		DropoutEpisodes: []Episode{
			{Start: 1000, End: 1010},
			{Start: 1600, End: 1605},
		},
	}
}

// Stream is a generated labeled sample sequence.
type Stream struct {
	Samples []vitals.Sample
	Labels  []bool
	Events  []evaluation.Event
}

// Generate builds the stream.
func Generate(cfg Config) Stream {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := int(cfg.Duration * cfg.Rate)
	dt := 1 / cfg.Rate

	st := Stream{
		Samples: make([]vitals.Sample, 0, n),
		Labels:  make([]bool, 0, n),
	}

	detSpan := cfg.Deterioration.End - cfg.Deterioration.Start
	for i := 0; i < n; i++ {
		t := float64(i) * dt

		hr := 75 + rng.NormFloat64()*1
		spo2 := 98 + rng.NormFloat64()*0.2
		bp := 120 + rng.NormFloat64()*2
		motion := math.Max(0, 0.1+rng.NormFloat64()*0.05)

		// Gradual deterioration ramp.
		if detSpan > 0 && t >= cfg.Deterioration.Start && t <= cfg.Deterioration.End {
			frac := (t - cfg.Deterioration.Start) / detSpan
			hr += cfg.HRRise * frac
			spo2 -= cfg.SpO2Drop * frac
			bp += cfg.BPRise * frac
		}

		// Motion bursts with coupled sensor corruption.
		for _, ep := range cfg.ArtifactEpisodes {
			if t >= ep.Start && t <= ep.End {
				motion += 0.5 + rng.Float64()*0.7
				spo2 -= 5 + rng.Float64()*10
				hr += 10 + rng.Float64()*10
			}
		}

		// Sensor dropout: HR and SpO₂ go missing.
		for _, ep := range cfg.DropoutEpisodes {
			if t >= ep.Start && t <= ep.End {
				hr = math.NaN()
				spo2 = math.NaN()
			}
		}

		st.Samples = append(st.Samples, vitals.Sample{
			Timestamp:  t,
			HeartRate:  clip(hr, 40, 200),
			SpO2:       clip(spo2, 60, 100),
			BPSystolic: clip(bp, 60, 220),
			Motion:     motion,
		})
		st.Labels = append(st.Labels,
			detSpan > 0 && t >= cfg.Deterioration.Start+cfg.LabelDelay && t <= cfg.Deterioration.End)
	}

	ts := make([]float64, len(st.Samples))
	for i, s := range st.Samples {
		ts[i] = s.Timestamp
	}
	st.Events = evaluation.EventsFromLabels(ts, st.Labels)
	return st
}

// clip bounds a value, passing NaN (dropout) through untouched.
func clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(hi, math.Max(lo, v))
}
