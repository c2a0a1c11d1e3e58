package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DropoutEpisodes = nil // NaN never compares equal to itself
	a := Generate(cfg)
	b := Generate(cfg)
	assert.Equal(t, a, b)
}

func TestGenerateSeedChangesStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DropoutEpisodes = nil
	a := Generate(cfg)
	cfg.Seed = 99
	b := Generate(cfg)
	assert.NotEqual(t, a.Samples, b.Samples)
}

func TestGenerateLength(t *testing.T) {
	cfg := DefaultConfig()
	st := Generate(cfg)
	assert.Len(t, st.Samples, 1800)
	assert.Len(t, st.Labels, 1800)
}

func TestGenerateTimestampsMonotonic(t *testing.T) {
	st := Generate(DefaultConfig())
	for i := 1; i < len(st.Samples); i++ {
		assert.Greater(t, st.Samples[i].Timestamp, st.Samples[i-1].Timestamp)
	}
}

func TestGenerateLabelsStartAfterDelay(t *testing.T) {
	cfg := DefaultConfig()
	st := Generate(cfg)

	require.Len(t, st.Events, 1)
	ev := st.Events[0]
	assert.InDelta(t, cfg.Deterioration.Start+cfg.LabelDelay, ev.Onset, 1.0)
	assert.InDelta(t, cfg.Deterioration.End, ev.End, 1.0)

	// Nothing before the delay elapses is labeled distress.
	for i, s := range st.Samples {
		if s.Timestamp < cfg.Deterioration.Start+cfg.LabelDelay {
			assert.False(t, st.Labels[i], "early label at t=%v", s.Timestamp)
		}
	}
}

func TestGenerateDeteriorationRamp(t *testing.T) {
	cfg := DefaultConfig()
	st := Generate(cfg)

	// Near the ramp's end the trend dwarfs the sensor noise.
	var late vitalsAt
	for _, s := range st.Samples {
		if s.Timestamp == 1490 {
			late = vitalsAt{s.HeartRate, s.SpO2, s.BPSystolic}
		}
	}
	assert.Greater(t, late.hr, 105.0)
	assert.Less(t, late.spo2, 93.0)
	assert.Greater(t, late.bp, 140.0)
}

type vitalsAt struct{ hr, spo2, bp float64 }

func TestGenerateDropoutEpisodes(t *testing.T) {
	cfg := DefaultConfig()
	st := Generate(cfg)

	for _, s := range st.Samples {
		inDropout := false
		for _, ep := range cfg.DropoutEpisodes {
			if s.Timestamp >= ep.Start && s.Timestamp <= ep.End {
				inDropout = true
			}
		}
		if inDropout {
			assert.True(t, math.IsNaN(s.HeartRate), "HR present during dropout at t=%v", s.Timestamp)
			assert.True(t, math.IsNaN(s.SpO2), "SpO2 present during dropout at t=%v", s.Timestamp)
			assert.False(t, math.IsNaN(s.BPSystolic), "BP is not a dropout channel")
		} else {
			assert.False(t, math.IsNaN(s.HeartRate))
			assert.False(t, math.IsNaN(s.SpO2))
		}
	}
}

func TestGenerateArtifactEpisodesRaiseMotion(t *testing.T) {
	cfg := DefaultConfig()
	st := Generate(cfg)

	for _, ep := range cfg.ArtifactEpisodes {
		for _, s := range st.Samples {
			if s.Timestamp >= ep.Start && s.Timestamp <= ep.End {
				assert.Greater(t, s.Motion, 0.4, "burst motion at t=%v", s.Timestamp)
			}
		}
	}
}

func TestGenerateClipsToSensorRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpO2Drop = 60 // force the ramp through the floor
	st := Generate(cfg)

	for _, s := range st.Samples {
		if math.IsNaN(s.SpO2) {
			continue
		}
		assert.GreaterOrEqual(t, s.SpO2, 60.0)
		assert.LessOrEqual(t, s.SpO2, 100.0)
	}
}

func TestGenerateDefaultRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 0 // falls back to 1 Hz
	st := Generate(cfg)
	assert.Len(t, st.Samples, 1800)
}
