package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/vitalflow/internal/pipeline"
	"github.com/mbd888/vitalflow/internal/vitals"
)

func replayStream(n int) ([]vitals.Sample, []bool) {
	samples := make([]vitals.Sample, n)
	labels := make([]bool, n)
	for i := range samples {
		samples[i] = vitals.Sample{
			Timestamp:  float64(i),
			HeartRate:  75,
			SpO2:       98,
			BPSystolic: 120,
			Motion:     0.1,
		}
	}
	return samples, labels
}

func TestReplayProducesWindowRecords(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.WindowSize = 10
	cfg.Stride = 5

	samples, labels := replayStream(30)
	report, records := Replay(cfg, samples, labels)

	// Windows at samples 10, 15, 20, 25, 30.
	require.Len(t, records, 5)
	assert.Equal(t, 5, report.TotalWindows)
	assert.Equal(t, 0, report.FalsePositives)
	for _, rec := range records {
		assert.False(t, rec.Truth)
		assert.Equal(t, rec.Assessment.WindowEnd, rec.Timestamp)
	}
}

func TestReplayTruthFollowsLabels(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.WindowSize = 10
	cfg.Stride = 5

	samples, labels := replayStream(30)
	for i := 20; i < 30; i++ {
		labels[i] = true
	}
	report, records := Replay(cfg, samples, labels)

	require.Len(t, records, 5)
	// Windows ending at 9, 14 and 19 precede the event; the rest overlap it.
	assert.False(t, records[0].Truth)
	assert.False(t, records[1].Truth)
	assert.False(t, records[2].Truth)
	assert.True(t, records[3].Truth)
	assert.True(t, records[4].Truth)
	assert.Equal(t, 1, report.Events)
}

func TestReplayIsDeterministic(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.WindowSize = 10
	cfg.Stride = 5

	samples, labels := replayStream(40)
	a, recA := Replay(cfg, samples, labels)
	b, recB := Replay(cfg, samples, labels)

	assert.Equal(t, a, b)
	require.Equal(t, len(recA), len(recB))
	for i := range recA {
		assert.Equal(t, recA[i].Assessment.RiskScore, recB[i].Assessment.RiskScore)
		assert.Equal(t, recA[i].Assessment.State, recB[i].Assessment.State)
	}
}
