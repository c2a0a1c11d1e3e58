package artifact

import (
	"math"
	"testing"

	"github.com/mbd888/vitalflow/internal/vitals"
)

func steady(n int, motion float64) []vitals.Sample {
	out := make([]vitals.Sample, n)
	for i := range out {
		out[i] = vitals.Sample{
			Timestamp:  float64(i),
			HeartRate:  75,
			SpO2:       98,
			BPSystolic: 120,
			Motion:     motion,
		}
	}
	return out
}

func TestSharpJumpWithMotionIsArtifact(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(5, 0.1)

	// HR jumps 40 bpm in one second while the vehicle bounces
	cur := vitals.Sample{Timestamp: 5, HeartRate: 115, SpO2: 98, BPSystolic: 120, Motion: 1.0}
	flags := d.Flag(cur, history)

	f := flags[vitals.HeartRate]
	if !f.IsArtifact || f.Kind != vitals.FlagMotion {
		t.Fatalf("expected motion artifact on heart_rate, got %+v", f)
	}
	if f.Severity <= 0 || f.Severity > 1 {
		t.Errorf("severity out of range: %f", f.Severity)
	}

	// The stable channels stay trusted even under the same motion
	if flags[vitals.SpO2].IsArtifact {
		t.Error("spo2 did not jump, must not be flagged")
	}
	if flags[vitals.BPSystolic].IsArtifact {
		t.Error("bp_systolic did not jump, must not be flagged")
	}
}

func TestSingleSampleBurstIsEnough(t *testing.T) {
	// A pothole is one sample long. The quiet history around it must not
	// dilute the burst below the threshold.
	d := New(DefaultConfig())
	history := steady(5, 0.1)

	for _, motion := range []float64{0.7, 1.0, 1.5} {
		cur := vitals.Sample{Timestamp: 5, HeartRate: 140, SpO2: 98, BPSystolic: 120, Motion: motion}
		f := d.Flag(cur, history)[vitals.HeartRate]
		if !f.IsArtifact || f.Kind != vitals.FlagMotion {
			t.Errorf("motion %.1f: expected motion artifact, got %+v", motion, f)
		}
	}
}

func TestBurstExtendsAcrossMotionWindow(t *testing.T) {
	// The sample after a burst still moves with the vehicle even if its
	// own accelerometer reading has settled.
	d := New(DefaultConfig())
	history := steady(4, 0.1)
	history = append(history, vitals.Sample{Timestamp: 4, HeartRate: 140, SpO2: 98, BPSystolic: 120, Motion: 1.5})

	cur := vitals.Sample{Timestamp: 5, HeartRate: 76, SpO2: 98, BPSystolic: 120, Motion: 0.1}
	f := d.Flag(cur, history)[vitals.HeartRate]
	if !f.IsArtifact || f.Kind != vitals.FlagMotion {
		t.Errorf("rebound jump inside the motion window must be an artifact, got %+v", f)
	}
}

func TestSharpJumpWithoutMotionIsTrend(t *testing.T) {
	// The same jump under a calm vehicle could be real deterioration.
	d := New(DefaultConfig())
	history := steady(5, 0.05)

	cur := vitals.Sample{Timestamp: 5, HeartRate: 115, SpO2: 98, BPSystolic: 120, Motion: 0.05}
	flags := d.Flag(cur, history)

	if flags[vitals.HeartRate].IsArtifact {
		t.Error("sharp jump under low motion must pass through as a trend")
	}
}

func TestGradualChangeUnderMotionIsTrend(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(5, 0.7)

	// +2 bpm in a second is below the jump threshold
	cur := vitals.Sample{Timestamp: 5, HeartRate: 77, SpO2: 98, BPSystolic: 120, Motion: 0.7}
	flags := d.Flag(cur, history)

	if flags[vitals.HeartRate].IsArtifact {
		t.Error("gradual change must not be flagged regardless of motion")
	}
}

func TestMissingValueIsDropout(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(5, 0.1)

	cur := vitals.Sample{Timestamp: 5, HeartRate: math.NaN(), SpO2: 98, BPSystolic: 120, Motion: 0.1}
	flags := d.Flag(cur, history)

	f := flags[vitals.HeartRate]
	if !f.IsArtifact || f.Kind != vitals.FlagDropout {
		t.Fatalf("expected dropout flag, got %+v", f)
	}
	if f.Severity != 1 {
		t.Errorf("dropout severity must be 1, got %f", f.Severity)
	}
}

func TestFirstSamplesNeverMotionFlagged(t *testing.T) {
	d := New(DefaultConfig())

	// Wild values with heavy motion, but no history to compare against
	cur := vitals.Sample{Timestamp: 0, HeartRate: 180, SpO2: 70, BPSystolic: 220, Motion: 1.5}

	for _, history := range [][]vitals.Sample{nil, steady(1, 0.1)} {
		flags := d.Flag(cur, history)
		for _, ch := range vitals.Channels() {
			if flags[ch].IsArtifact {
				t.Errorf("history len %d: channel %s flagged before MinHistory", len(history), ch)
			}
		}
	}
}

func TestDropoutFlaggedEvenWithoutHistory(t *testing.T) {
	d := New(DefaultConfig())

	cur := vitals.Sample{Timestamp: 0, HeartRate: math.NaN(), SpO2: 98, BPSystolic: 120, Motion: 0}
	flags := d.Flag(cur, nil)

	if f := flags[vitals.HeartRate]; !f.IsArtifact || f.Kind != vitals.FlagDropout {
		t.Errorf("missing value must be a dropout even on the first sample, got %+v", f)
	}
}

func TestImplausibleValueUnderHeavyMotionIsArtifact(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(5, 0.9)

	// SpO2 of 40 is outside any live range; motion is extreme
	cur := vitals.Sample{Timestamp: 5, HeartRate: 75, SpO2: 40, BPSystolic: 120, Motion: 1.2}
	flags := d.Flag(cur, history)

	if f := flags[vitals.SpO2]; !f.IsArtifact || f.Kind != vitals.FlagMotion {
		t.Errorf("implausible reading under heavy motion must be an artifact, got %+v", f)
	}
}

func TestLastValueSkipsDropouts(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(4, 0.1)
	// Most recent history sample lost its HR reading
	history = append(history, vitals.Sample{Timestamp: 4, HeartRate: math.NaN(), SpO2: 98, BPSystolic: 120, Motion: 0.1})

	// Jump is judged against the last non-missing value (75), so +40 is sharp
	cur := vitals.Sample{Timestamp: 5, HeartRate: 115, SpO2: 98, BPSystolic: 120, Motion: 1.0}
	flags := d.Flag(cur, history)

	if !flags[vitals.HeartRate].IsArtifact {
		t.Error("jump against last non-missing value must be detected across a dropout")
	}
}

func TestSeverityScalesWithJumpAndMotion(t *testing.T) {
	d := New(DefaultConfig())
	history := steady(5, 0.9)

	small := vitals.Sample{Timestamp: 5, HeartRate: 82, SpO2: 98, BPSystolic: 120, Motion: 0.9}
	big := vitals.Sample{Timestamp: 5, HeartRate: 130, SpO2: 98, BPSystolic: 120, Motion: 1.4}

	sevSmall := d.Flag(small, history)[vitals.HeartRate].Severity
	sevBig := d.Flag(big, history)[vitals.HeartRate].Severity

	if sevSmall <= 0 || sevBig <= 0 {
		t.Fatalf("expected both flagged: small=%f big=%f", sevSmall, sevBig)
	}
	if sevBig <= sevSmall {
		t.Errorf("bigger jump with more motion must be more severe: %f vs %f", sevBig, sevSmall)
	}
}
