package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/vitalflow/internal/vitals"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultWindowSize, cfg.WindowSize)
	assert.Equal(t, DefaultStride, cfg.Stride)
	assert.Equal(t, DefaultRiskThreshold, cfg.RiskThreshold)
	assert.Equal(t, 0.6, cfg.MotionThreshold)
}

func TestLoad_WithOverrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "WINDOW_SIZE", "60")
	setEnv(t, "STRIDE", "15")
	setEnv(t, "RISK_THRESHOLD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 60, cfg.WindowSize)
	assert.Equal(t, 15, cfg.Stride)
	assert.Equal(t, 0.5, cfg.RiskThreshold)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	setEnv(t, "STRIDE", "50") // larger than the default window

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STRIDE")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			WindowSize:    30,
			Stride:        10,
			MaxGap:        30,
			RiskThreshold: 0.35,
			MinConfidence: 0.7,
			HRWeight:      0.4,
			SpO2Weight:    0.4,
			BPWeight:      0.2,
			LevelWeight:   0.6,
			SlopeWeight:   0.3,
			StdWeight:     0.1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "window too small",
			mutate:  func(c *Config) { c.WindowSize = 1 },
			wantErr: "WINDOW_SIZE",
		},
		{
			name:    "stride exceeds window",
			mutate:  func(c *Config) { c.Stride = 31 },
			wantErr: "STRIDE",
		},
		{
			name:    "zero stride",
			mutate:  func(c *Config) { c.Stride = 0 },
			wantErr: "STRIDE",
		},
		{
			name:    "non-positive gap",
			mutate:  func(c *Config) { c.MaxGap = 0 },
			wantErr: "MAX_GAP_LENGTH",
		},
		{
			name:    "risk threshold out of range",
			mutate:  func(c *Config) { c.RiskThreshold = 1.5 },
			wantErr: "RISK_THRESHOLD",
		},
		{
			name:    "confidence out of range",
			mutate:  func(c *Config) { c.MinConfidence = -0.1 },
			wantErr: "MIN_CONFIDENCE",
		},
		{
			name:    "weights overflow",
			mutate:  func(c *Config) { c.BPWeight = 0.5 },
			wantErr: "weights",
		},
		{
			name:    "blend weights overflow",
			mutate:  func(c *Config) { c.LevelWeight = 1.2 },
			wantErr: "level/slope/std",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_PipelineAssembly(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Pipeline()
	assert.Equal(t, cfg.WindowSize, p.WindowSize)
	assert.Equal(t, cfg.Stride, p.Stride)
	assert.Equal(t, cfg.MaxGap, p.Cleaner.MaxGapLength)
	assert.Equal(t, cfg.MotionThreshold, p.Artifact.MotionThreshold)
	assert.Equal(t, cfg.HRJump, p.Artifact.JumpThresholds[vitals.HeartRate])
	assert.Equal(t, cfg.RiskThreshold, p.Scoring.RiskThreshold)
	assert.Equal(t, cfg.SpO2Base, p.Scoring.Norms[vitals.SpO2].Base)
	assert.Equal(t, cfg.SpO2Weight, p.Scoring.Norms[vitals.SpO2].Weight)
	assert.Equal(t, cfg.LevelWeight, p.Scoring.LevelWeight)
	assert.Equal(t, cfg.SynergyHRSlope, p.Scoring.SynergyHRSlope)
	assert.Equal(t, cfg.HRSlopeScale, p.Scoring.Norms[vitals.HeartRate].SlopeScale)
	assert.Equal(t, cfg.BPStdScale, p.Scoring.Norms[vitals.BPSystolic].StdScale)
}

func TestConfig_ScoringKnobOverrides(t *testing.T) {
	setEnv(t, "LEVEL_WEIGHT", "0.5")
	setEnv(t, "SLOPE_WEIGHT", "0.4")
	setEnv(t, "STD_WEIGHT", "0.1")
	setEnv(t, "SYNERGY_HR_SLOPE", "0.03")
	setEnv(t, "SYNERGY_SPO2_SLOPE", "-0.01")
	setEnv(t, "SPO2_SLOPE_SCALE", "0.3")
	setEnv(t, "HR_STD_SCALE", "15")

	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Pipeline()
	assert.Equal(t, 0.5, p.Scoring.LevelWeight)
	assert.Equal(t, 0.4, p.Scoring.SlopeWeight)
	assert.Equal(t, 0.1, p.Scoring.StdWeight)
	assert.Equal(t, 0.03, p.Scoring.SynergyHRSlope)
	assert.Equal(t, -0.01, p.Scoring.SynergySpO2Slope)
	assert.Equal(t, 0.3, p.Scoring.Norms[vitals.SpO2].SlopeScale)
	assert.Equal(t, 15.0, p.Scoring.Norms[vitals.HeartRate].StdScale)
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 99, getEnvInt("NONEXISTENT_VAR", 99))
	assert.Equal(t, 99, getEnvInt("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvFloat(t *testing.T) {
	setEnv(t, "TEST_FLOAT", "0.25")

	assert.Equal(t, 0.25, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 1.5, getEnvFloat("NONEXISTENT_VAR", 1.5))
}
