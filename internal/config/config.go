// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mbd888/vitalflow/internal/artifact"
	"github.com/mbd888/vitalflow/internal/cleaner"
	"github.com/mbd888/vitalflow/internal/pipeline"
	"github.com/mbd888/vitalflow/internal/scoring"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Config holds all application configuration. Every threshold and
// weight of the scoring pipeline is externally tunable; nothing is
// hard-coded at call sites.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database (optional; in-memory assessment store if not set)
	DatabaseURL string

	// Tracing (optional; no-op when empty)
	OTLPEndpoint string

	// Window geometry (samples)
	WindowSize int
	Stride     int
	MaxGap     int

	// Artifact detection
	MotionThreshold   float64
	MotionWindow      int
	ImplausibleMotion float64
	HRJump            float64
	SpO2Jump          float64
	BPJump            float64

	// Risk scoring
	RiskThreshold    float64
	MinConfidence    float64
	Persistence      int
	SynergyBoost     float64
	SynergyHRSlope   float64
	SynergySpO2Slope float64

	// Intra-vital blend between level, trend, and variability terms
	LevelWeight float64
	SlopeWeight float64
	StdWeight   float64

	// Per-vital normalization: base, extreme, weight, trend and
	// variability scales
	HRBase, HRExtreme, HRWeight       float64
	HRSlopeScale, HRStdScale          float64
	SpO2Base, SpO2Extreme, SpO2Weight float64
	SpO2SlopeScale, SpO2StdScale      float64
	BPBase, BPExtreme, BPWeight       float64
	BPSlopeScale, BPStdScale          float64

	// Confidence curve
	ConfArtifactWeight float64
	ConfDropoutWeight  float64
	UnresolvedPenalty  float64
}

// Defaults for a 1 Hz ambulance stream.
const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultWindowSize    = 30
	DefaultStride        = 10
	DefaultMaxGap        = 30
	DefaultRiskThreshold = 0.35
	DefaultMinConfidence = 0.7
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		WindowSize: getEnvInt("WINDOW_SIZE", DefaultWindowSize),
		Stride:     getEnvInt("STRIDE", DefaultStride),
		MaxGap:     getEnvInt("MAX_GAP_LENGTH", DefaultMaxGap),

		MotionThreshold:   getEnvFloat("MOTION_THRESHOLD", 0.6),
		MotionWindow:      getEnvInt("MOTION_WINDOW", 5),
		ImplausibleMotion: getEnvFloat("IMPLAUSIBLE_MOTION", 0.8),
		HRJump:            getEnvFloat("HR_JUMP_THRESHOLD", 5.0),
		SpO2Jump:          getEnvFloat("SPO2_JUMP_THRESHOLD", 2.0),
		BPJump:            getEnvFloat("BP_JUMP_THRESHOLD", 8.0),

		RiskThreshold:    getEnvFloat("RISK_THRESHOLD", DefaultRiskThreshold),
		MinConfidence:    getEnvFloat("MIN_CONFIDENCE", DefaultMinConfidence),
		Persistence:      getEnvInt("RISK_PERSISTENCE", 2),
		SynergyBoost:     getEnvFloat("SYNERGY_BOOST", 1.2),
		SynergyHRSlope:   getEnvFloat("SYNERGY_HR_SLOPE", 0.02),
		SynergySpO2Slope: getEnvFloat("SYNERGY_SPO2_SLOPE", -0.005),

		LevelWeight: getEnvFloat("LEVEL_WEIGHT", 0.6),
		SlopeWeight: getEnvFloat("SLOPE_WEIGHT", 0.3),
		StdWeight:   getEnvFloat("STD_WEIGHT", 0.1),

		HRBase:         getEnvFloat("HR_BASE", 75),
		HRExtreme:      getEnvFloat("HR_EXTREME", 120),
		HRWeight:       getEnvFloat("HR_WEIGHT", 0.4),
		HRSlopeScale:   getEnvFloat("HR_SLOPE_SCALE", 0.5),
		HRStdScale:     getEnvFloat("HR_STD_SCALE", 10),
		SpO2Base:       getEnvFloat("SPO2_BASE", 98),
		SpO2Extreme:    getEnvFloat("SPO2_EXTREME", 90),
		SpO2Weight:     getEnvFloat("SPO2_WEIGHT", 0.4),
		SpO2SlopeScale: getEnvFloat("SPO2_SLOPE_SCALE", 0.2),
		SpO2StdScale:   getEnvFloat("SPO2_STD_SCALE", 4),
		BPBase:         getEnvFloat("BP_BASE", 120),
		BPExtreme:      getEnvFloat("BP_EXTREME", 160),
		BPWeight:       getEnvFloat("BP_WEIGHT", 0.2),
		BPSlopeScale:   getEnvFloat("BP_SLOPE_SCALE", 0.8),
		BPStdScale:     getEnvFloat("BP_STD_SCALE", 12),

		ConfArtifactWeight: getEnvFloat("CONF_ARTIFACT_WEIGHT", 0.5),
		ConfDropoutWeight:  getEnvFloat("CONF_DROPOUT_WEIGHT", 0.6),
		UnresolvedPenalty:  getEnvFloat("UNRESOLVED_PENALTY", 0.3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("WINDOW_SIZE must be at least 2, got %d", c.WindowSize)
	}
	if c.Stride < 1 || c.Stride > c.WindowSize {
		return fmt.Errorf("STRIDE must be in [1, WINDOW_SIZE], got %d", c.Stride)
	}
	if c.MaxGap < 1 {
		return fmt.Errorf("MAX_GAP_LENGTH must be positive, got %d", c.MaxGap)
	}
	if c.RiskThreshold < 0 || c.RiskThreshold > 1 {
		return fmt.Errorf("RISK_THRESHOLD must be in [0,1], got %f", c.RiskThreshold)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [0,1], got %f", c.MinConfidence)
	}
	if w := c.HRWeight + c.SpO2Weight + c.BPWeight; w <= 0 || w > 1.0001 {
		return fmt.Errorf("vital weights must be positive and sum to at most 1, got %f", w)
	}
	if w := c.LevelWeight + c.SlopeWeight + c.StdWeight; w <= 0 || w > 1.0001 {
		return fmt.Errorf("level/slope/std weights must be positive and sum to at most 1, got %f", w)
	}
	return nil
}

// Pipeline assembles the stage configurations from the flat env fields.
func (c *Config) Pipeline() pipeline.Config {
	p := pipeline.DefaultConfig()
	p.WindowSize = c.WindowSize
	p.Stride = c.Stride

	p.Artifact = artifact.Config{
		MotionThreshold: c.MotionThreshold,
		MotionWindow:    c.MotionWindow,
		JumpThresholds: map[vitals.Channel]float64{
			vitals.HeartRate:  c.HRJump,
			vitals.SpO2:       c.SpO2Jump,
			vitals.BPSystolic: c.BPJump,
		},
		MinHistory:        2,
		ImplausibleMotion: c.ImplausibleMotion,
		PlausibleRanges:   vitals.DefaultPlausibleRanges(),
	}
	p.Cleaner = cleaner.Config{MaxGapLength: c.MaxGap}

	s := scoring.DefaultConfig()
	s.Norms[vitals.HeartRate] = scoring.Norm{
		Base: c.HRBase, Extreme: c.HRExtreme, Weight: c.HRWeight,
		SlopeScale: c.HRSlopeScale, StdScale: c.HRStdScale,
	}
	s.Norms[vitals.SpO2] = scoring.Norm{
		Base: c.SpO2Base, Extreme: c.SpO2Extreme, Weight: c.SpO2Weight,
		SlopeScale: c.SpO2SlopeScale, StdScale: c.SpO2StdScale,
	}
	s.Norms[vitals.BPSystolic] = scoring.Norm{
		Base: c.BPBase, Extreme: c.BPExtreme, Weight: c.BPWeight,
		SlopeScale: c.BPSlopeScale, StdScale: c.BPStdScale,
	}
	s.LevelWeight = c.LevelWeight
	s.SlopeWeight = c.SlopeWeight
	s.StdWeight = c.StdWeight
	s.RiskThreshold = c.RiskThreshold
	s.MinConfidence = c.MinConfidence
	s.Persistence = c.Persistence
	s.SynergyBoost = c.SynergyBoost
	s.SynergyHRSlope = c.SynergyHRSlope
	s.SynergySpO2Slope = c.SynergySpO2Slope
	s.ConfArtifactWeight = c.ConfArtifactWeight
	s.ConfDropoutWeight = c.ConfDropoutWeight
	s.UnresolvedPenalty = c.UnresolvedPenalty
	p.Scoring = s

	return p
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
