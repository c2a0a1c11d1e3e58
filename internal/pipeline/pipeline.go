// Package pipeline wires the four scoring stages into a per-stream
// session: artifact detection → signal cleaning → windowed feature
// extraction → risk scoring.
//
// One Pipeline owns one patient stream. Sessions share no state, so
// any number of them may run concurrently without coordination; the
// Manager only locks its own stream registry.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/mbd888/vitalflow/internal/artifact"
	"github.com/mbd888/vitalflow/internal/cleaner"
	"github.com/mbd888/vitalflow/internal/features"
	"github.com/mbd888/vitalflow/internal/metrics"
	"github.com/mbd888/vitalflow/internal/scoring"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Config aggregates the stage configurations plus the window geometry.
type Config struct {
	// WindowSize and Stride are in samples: a window of WindowSize
	// cleaned samples is scored every Stride samples once full.
	WindowSize int
	Stride     int
	// HistoryDepth bounds the raw-sample look-back kept for the
	// artifact detector.
	HistoryDepth int

	Artifact artifact.Config
	Cleaner  cleaner.Config
	Scoring  scoring.Config
}

// DefaultConfig matches a 30 s window sliding every 10 s at 1 Hz.
func DefaultConfig() Config {
	return Config{
		WindowSize:   30,
		Stride:       10,
		HistoryDepth: 8,
		Artifact:     artifact.DefaultConfig(),
		Cleaner:      cleaner.DefaultConfig(),
		Scoring:      scoring.DefaultConfig(),
	}
}

// Rejection describes one sample refused at ingestion.
type Rejection struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Reason    string  `json:"reason"`
}

// IngestResult reports what one Ingest call did.
type IngestResult struct {
	Accepted    int                   `json:"accepted"`
	Rejections  []Rejection           `json:"rejections,omitempty"`
	Assessments []*scoring.Assessment `json:"-"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithAssessmentFunc registers a callback invoked (synchronously, under
// the session lock) for every assessment produced.
func WithAssessmentFunc(fn func(*scoring.Assessment)) Option {
	return func(p *Pipeline) { p.onAssess = fn }
}

// Pipeline is one stream session.
type Pipeline struct {
	streamID string
	cfg      Config
	logger   *slog.Logger
	onAssess func(*scoring.Assessment)

	mu        sync.Mutex
	detector  *artifact.Detector
	cleaner   *cleaner.Cleaner
	window    *features.Window
	scorer    *scoring.Scorer
	history   []vitals.Sample
	lastTS    float64
	sinceEval int
	current   *scoring.Assessment
}

// New creates a session for the given stream.
func New(streamID string, cfg Config, opts ...Option) *Pipeline {
	if cfg.HistoryDepth < cfg.Artifact.MotionWindow {
		cfg.HistoryDepth = cfg.Artifact.MotionWindow
	}
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}
	p := &Pipeline{
		streamID: streamID,
		cfg:      cfg,
		logger:   slog.Default(),
		detector: artifact.New(cfg.Artifact),
		cleaner:  cleaner.New(cfg.Cleaner),
		window:   features.NewWindow(cfg.WindowSize),
		scorer:   scoring.NewScorer(cfg.Scoring),
		lastTS:   math.Inf(-1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StreamID returns the session's stream identifier.
func (p *Pipeline) StreamID() string {
	return p.streamID
}

// Ingest consumes raw samples in order. Malformed samples (backwards
// timestamps, implausible values without motion corroboration) are
// rejected per-sample and excluded from the window; the rest advance
// the pipeline and may produce assessments on window slides.
func (p *Pipeline) Ingest(ctx context.Context, samples []vitals.Sample) IngestResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res IngestResult
	for i, s := range samples {
		if err := vitals.Validate(s, p.lastTS, p.cfg.Artifact.PlausibleRanges, p.cfg.Artifact.MotionThreshold); err != nil {
			metrics.SamplesRejected.Inc()
			p.logger.Warn("sample rejected",
				"stream_id", p.streamID,
				"timestamp", s.Timestamp,
				"error", err,
			)
			res.Rejections = append(res.Rejections, Rejection{
				Index:     i,
				Timestamp: s.Timestamp,
				Reason:    err.Error(),
			})
			continue
		}
		res.Accepted++
		metrics.SamplesIngested.Inc()

		flags := p.detector.Flag(s, p.history)
		p.recordFlags(flags)
		p.pushHistory(s)
		p.lastTS = s.Timestamp

		for _, cs := range p.cleaner.Push(s, flags) {
			if a := p.advance(cs); a != nil {
				res.Assessments = append(res.Assessments, a)
			}
		}
	}
	return res
}

// Flush resolves any open dropout gap (end of stream) and scores the
// released samples. Further ingestion is still allowed afterwards.
func (p *Pipeline) Flush() []*scoring.Assessment {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*scoring.Assessment
	for _, cs := range p.cleaner.Flush() {
		if a := p.advance(cs); a != nil {
			out = append(out, a)
		}
	}
	return out
}

// Current returns the latest assessment. ok is false while the stream
// is still pending (window never filled): that state is reported
// explicitly and is never represented as a zero risk score.
func (p *Pipeline) Current() (*scoring.Assessment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	return p.current, true
}

// Reset restores the session to its start-of-stream state.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleaner.Reset()
	p.window.Reset()
	p.scorer.Reset()
	p.history = nil
	p.lastTS = math.Inf(-1)
	p.sinceEval = 0
	p.current = nil
}

// advance pushes one cleaned sample into the window and scores it when
// the window is full and the stride has elapsed. Caller holds p.mu.
func (p *Pipeline) advance(cs vitals.CleanedSample) *scoring.Assessment {
	p.window.Push(cs)
	p.sinceEval++

	if !p.window.Full() || p.sinceEval < p.cfg.Stride {
		return nil
	}
	// The first full window is scored immediately: sinceEval counts all
	// pushes, so it is already past the stride.
	fv, err := features.Extract(p.window.Snapshot(), p.cfg.WindowSize)
	if err != nil {
		return nil
	}
	p.sinceEval = 0

	a := p.scorer.Score(fv)
	a.StreamID = p.streamID
	p.current = a
	metrics.Assessments.WithLabelValues(string(a.State)).Inc()
	if a.Anomaly {
		p.logger.Info("anomaly alert",
			"stream_id", p.streamID,
			"risk_score", a.RiskScore,
			"confidence", a.Confidence,
			"window_end", a.WindowEnd,
		)
	}
	if p.onAssess != nil {
		p.onAssess(a)
	}
	return a
}

func (p *Pipeline) pushHistory(s vitals.Sample) {
	p.history = append(p.history, s)
	if len(p.history) > p.cfg.HistoryDepth {
		p.history = p.history[len(p.history)-p.cfg.HistoryDepth:]
	}
}

func (p *Pipeline) recordFlags(flags vitals.FlagSet) {
	for _, f := range flags {
		if f.IsArtifact {
			metrics.ArtifactsFlagged.WithLabelValues(string(f.Kind)).Inc()
		}
	}
}
