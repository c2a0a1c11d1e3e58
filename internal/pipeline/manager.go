package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mbd888/vitalflow/internal/metrics"
	"github.com/mbd888/vitalflow/internal/scoring"
)

// Manager owns the set of live stream sessions. Sessions are created
// lazily on first ingest and dropped when the stream ends; every
// assessment any session produces is recorded to the audit store
// (best-effort, asynchronously) and handed to the broadcast callback.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	store     scoring.Store
	broadcast func(*scoring.Assessment)

	mu      sync.RWMutex
	streams map[string]*Pipeline
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets a custom logger for the manager and its sessions.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithStore sets the assessment audit store.
func WithStore(store scoring.Store) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithBroadcast registers a callback for every produced assessment
// (used for the live websocket feed).
func WithBroadcast(fn func(*scoring.Assessment)) ManagerOption {
	return func(m *Manager) { m.broadcast = fn }
}

// NewManager creates an empty stream registry.
func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  slog.Default(),
		streams: make(map[string]*Pipeline),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for a stream, if it exists.
func (m *Manager) Get(streamID string) (*Pipeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.streams[streamID]
	return p, ok
}

// GetOrCreate returns the stream's session, creating it on first use.
func (m *Manager) GetOrCreate(streamID string) *Pipeline {
	m.mu.RLock()
	p, ok := m.streams[streamID]
	m.mu.RUnlock()
	if ok {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.streams[streamID]; ok {
		return p
	}
	p = New(streamID, m.cfg,
		WithLogger(m.logger),
		WithAssessmentFunc(m.dispatch),
	)
	m.streams[streamID] = p
	metrics.ActiveStreams.Set(float64(len(m.streams)))
	m.logger.Info("stream session created", "stream_id", streamID)
	return p
}

// Delete ends a stream session, dropping its cleaner and window state.
func (m *Manager) Delete(streamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[streamID]; !ok {
		return false
	}
	delete(m.streams, streamID)
	metrics.ActiveStreams.Set(float64(len(m.streams)))
	m.logger.Info("stream session removed", "stream_id", streamID)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// dispatch records an assessment to the audit store (best-effort) and
// forwards it to the broadcast callback.
func (m *Manager) dispatch(a *scoring.Assessment) {
	if m.store != nil {
		go func() {
			if err := m.store.Record(context.Background(), a); err != nil {
				m.logger.Warn("failed to record assessment",
					"assessment_id", a.ID,
					"stream_id", a.StreamID,
					"error", err,
				)
			}
		}()
	}
	if m.broadcast != nil {
		m.broadcast(a)
	}
}
