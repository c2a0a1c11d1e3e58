package scoring

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for single-node and test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string][]*Assessment // streamID → assessments, oldest first
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assessments: make(map[string][]*Assessment)}
}

func (s *MemoryStore) Record(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.StreamID] = append(s.assessments[a.StreamID], copyAssessment(a))
	return nil
}

func (s *MemoryStore) ListByStream(ctx context.Context, streamID string, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.assessments[streamID]
	if len(all) == 0 {
		return nil, nil
	}

	start := len(all) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}

	// Most recent first.
	result := make([]*Assessment, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		result = append(result, copyAssessment(all[i]))
	}
	return result, nil
}

func copyAssessment(a *Assessment) *Assessment {
	cp := *a
	cp.ContributingFactors = append([]Factor(nil), a.ContributingFactors...)
	cp.Reasons = append([]string(nil), a.Reasons...)
	return &cp
}
