package database

import (
	"context"
	"sync"

	"latidos/models"
)

// MemoryStore keeps reports for the lifetime of the process.
// Every mutation swaps in a new slice, so lists handed out earlier never change.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []models.Report
}

// NewMemoryStore creates a store holding seed in the given order.
func NewMemoryStore(seed []models.Report) *MemoryStore {
	reports := make([]models.Report, len(seed))
	copy(reports, seed)
	return &MemoryStore{reports: reports}
}

func (s *MemoryStore) List(_ context.Context) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Report, len(s.reports))
	copy(out, s.reports)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, report models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.Report, 0, len(s.reports)+1)
	next = append(next, report)
	next = append(next, s.reports...)
	s.reports = next
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, id string, patch models.ReportPatch) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID != id {
			continue
		}
		next := make([]models.Report, len(s.reports))
		copy(next, s.reports)
		next[i] = patch.Apply(r)
		s.reports = next
		return next[i], nil
	}
	return models.Report{}, ErrNotFound
}
