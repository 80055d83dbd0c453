// Package memory provides in-memory store implementations for tests and for
// running the remote validator without a database.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aurabx/harmony-dsl/ports"
)

// DefaultCapacity is the number of reports kept when none is given.
const DefaultCapacity = 1000

// ReportStore is an in-memory implementation of ports.ReportStore. It keeps
// the most recent reports up to its capacity and drops the oldest.
type ReportStore struct {
	mu       sync.RWMutex
	capacity int
	reports  map[string]ports.StoredReport
	order    []string // IDs, oldest first
}

// NewReportStore creates a store holding at most capacity reports. A
// non-positive capacity selects DefaultCapacity.
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ReportStore{
		capacity: capacity,
		reports:  make(map[string]ports.StoredReport),
	}
}

// Save stores a report, replacing one with the same ID.
func (s *ReportStore) Save(ctx context.Context, r ports.StoredReport) error {
	if r.ID == "" {
		return errors.New("save report: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.reports[r.ID] = r

	for len(s.order) > s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (ports.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return ports.StoredReport{}, ports.ErrNotFound
	}
	return r, nil
}

// List returns the most recent reports, newest first.
func (s *ReportStore) List(ctx context.Context, domain string, limit int) ([]ports.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.StoredReport
	for _, r := range s.reports {
		if domain == "" || r.Domain == domain {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len returns the number of stored reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Ensure interface compliance.
var _ ports.ReportStore = (*ReportStore)(nil)
