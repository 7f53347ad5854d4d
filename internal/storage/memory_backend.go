package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-memory ReportStore, used by tests and by runs with
// persistence disabled.
type MemoryBackend struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryBackend creates a new in-memory report store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{reports: make(map[string]*Report)}
}

// Initialize implements ReportStore.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements ReportStore.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = make(map[string]*Report)
	return nil
}

// SaveReport implements ReportStore.
func (m *MemoryBackend) SaveReport(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

// GetReport implements ReportStore.
func (m *MemoryBackend) GetReport(ctx context.Context, id string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return r, nil
}

// LatestReport implements ReportStore.
func (m *MemoryBackend) LatestReport(ctx context.Context) (*Report, error) {
	reports, _ := m.ListReports(ctx, 1)
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0], nil
}

// ListReports implements ReportStore.
func (m *MemoryBackend) ListReports(ctx context.Context, limit int) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newest(limit), nil
}

// DeleteReport implements ReportStore.
func (m *MemoryBackend) DeleteReport(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(m.reports, id)
	return nil
}

// Prune implements ReportStore.
func (m *MemoryBackend) Prune(ctx context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	all := m.newest(0)
	if len(all) <= keep {
		return 0, nil
	}
	for _, r := range all[keep:] {
		delete(m.reports, r.ID)
	}
	return len(all) - keep, nil
}

// newest must be called with the lock held.
func (m *MemoryBackend) newest(limit int) []*Report {
	out := make([]*Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
