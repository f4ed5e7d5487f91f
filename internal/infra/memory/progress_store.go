package memory

import (
	"context"
	"sync"

	"gauntlet-game-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore. Each
// team's record carries its own mutex so updates are serialized per team
// without a global write lock.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]*progressEntry
}

type progressEntry struct {
	mu sync.Mutex
	p  domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]*progressEntry)}
}

func (s *ProgressStore) GetOrCreate(_ context.Context, p domain.Progress) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.records[p.TeamID]; ok {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return entry.p.Clone(), nil
	}
	s.records[p.TeamID] = &progressEntry{p: p.Clone()}
	return p.Clone(), nil
}

func (s *ProgressStore) Get(_ context.Context, teamID string) (domain.Progress, error) {
	entry, ok := s.entry(teamID)
	if !ok {
		return domain.Progress{}, domain.ErrProgressNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.p.Clone(), nil
}

func (s *ProgressStore) List(_ context.Context) ([]domain.Progress, error) {
	s.mu.RLock()
	entries := make([]*progressEntry, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	out := make([]domain.Progress, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, entry.p.Clone())
		entry.mu.Unlock()
	}
	return out, nil
}

// Update applies mutate to a copy of the record under the per-team lock and
// commits it only when mutate succeeds.
func (s *ProgressStore) Update(_ context.Context, teamID string, mutate func(*domain.Progress) error) (domain.Progress, error) {
	entry, ok := s.entry(teamID)
	if !ok {
		return domain.Progress{}, domain.ErrProgressNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.p.Clone()
	if err := mutate(&working); err != nil {
		return domain.Progress{}, err
	}
	entry.p = working
	return working.Clone(), nil
}

func (s *ProgressStore) entry(teamID string) (*progressEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[teamID]
	return entry, ok
}
