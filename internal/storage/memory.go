package storage

import (
	"context"
	"sort"
	"sync"

	"percept/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	units       map[string]model.UnitSnapshot
	runs        map[string]model.TrainingRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.units = make(map[string]model.UnitSnapshot)
	s.runs = make(map[string]model.TrainingRun)
	return nil
}

func (s *MemoryStore) SaveUnit(_ context.Context, snapshot model.UnitSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units[snapshot.ID] = snapshot
	return nil
}

func (s *MemoryStore) GetUnit(_ context.Context, id string) (model.UnitSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.units[id]
	return snapshot, ok, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.TrainingRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.TrainingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TrainingRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
