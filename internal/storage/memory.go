package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"subleqevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	order       []string
	history     map[string][]model.GenerationRecord
	replicators map[string]model.Replicator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.order = nil
	s.history = make(map[string][]model.GenerationRecord)
	s.replicators = make(map[string]model.Replicator)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	if _, ok := s.runs[run.ID]; !ok {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return model.RunRecord{}, false, err
	}
	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	slices.SortStableFunc(out, func(a, b model.RunRecord) int {
		// RFC3339 timestamps order lexically
		switch {
		case a.CreatedAtUTC > b.CreatedAtUTC:
			return -1
		case a.CreatedAtUTC < b.CreatedAtUTC:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func (s *MemoryStore) SaveGenerationHistory(_ context.Context, runID string, history []model.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	s.history[runID] = slices.Clone(history)
	return nil
}

func (s *MemoryStore) GetGenerationHistory(_ context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(history), true, nil
}

func (s *MemoryStore) SaveReplicator(_ context.Context, runID string, replicator model.Replicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	s.replicators[runID] = cloneReplicator(replicator)
	return nil
}

func (s *MemoryStore) GetReplicator(_ context.Context, runID string) (model.Replicator, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return model.Replicator{}, false, err
	}
	replicator, ok := s.replicators[runID]
	if !ok {
		return model.Replicator{}, false, nil
	}
	return cloneReplicator(replicator), true, nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func cloneReplicator(r model.Replicator) model.Replicator {
	r.Genome = r.Genome.Clone()
	r.FinalMemory = slices.Clone(r.FinalMemory)
	return r
}
