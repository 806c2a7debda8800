// Package report turns run events into log lines, metrics and in-memory
// history. Every type here satisfies evo.Reporter.
package report

import (
	"context"
	"errors"
	"slices"
	"sync"

	"subleqevo/internal/evo"
	"subleqevo/internal/model"
)

// Multi forwards each event to every reporter in order and joins their errors.
type Multi []evo.Reporter

func (m Multi) Generation(ctx context.Context, record model.GenerationRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Generation(ctx, record))
	}
	return errors.Join(errs...)
}

func (m Multi) Success(ctx context.Context, replicator model.Replicator) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Success(ctx, replicator))
	}
	return errors.Join(errs...)
}

func (m Multi) Exhausted(ctx context.Context, generations int) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Exhausted(ctx, generations))
	}
	return errors.Join(errs...)
}

// Recorder keeps everything it is told so a run can be persisted afterwards.
type Recorder struct {
	mu         sync.Mutex
	history    []model.GenerationRecord
	replicator *model.Replicator
}

func (r *Recorder) Generation(_ context.Context, record model.GenerationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, record)
	return nil
}

func (r *Recorder) Success(_ context.Context, replicator model.Replicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replicator.Genome = replicator.Genome.Clone()
	replicator.FinalMemory = slices.Clone(replicator.FinalMemory)
	r.replicator = &replicator
	return nil
}

// Exhausted records nothing; the history length already is the generation count.
func (r *Recorder) Exhausted(context.Context, int) error {
	return nil
}

func (r *Recorder) History() []model.GenerationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}

// BestByGeneration is the per-generation best fitness, in generation order.
func (r *Recorder) BestByGeneration() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.history))
	for i, record := range r.history {
		out[i] = record.BestFitness
	}
	return out
}

func (r *Recorder) Replicator() (model.Replicator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replicator == nil {
		return model.Replicator{}, false
	}
	return *r.replicator, true
}
