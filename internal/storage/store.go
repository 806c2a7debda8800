package storage

import (
	"context"
	"errors"

	"subleqevo/internal/model"
)

var ErrNotFound = errors.New("record not found")

// Store persists run reports. Populations are never stored: every run starts
// from a fresh random population.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveGenerationHistory(ctx context.Context, runID string, history []model.GenerationRecord) error
	GetGenerationHistory(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
	SaveReplicator(ctx context.Context, runID string, replicator model.Replicator) error
	GetReplicator(ctx context.Context, runID string) (model.Replicator, bool, error)
}
