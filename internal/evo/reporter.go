package evo

import (
	"context"

	"subleqevo/internal/model"
)

// Reporter receives the externally visible events of a run, in order: one
// Generation call per evaluated generation, then exactly one of Success or
// Exhausted.
type Reporter interface {
	Generation(ctx context.Context, record model.GenerationRecord) error
	Success(ctx context.Context, replicator model.Replicator) error
	Exhausted(ctx context.Context, generations int) error
}

type NoopReporter struct{}

func (NoopReporter) Generation(context.Context, model.GenerationRecord) error { return nil }
func (NoopReporter) Success(context.Context, model.Replicator) error          { return nil }
func (NoopReporter) Exhausted(context.Context, int) error                     { return nil }
