package report

import (
	"context"
	"log/slog"

	"subleqevo/internal/model"
)

// LogReporter writes one line per generation with the best fitness, then a
// final success or exhaustion line.
type LogReporter struct {
	Logger *slog.Logger
	RunID  string
}

func (r LogReporter) logger() *slog.Logger {
	l := r.Logger
	if l == nil {
		l = slog.Default()
	}
	if r.RunID != "" {
		l = l.With("run_id", r.RunID)
	}
	return l
}

func (r LogReporter) Generation(ctx context.Context, record model.GenerationRecord) error {
	r.logger().InfoContext(ctx, "generation",
		"generation", record.Generation,
		"best_fitness", record.BestFitness,
		"mean_fitness", record.MeanFitness,
		"best_length", record.BestLength,
	)
	return nil
}

func (r LogReporter) Success(ctx context.Context, replicator model.Replicator) error {
	r.logger().InfoContext(ctx, "self-replicating program found",
		"generation", replicator.Generation,
		"length", len(replicator.Genome),
		"steps", replicator.Steps,
		"fitness", replicator.Fitness,
		"genome", []int32(replicator.Genome),
	)
	return nil
}

func (r LogReporter) Exhausted(ctx context.Context, generations int) error {
	r.logger().WarnContext(ctx, "no self-replicating program found", "generations", generations)
	return nil
}
