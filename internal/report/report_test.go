package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/evo"
	"subleqevo/internal/model"
)

var (
	_ evo.Reporter = Multi(nil)
	_ evo.Reporter = (*Recorder)(nil)
	_ evo.Reporter = LogReporter{}
	_ evo.Reporter = (*MetricsReporter)(nil)
)

type failingReporter struct {
	evo.NoopReporter
	err error
}

func (f failingReporter) Generation(context.Context, model.GenerationRecord) error { return f.err }

func TestRecorderKeepsHistoryInOrder(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	for i, best := range []int64{1, 3, 2} {
		require.NoError(t, rec.Generation(ctx, model.GenerationRecord{Generation: i, BestFitness: best}))
	}
	require.NoError(t, rec.Exhausted(ctx, 3))

	assert.Equal(t, []int64{1, 3, 2}, rec.BestByGeneration())
	assert.Len(t, rec.History(), 3)
	_, found := rec.Replicator()
	assert.False(t, found)
}

func TestRecorderCopiesReplicator(t *testing.T) {
	rec := &Recorder{}
	genome := model.Genome{1, 2, 3}
	require.NoError(t, rec.Success(context.Background(), model.Replicator{Genome: genome, FinalMemory: []int32{1, 2, 3, 1, 2, 3}}))
	genome[0] = 9

	replicator, ok := rec.Replicator()
	require.True(t, ok)
	assert.Equal(t, model.Genome{1, 2, 3}, replicator.Genome)
}

func TestMultiForwardsToEveryReporter(t *testing.T) {
	ctx := context.Background()
	a, b := &Recorder{}, &Recorder{}
	multi := Multi{a, b}

	require.NoError(t, multi.Generation(ctx, model.GenerationRecord{BestFitness: 4}))
	require.NoError(t, multi.Success(ctx, model.Replicator{Generation: 0}))

	assert.Equal(t, []int64{4}, a.BestByGeneration())
	assert.Equal(t, []int64{4}, b.BestByGeneration())
	_, ok := b.Replicator()
	assert.True(t, ok)
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	rec := &Recorder{}
	multi := Multi{failingReporter{err: boom}, rec}

	err := multi.Generation(context.Background(), model.GenerationRecord{BestFitness: 1})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1}, rec.BestByGeneration(), "later reporters still run")
}

func TestLogReporterWritesGenerationLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := LogReporter{Logger: logger, RunID: "run-1"}
	ctx := context.Background()

	require.NoError(t, r.Generation(ctx, model.GenerationRecord{Generation: 2, BestFitness: 7}))
	require.NoError(t, r.Exhausted(ctx, 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "generation=2")
	assert.Contains(t, lines[0], "best_fitness=7")
	assert.Contains(t, lines[0], "run_id=run-1")
	assert.Contains(t, lines[1], "level=WARN")
	assert.Contains(t, lines[1], "generations=3")
}

func TestLogReporterWritesReplicator(t *testing.T) {
	var buf bytes.Buffer
	r := LogReporter{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, r.Success(context.Background(), model.Replicator{Generation: 5, Genome: model.Genome{0, -1, 2}, Steps: 10, Fitness: 100}))

	out := buf.String()
	assert.Contains(t, out, `"generation":5`)
	assert.Contains(t, out, `"genome":[0,-1,2]`)
	assert.Contains(t, out, `"fitness":100`)
}

func TestMetricsReporterTracksProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsReporter(reg, 50)
	ctx := context.Background()

	require.NoError(t, m.Generation(ctx, model.GenerationRecord{Generation: 0, BestFitness: 2, MeanFitness: 0.5, BestLength: 8}))
	require.NoError(t, m.Generation(ctx, model.GenerationRecord{Generation: 1, BestFitness: 5, MeanFitness: 1.5, BestLength: 9}))
	require.NoError(t, m.Success(ctx, model.Replicator{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generation))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.bestFitness))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.meanFitness))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.bestLength))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.evaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.outcomes.WithLabelValues("exhausted")))

	count, err := testutil.GatherAndCount(reg, "subleqevo_best_fitness", "subleqevo_evaluations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsReporterForPopulationSharesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	base := NewMetricsReporter(reg, 1)
	ctx := context.Background()

	require.NoError(t, base.Generation(ctx, model.GenerationRecord{}))
	require.NoError(t, base.ForPopulation(10).Generation(ctx, model.GenerationRecord{}))

	assert.Equal(t, 11.0, testutil.ToFloat64(base.evaluations))
}

func TestMetricsReporterRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetricsReporter(reg, 1)
	assert.Panics(t, func() { NewMetricsReporter(reg, 1) })
}
