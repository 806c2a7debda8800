package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/model"
)

func sampleArtifacts(runID string, replicator *model.Replicator) RunArtifacts {
	outcome := model.OutcomeExhausted
	if replicator != nil {
		outcome = model.OutcomeSuccess
	}
	return RunArtifacts{
		Config: RunConfig{
			RunID:             runID,
			Scape:             "replication",
			PopulationSize:    4,
			Generations:       3,
			MutationRate:      0.05,
			MinProgramLength:  6,
			MaxProgramLength:  8,
			MemorySize:        32,
			MaxExecutionSteps: 10,
			Seed:              1,
			Workers:           2,
		},
		History: FitnessHistory{
			Outcome:          outcome,
			BestByGeneration: []int64{1, 2, 100},
			Generations: []model.GenerationRecord{
				{Generation: 0, BestFitness: 1, MeanFitness: 0.25},
				{Generation: 1, BestFitness: 2, MeanFitness: 0.5},
				{Generation: 2, BestFitness: 100, MeanFitness: 25.5},
			},
			FinalBestFitness: 100,
		},
		Replicator: replicator,
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	replicator := &model.Replicator{Generation: 2, Genome: make(model.Genome, 6), FinalMemory: make([]int32, 32), Steps: 10, Fitness: 100}
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-123", replicator))
	require.NoError(t, err)

	for _, file := range []string{configFile, fitnessHistoryFile, fitnessSeriesFile, replicatorFile} {
		_, err := os.Stat(filepath.Join(runDir, file))
		require.NoError(t, err, "expected file %s", file)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	require.NoError(t, err)
	for _, file := range []string{configFile, fitnessHistoryFile, fitnessSeriesFile, replicatorFile} {
		_, err := os.Stat(filepath.Join(exportedDir, file))
		require.NoError(t, err, "expected exported file %s", file)
	}
}

func TestWriteRunArtifactsSkipsReplicatorOnExhaustion(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-x", nil))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(runDir, replicatorFile))
	assert.True(t, os.IsNotExist(err))

	_, ok, err := ReadReplicator(baseDir, "run-x")
	require.NoError(t, err)
	assert.False(t, ok)

	exported, err := ExportRunArtifacts(baseDir, "run-x", t.TempDir())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(exported, replicatorFile))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	require.Error(t, err)
}

func TestExportRunArtifactsMissingRun(t *testing.T) {
	_, err := ExportRunArtifacts(t.TempDir(), "nope", t.TempDir())
	require.Error(t, err)
}

func TestReadBackRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	want := sampleArtifacts("run-read", &model.Replicator{Generation: 2, Genome: model.Genome{0, 0, 0}, Steps: 4, Fitness: 250})
	_, err := WriteRunArtifacts(baseDir, want)
	require.NoError(t, err)

	cfg, ok, err := ReadRunConfig(baseDir, "run-read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Config, cfg)

	history, ok, err := ReadFitnessHistory(baseDir, "run-read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.History, history)

	replicator, ok, err := ReadReplicator(baseDir, "run-read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *want.Replicator, replicator)

	series, ok, err := ReadFitnessSeries(baseDir, "run-read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 100}, series)
}

func TestReadRunConfigMissing(t *testing.T) {
	_, ok, err := ReadRunConfig(t.TempDir(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		Scape:            "replication",
		PopulationSize:   8,
		Generations:      3,
		Seed:             1,
		Outcome:          model.OutcomeExhausted,
		GenerationsRun:   3,
		FinalBestFitness: 4,
		CreatedAtUTC:     "2026-02-10T10:00:00Z",
	}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-2",
		Scape:            "replication",
		PopulationSize:   8,
		Generations:      3,
		Seed:             2,
		Outcome:          model.OutcomeSuccess,
		GenerationsRun:   2,
		FinalBestFitness: 166,
		CreatedAtUTC:     "2026-02-10T11:00:00Z",
	}))

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "run-1", entries[1].RunID)

	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		FinalBestFitness: 9,
		CreatedAtUTC:     "2026-02-10T12:00:00Z",
	}))

	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-1", entries[0].RunID)
	assert.Equal(t, int64(9), entries[0].FinalBestFitness)
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}))

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-b", entries[0].RunID)
}

func TestListRunIndexEmpty(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	require.Error(t, AppendRunIndex(t.TempDir(), RunIndexEntry{}))
}
