// Package subleqevo is the programmatic entry point for searching
// self-replicating programs and inspecting finished runs.
package subleqevo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"subleqevo/internal/config"
	"subleqevo/internal/evo"
	"subleqevo/internal/genotype"
	"subleqevo/internal/model"
	"subleqevo/internal/report"
	"subleqevo/internal/scape"
	"subleqevo/internal/stats"
	"subleqevo/internal/storage"
	"subleqevo/internal/vm"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "subleqevo.db"

	// fixed width so timestamps order lexically
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
	// Logger receives per-generation progress. Nil uses slog.Default.
	Logger *slog.Logger
	// Registerer, when set, receives the run metrics collectors.
	Registerer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *report.MetricsReporter

	initOnce sync.Once
	initErr  error

	benchmarksDir string
	exportsDir    string
}

type RunRequest struct {
	Config config.Config
	// Reporter, when set, observes the run alongside the client's own
	// logging, metrics and persistence.
	Reporter evo.Reporter
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Outcome          model.Outcome
	BestByGeneration []int64
	GenerationsRun   int
	FinalBestFitness int64
	Evaluations      int64
	Replicator       *model.Replicator
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Seed             int64
	Population       int
	Generations      int
	Outcome          model.Outcome
	GenerationsRun   int
	FinalBestFitness int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ReplicatorRequest struct {
	RunID  string
	Latest bool
}

type ExecuteRequest struct {
	Genome            model.Genome
	MemorySize        int
	MaxExecutionSteps int
}

type ExecuteResult struct {
	Memory     []int32
	Steps      int
	BestMatch  int
	Fitness    int64
	Replicates bool
	// Halted is false when execution stopped at the step cap.
	Halted bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	client := &Client{
		store:         store,
		logger:        logger,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}
	if opts.Registerer != nil {
		client.metrics = report.NewMetricsReporter(opts.Registerer, 0)
	}
	return client, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Run validates cfg, evolves a fresh population and persists the outcome.
// Running out of generations is reported through RunSummary.Outcome.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	now := time.Now().UTC()

	machine, err := vm.New(cfg.MemorySize, cfg.MaxExecutionSteps)
	if err != nil {
		return RunSummary{}, err
	}
	fitness := scape.NewReplication(machine)

	recorder := &report.Recorder{}
	reporters := report.Multi{recorder, report.LogReporter{Logger: c.logger, RunID: runID}}
	if c.metrics != nil {
		reporters = append(reporters, c.metrics.ForPopulation(cfg.PopulationSize))
	}
	if req.Reporter != nil {
		reporters = append(reporters, req.Reporter)
	}

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape:     fitness,
		Mutation:  evo.PointMutation{Rate: cfg.MutationRate, MemorySize: cfg.MemorySize},
		Crossover: evo.Crossover{MemorySize: cfg.MemorySize},
		Reporter:  reporters,
		Bounds: genotype.Bounds{
			MinLength:  cfg.MinProgramLength,
			MaxLength:  cfg.MaxProgramLength,
			MemorySize: cfg.MemorySize,
		},
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		Workers:        cfg.Workers,
		Seed:           cfg.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	c.logger.InfoContext(ctx, "run started",
		"run_id", runID,
		"population_size", cfg.PopulationSize,
		"generations", cfg.Generations,
		"seed", cfg.Seed,
	)
	result, err := monitor.Run(ctx, nil)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	history := recorder.History()
	bestByGeneration := recorder.BestByGeneration()
	var finalBest int64
	if n := len(bestByGeneration); n > 0 {
		finalBest = bestByGeneration[n-1]
	}

	record := model.RunRecord{
		VersionedRecord:   storage.Versioned(),
		ID:                runID,
		Seed:              cfg.Seed,
		PopulationSize:    cfg.PopulationSize,
		Generations:       cfg.Generations,
		MutationRate:      cfg.MutationRate,
		MinProgramLength:  cfg.MinProgramLength,
		MaxProgramLength:  cfg.MaxProgramLength,
		MemorySize:        cfg.MemorySize,
		MaxExecutionSteps: cfg.MaxExecutionSteps,
		Outcome:           result.Outcome,
		GenerationsRun:    len(history),
		FinalBestFitness:  finalBest,
		CreatedAtUTC:      now.Format(timestampLayout),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveGenerationHistory(ctx, runID, history); err != nil {
		return RunSummary{}, fmt.Errorf("save generation history %s: %w", runID, err)
	}
	var replicator *model.Replicator
	if found, ok := recorder.Replicator(); ok {
		found.VersionedRecord = storage.Versioned()
		replicator = &found
		if err := c.store.SaveReplicator(ctx, runID, found); err != nil {
			return RunSummary{}, fmt.Errorf("save replicator %s: %w", runID, err)
		}
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:             runID,
			Scape:             fitness.Name(),
			PopulationSize:    cfg.PopulationSize,
			Generations:       cfg.Generations,
			MutationRate:      cfg.MutationRate,
			MinProgramLength:  cfg.MinProgramLength,
			MaxProgramLength:  cfg.MaxProgramLength,
			MemorySize:        cfg.MemorySize,
			MaxExecutionSteps: cfg.MaxExecutionSteps,
			Seed:              cfg.Seed,
			Workers:           cfg.Workers,
		},
		History: stats.FitnessHistory{
			Outcome:          result.Outcome,
			BestByGeneration: bestByGeneration,
			Generations:      history,
			FinalBestFitness: finalBest,
		},
		Replicator: replicator,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:            runID,
		Scape:            fitness.Name(),
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		Outcome:          result.Outcome,
		GenerationsRun:   len(history),
		FinalBestFitness: finalBest,
		CreatedAtUTC:     record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Outcome:          result.Outcome,
		BestByGeneration: bestByGeneration,
		GenerationsRun:   len(history),
		FinalBestFitness: finalBest,
		Evaluations:      result.Evaluations,
		Replicator:       replicator,
	}, nil
}

// Runs lists finished runs newest first. The store is authoritative; the
// artifact index covers runs recorded by other processes or an earlier
// in-memory store.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if len(records) > req.Limit {
			records = records[:req.Limit]
		}
		out := make([]RunItem, 0, len(records))
		for _, r := range records {
			out = append(out, RunItem{
				RunID:            r.ID,
				CreatedAtUTC:     r.CreatedAtUTC,
				Seed:             r.Seed,
				Population:       r.PopulationSize,
				Generations:      r.Generations,
				Outcome:          r.Outcome,
				GenerationsRun:   r.GenerationsRun,
				FinalBestFitness: r.FinalBestFitness,
			})
		}
		return out, nil
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			Outcome:          e.Outcome,
			GenerationsRun:   e.GenerationsRun,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory returns per-generation records for a run, from the store
// when it has them and from the run's artifacts otherwise.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]model.GenerationRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetGenerationHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		artifact, found, err := stats.ReadFitnessHistory(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: fitness history for run %s", storage.ErrNotFound, runID)
		}
		history = artifact.Generations
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return slices.Clone(history), nil
}

// Replicator returns the verified program of a successful run.
func (c *Client) Replicator(ctx context.Context, req ReplicatorRequest) (model.Replicator, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.Replicator{}, err
	}
	if err := c.Init(ctx); err != nil {
		return model.Replicator{}, err
	}

	replicator, ok, err := c.store.GetReplicator(ctx, runID)
	if err != nil {
		return model.Replicator{}, err
	}
	if ok {
		return replicator, nil
	}
	replicator, ok, err = stats.ReadReplicator(c.benchmarksDir, runID)
	if err != nil {
		return model.Replicator{}, err
	}
	if !ok {
		return model.Replicator{}, fmt.Errorf("%w: replicator for run %s", storage.ErrNotFound, runID)
	}
	return replicator, nil
}

// Execute runs one genome on a fresh machine and scores it.
func (c *Client) Execute(_ context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if len(req.Genome) == 0 {
		return ExecuteResult{}, errors.New("genome is required")
	}
	machine, err := vm.New(req.MemorySize, req.MaxExecutionSteps)
	if err != nil {
		return ExecuteResult{}, err
	}
	if len(req.Genome) > machine.MemorySize() {
		return ExecuteResult{}, fmt.Errorf("genome length %d exceeds memory size %d", len(req.Genome), machine.MemorySize())
	}
	fitness := scape.NewReplication(machine)

	score := fitness.Evaluate(req.Genome)
	replicates, res := fitness.Verify(req.Genome)
	return ExecuteResult{
		Memory:     res.Memory,
		Steps:      res.Steps,
		BestMatch:  score.BestMatch,
		Fitness:    int64(score.Fitness),
		Replicates: replicates,
		Halted:     res.Halted,
	}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}
