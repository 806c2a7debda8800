package evo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"subleqevo/internal/genotype"
	"subleqevo/internal/model"
	"subleqevo/internal/scape"
)

type ScoredGenome struct {
	Genome model.Genome
	Score  scape.Score
}

type RunResult struct {
	Outcome          model.Outcome
	BestByGeneration []int64
	Generations      []model.GenerationRecord
	Replicator       *model.Replicator
	Evaluations      int64
}

type MonitorConfig struct {
	Scape          scape.Scape
	Mutation       Operator
	Crossover      Crossover
	Selector       Selector
	Reporter       Reporter
	Bounds         genotype.Bounds
	PopulationSize int
	Generations    int
	Workers        int
	Seed           int64
}

// PopulationMonitor drives the generational loop. The monitor's own random
// stream is only touched from the Run goroutine; parallel breeding gets one
// derived stream per child.
type PopulationMonitor struct {
	cfg MonitorConfig
	rng *rand.Rand
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.Mutation == nil {
		return nil, fmt.Errorf("mutation operator is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Crossover.MemorySize <= 0 {
		cfg.Crossover.MemorySize = cfg.Bounds.MemorySize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Selector == nil {
		cfg.Selector = UniformSelector{}
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NoopReporter{}
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15)),
	}, nil
}

// Run evolves initial (or a freshly constructed population when initial is
// nil) until a replicator is verified or the generation budget is spent.
// Exhaustion is a normal outcome, not an error.
func (m *PopulationMonitor) Run(ctx context.Context, initial []model.Genome) (RunResult, error) {
	population := initial
	if population == nil {
		var err error
		population, err = genotype.ConstructSeedPopulation(m.rng, m.cfg.PopulationSize, m.cfg.Bounds)
		if err != nil {
			return RunResult{}, err
		}
	} else {
		if len(initial) != m.cfg.PopulationSize {
			return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
		}
		population = make([]model.Genome, len(initial))
		for i := range initial {
			population[i] = initial[i].Clone()
		}
	}

	result := RunResult{
		BestByGeneration: make([]int64, 0, m.cfg.Generations),
		Generations:      make([]model.GenerationRecord, 0, m.cfg.Generations),
	}

	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored, err := m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
		result.Evaluations += int64(len(scored))

		bestIdx := bestIndex(scored)
		record := summarizeGeneration(scored, gen, bestIdx)
		result.BestByGeneration = append(result.BestByGeneration, record.BestFitness)
		result.Generations = append(result.Generations, record)
		if err := m.cfg.Reporter.Generation(ctx, record); err != nil {
			return RunResult{}, fmt.Errorf("report generation %d: %w", gen, err)
		}

		best := scored[bestIdx]
		if ok, res := m.cfg.Scape.Verify(best.Genome); ok {
			replicator := model.Replicator{
				Generation:  gen,
				Genome:      best.Genome.Clone(),
				FinalMemory: res.Memory,
				Steps:       res.Steps,
				Fitness:     int64(best.Score.Fitness),
			}
			result.Outcome = model.OutcomeSuccess
			result.Replicator = &replicator
			if err := m.cfg.Reporter.Success(ctx, replicator); err != nil {
				return RunResult{}, fmt.Errorf("report success: %w", err)
			}
			return result, nil
		}

		population, err = m.nextGeneration(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
	}

	result.Outcome = model.OutcomeExhausted
	if err := m.cfg.Reporter.Exhausted(ctx, m.cfg.Generations); err != nil {
		return RunResult{}, fmt.Errorf("report exhaustion: %w", err)
	}
	return result, nil
}

// evaluatePopulation scores every genome in parallel. Results are aligned
// with population indices regardless of completion order.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []model.Genome) ([]ScoredGenome, error) {
	scored := make([]ScoredGenome, len(population))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = ScoredGenome{
				Genome: population[i],
				Score:  m.cfg.Scape.Evaluate(population[i]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// nextGeneration breeds a full replacement population. The previous
// population is only read; the new slice is returned whole.
func (m *PopulationMonitor) nextGeneration(ctx context.Context, population []model.Genome) ([]model.Genome, error) {
	size := m.cfg.PopulationSize
	seeds := make([][2]uint64, size)
	for i := range seeds {
		seeds[i] = [2]uint64{m.rng.Uint64(), m.rng.Uint64()}
	}

	next := make([]model.Genome, size)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i := range next {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i][0], seeds[i][1]))
			child, err := m.breed(rng, population)
			if err != nil {
				return fmt.Errorf("breed child %d: %w", i, err)
			}
			next[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *PopulationMonitor) breed(rng *rand.Rand, population []model.Genome) (model.Genome, error) {
	a, err := m.cfg.Selector.PickParent(rng, population)
	if err != nil {
		return nil, err
	}
	b, err := m.cfg.Selector.PickParent(rng, population)
	if err != nil {
		return nil, err
	}
	child, _, err := m.cfg.Crossover.Cross(rng, a, b)
	if err != nil {
		return nil, err
	}
	return m.cfg.Mutation.Apply(rng, child), nil
}

// bestIndex returns the first index holding the maximum fitness.
func bestIndex(scored []ScoredGenome) int {
	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Score.Fitness > scored[best].Score.Fitness {
			best = i
		}
	}
	return best
}

func summarizeGeneration(scored []ScoredGenome, generation, bestIdx int) model.GenerationRecord {
	if len(scored) == 0 {
		return model.GenerationRecord{Generation: generation}
	}

	var totalFitness, totalLength float64
	minFitness := scored[0].Score.Fitness
	for _, item := range scored {
		totalFitness += float64(item.Score.Fitness)
		totalLength += float64(len(item.Genome))
		if item.Score.Fitness < minFitness {
			minFitness = item.Score.Fitness
		}
	}

	n := float64(len(scored))
	return model.GenerationRecord{
		Generation:  generation,
		BestFitness: int64(scored[bestIdx].Score.Fitness),
		MeanFitness: totalFitness / n,
		MinFitness:  int64(minFitness),
		BestLength:  len(scored[bestIdx].Genome),
		MeanLength:  totalLength / n,
	}
}
