package evo

import (
	"fmt"
	"math/rand/v2"

	"subleqevo/internal/model"
)

// Selector chooses a parent from the current population.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, population []model.Genome) (model.Genome, error)
}

// UniformSelector draws with replacement over the whole population, ignoring
// fitness.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) PickParent(rng *rand.Rand, population []model.Genome) (model.Genome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return nil, fmt.Errorf("population is empty")
	}
	return population[rng.IntN(len(population))], nil
}
