package genotype

import (
	"fmt"
	"math/rand/v2"

	"subleqevo/internal/model"
)

// Bounds describes the gene alphabet and the admissible genome lengths.
type Bounds struct {
	MinLength  int
	MaxLength  int
	MemorySize int
}

func (b Bounds) Validate() error {
	if b.MinLength <= 0 {
		return fmt.Errorf("min length must be > 0")
	}
	if b.MaxLength < b.MinLength {
		return fmt.Errorf("max length must be >= min length: min=%d max=%d", b.MinLength, b.MaxLength)
	}
	if b.MemorySize <= 0 {
		return fmt.Errorf("memory size must be > 0")
	}
	if b.MaxLength > b.MemorySize {
		return fmt.Errorf("max length must fit in memory: max=%d memory=%d", b.MaxLength, b.MemorySize)
	}
	return nil
}

// RandomGene draws uniformly from [-memorySize, memorySize).
func RandomGene(rng *rand.Rand, memorySize int) int32 {
	return int32(rng.IntN(2*memorySize) - memorySize)
}

func RandomGenome(rng *rand.Rand, length, memorySize int) model.Genome {
	genome := make(model.Genome, length)
	for i := range genome {
		genome[i] = RandomGene(rng, memorySize)
	}
	return genome
}

// ConstructGenome draws a length uniformly from [MinLength, MaxLength] and fills it.
func ConstructGenome(rng *rand.Rand, bounds Bounds) model.Genome {
	length := bounds.MinLength + rng.IntN(bounds.MaxLength-bounds.MinLength+1)
	return RandomGenome(rng, length, bounds.MemorySize)
}

func ConstructSeedPopulation(rng *rand.Rand, size int, bounds Bounds) ([]model.Genome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	population := make([]model.Genome, size)
	for i := range population {
		population[i] = ConstructGenome(rng, bounds)
	}
	return population, nil
}
