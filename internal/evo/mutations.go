package evo

import (
	"math/rand/v2"

	"subleqevo/internal/genotype"
	"subleqevo/internal/model"
)

// PointMutation resamples each gene independently with probability Rate from
// the same distribution used at construction.
type PointMutation struct {
	Rate       float64
	MemorySize int
}

func (PointMutation) Name() string {
	return "point_mutation"
}

func (o PointMutation) Apply(rng *rand.Rand, genome model.Genome) model.Genome {
	for i := range genome {
		if rng.Float64() < o.Rate {
			genome[i] = genotype.RandomGene(rng, o.MemorySize)
		}
	}
	return genome
}
