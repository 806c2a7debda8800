package evo

import (
	"errors"
	"math/rand/v2"

	"subleqevo/internal/genotype"
	"subleqevo/internal/model"
)

var ErrEmptyParent = errors.New("crossover parent is empty")

// Crossover builds one child from two parents: a prefix of a up to a random
// split, b's genes from the split up to the shorter length, and fresh random
// genes for any extra length drawn between the two parent lengths.
type Crossover struct {
	MemorySize int
}

func (Crossover) Name() string {
	return "single_point_crossover"
}

// Cross returns the child and the split point used. Parents are only read.
func (c Crossover) Cross(rng *rand.Rand, a, b model.Genome) (model.Genome, int, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, 0, ErrEmptyParent
	}
	minLen, maxLen := min(len(a), len(b)), max(len(a), len(b))
	split := rng.IntN(minLen)
	childLen := minLen + rng.IntN(maxLen-minLen+1)

	child := make(model.Genome, childLen)
	copy(child[:split], a[:split])
	copy(child[split:minLen], b[split:minLen])
	for i := minLen; i < childLen; i++ {
		child[i] = genotype.RandomGene(rng, c.MemorySize)
	}
	return child, split, nil
}
