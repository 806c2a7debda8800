package evo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/genotype"
	"subleqevo/internal/model"
)

func TestCrossoverLengthAndPrefixProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	op := Crossover{MemorySize: 64}

	for i := 0; i < 2000; i++ {
		a := genotype.RandomGenome(rng, 1+rng.IntN(20), 64)
		b := genotype.RandomGenome(rng, 1+rng.IntN(20), 64)
		aBefore, bBefore := a.Clone(), b.Clone()
		minLen, maxLen := min(len(a), len(b)), max(len(a), len(b))

		child, split, err := op.Cross(rng, a, b)
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(child), minLen)
		require.LessOrEqual(t, len(child), maxLen)
		require.GreaterOrEqual(t, split, 0)
		require.Less(t, split, minLen)
		require.Equal(t, a[:split], child[:split])
		require.Equal(t, b[split:minLen], child[split:minLen])
		for _, v := range child[minLen:] {
			require.GreaterOrEqual(t, v, int32(-64))
			require.Less(t, v, int32(64))
		}
		require.Equal(t, aBefore, a, "parent a modified")
		require.Equal(t, bBefore, b, "parent b modified")
	}
}

func TestCrossoverChildDoesNotAliasParents(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 0))
	a := model.Genome{1, 2, 3, 4}
	b := model.Genome{5, 6, 7, 8}

	child, _, err := Crossover{MemorySize: 16}.Cross(rng, a, b)
	require.NoError(t, err)
	for i := range child {
		child[i] = 100
	}
	assert.Equal(t, model.Genome{1, 2, 3, 4}, a)
	assert.Equal(t, model.Genome{5, 6, 7, 8}, b)
}

func TestCrossoverRejectsEmptyParent(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	_, _, err := Crossover{MemorySize: 8}.Cross(rng, model.Genome{}, model.Genome{1})
	require.ErrorIs(t, err, ErrEmptyParent)
}

func TestPointMutationPreservesLength(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 0))
	op := PointMutation{Rate: 0.5, MemorySize: 32}

	for i := 0; i < 500; i++ {
		genome := genotype.RandomGenome(rng, 1+rng.IntN(30), 32)
		n := len(genome)
		mutated := op.Apply(rng, genome)
		require.Len(t, mutated, n)
		for _, v := range mutated {
			require.GreaterOrEqual(t, v, int32(-32))
			require.Less(t, v, int32(32))
		}
	}
}

func TestPointMutationRateBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 0))
	genome := model.Genome{1000, 1000, 1000, 1000, 1000, 1000}

	unchanged := PointMutation{Rate: 0, MemorySize: 16}.Apply(rng, genome.Clone())
	assert.Equal(t, genome, unchanged)

	resampled := PointMutation{Rate: 1, MemorySize: 16}.Apply(rng, genome.Clone())
	for _, v := range resampled {
		assert.NotEqual(t, int32(1000), v)
	}
}

func TestPointMutationRateIsPerGene(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 0))
	op := PointMutation{Rate: 0.05, MemorySize: 1 << 20}
	genome := make(model.Genome, 100000)
	for i := range genome {
		genome[i] = 1 << 24
	}

	op.Apply(rng, genome)

	changed := 0
	for _, v := range genome {
		if v != 1<<24 {
			changed++
		}
	}
	assert.InDelta(t, 5000, changed, 400)
}
