package evo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/model"
)

func TestUniformSelectorCoversWholePopulation(t *testing.T) {
	population := []model.Genome{{0}, {1}, {2}, {3}, {4}}
	rng := rand.New(rand.NewPCG(42, 0))
	counts := map[int32]int{}

	for i := 0; i < 5000; i++ {
		parent, err := UniformSelector{}.PickParent(rng, population)
		require.NoError(t, err)
		counts[parent[0]]++
	}

	require.Len(t, counts, len(population))
	for v, n := range counts {
		assert.InDelta(t, 1000, n, 150, "value %d", v)
	}
}

func TestUniformSelectorErrors(t *testing.T) {
	_, err := UniformSelector{}.PickParent(nil, []model.Genome{{1}})
	require.Error(t, err)
	_, err = UniformSelector{}.PickParent(rand.New(rand.NewPCG(1, 0)), nil)
	require.Error(t, err)
}
