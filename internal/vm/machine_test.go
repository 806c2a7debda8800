package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/model"
)

func newMachine(t *testing.T, memorySize, maxSteps int) *Machine {
	t.Helper()
	m, err := New(memorySize, maxSteps)
	require.NoError(t, err)
	return m
}

func TestNewRejectsInvalidBounds(t *testing.T) {
	_, err := New(2, 10)
	require.Error(t, err)
	_, err = New(256, 0)
	require.Error(t, err)
}

func TestAddressWrapsIntoMemory(t *testing.T) {
	m := newMachine(t, 256, 10)
	cases := map[int32]int{
		0:             0,
		255:           255,
		256:           0,
		257:           1,
		-1:            255,
		-256:          0,
		-257:          255,
		math.MaxInt32: int(((int64(math.MaxInt32) % 256) + 256) % 256),
		math.MinInt32: int(((int64(math.MinInt32) % 256) + 256) % 256),
	}
	for raw, want := range cases {
		got := m.Address(raw)
		assert.Equal(t, want, got, "raw=%d", raw)
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, 256)
	}
}

func TestExecuteGoldenTrace(t *testing.T) {
	m := newMachine(t, 256, 1000)

	res := m.Execute(model.Genome{1, 1, 0})

	require.Len(t, res.Memory, 256)
	// cycle 1: mem[1] = 1-1 = 0, jump to 0.
	// cycle 2: operands 1,0,0 so mem[1] = 0-mem[0] = -1, jump to 0.
	// later cycles read B=-1 (address 255, zero) and loop forever.
	assert.Equal(t, []int32{1, -1, 0}, res.Memory[:3])
	for i := 3; i < len(res.Memory); i++ {
		require.Zerof(t, res.Memory[i], "cell %d", i)
	}
	assert.Equal(t, 1000, res.Steps)
	assert.False(t, res.Halted)
}

func TestExecuteZeroGenomeHitsStepCap(t *testing.T) {
	m := newMachine(t, 256, 500)

	res := m.Execute(make(model.Genome, 6))

	assert.Equal(t, 500, res.Steps)
	assert.False(t, res.Halted)
	assert.Equal(t, make([]int32, 256), res.Memory)
}

func TestExecuteFallsThroughToHalt(t *testing.T) {
	m := newMachine(t, 11, 100)
	// mem[9] grows by one each cycle and stays positive, so pc walks 0, 3, 6, 9 and halts.
	genome := model.Genome{9, 10, 0, 9, 10, 0, 9, 10, 0, 5, -1}

	res := m.Execute(genome)

	assert.Equal(t, 3, res.Steps)
	assert.True(t, res.Halted)
	assert.Equal(t, int32(8), res.Memory[9])
}

func TestExecuteHaltOnLastAllowedStep(t *testing.T) {
	m := newMachine(t, 11, 3)
	genome := model.Genome{9, 10, 0, 9, 10, 0, 9, 10, 0, 5, -1}

	res := m.Execute(genome)

	assert.Equal(t, 3, res.Steps)
	assert.True(t, res.Halted, "leaving the program area on the final step still counts as a halt")
	assert.Equal(t, m.MemorySize(), len(res.Memory))
}

func TestExecuteSubtractionWraps(t *testing.T) {
	m := newMachine(t, 8, 1)
	genome := model.Genome{3, 4, 0, math.MinInt32, 1}

	res := m.Execute(genome)

	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, int32(math.MaxInt32), res.Memory[3])
}

func TestExecuteIsDeterministic(t *testing.T) {
	m := newMachine(t, 64, 200)
	genome := model.Genome{7, -3, 12, 40, 9, -60, 2, 2, 0, 33, -1, 5}

	first := m.Execute(genome)
	second := m.Execute(genome)

	assert.Equal(t, first, second)
	assert.LessOrEqual(t, first.Steps, 200)
}

func TestExecuteDoesNotAliasGenome(t *testing.T) {
	m := newMachine(t, 16, 10)
	genome := model.Genome{1, 1, 0}
	before := genome.Clone()

	res := m.Execute(genome)
	res.Memory[0] = 99

	assert.Equal(t, before, genome)
}
