// Package vm interprets SUBLEQ, the one-instruction machine genomes are written for.
//
// Each cycle reads three cells A, B, C at the program counter, performs
// mem[A] -= mem[B] and jumps to C when the result is not positive. Operands are
// reduced modulo the memory size, so every genome runs without faults until it
// leaves the program area or exhausts the step budget.
package vm

import (
	"fmt"

	"subleqevo/internal/model"
)

// Width of one instruction in cells.
const InstructionWidth = 3

type Machine struct {
	memorySize int
	maxSteps   int
}

// Result is the machine state after a run. Memory is owned by the caller.
// Halted is set when the program counter left the program area, as opposed
// to running out of steps.
type Result struct {
	Memory []int32
	Steps  int
	Halted bool
}

func New(memorySize, maxSteps int) (*Machine, error) {
	if memorySize < InstructionWidth {
		return nil, fmt.Errorf("memory size must be >= %d, got %d", InstructionWidth, memorySize)
	}
	if maxSteps <= 0 {
		return nil, fmt.Errorf("max execution steps must be > 0, got %d", maxSteps)
	}
	return &Machine{memorySize: memorySize, maxSteps: maxSteps}, nil
}

func (m *Machine) MemorySize() int {
	return m.memorySize
}

// Address maps a raw operand onto [0, memorySize).
func (m *Machine) Address(v int32) int {
	size := int64(m.memorySize)
	return int(((int64(v) % size) + size) % size)
}

// Load returns a fresh zeroed memory image with genome copied at address 0.
// Cells past the end of memory are dropped.
func (m *Machine) Load(genome model.Genome) []int32 {
	memory := make([]int32, m.memorySize)
	copy(memory, genome)
	return memory
}

func (m *Machine) Execute(genome model.Genome) Result {
	memory := m.Load(genome)
	last := m.memorySize - InstructionWidth

	pc, steps := 0, 0
	for pc <= last && steps < m.maxSteps {
		a := m.Address(memory[pc])
		b := m.Address(memory[pc+1])
		c := m.Address(memory[pc+2])

		memory[a] -= memory[b]
		if memory[a] <= 0 {
			pc = c
		} else {
			pc += InstructionWidth
		}
		steps++
	}
	return Result{Memory: memory, Steps: steps, Halted: pc > last}
}
