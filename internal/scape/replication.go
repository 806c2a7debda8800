package scape

import (
	"slices"

	"subleqevo/internal/model"
	"subleqevo/internal/vm"
)

const fullCopyScale = 1000

// Replication rewards genomes that leave copies of themselves in memory.
type Replication struct {
	Machine *vm.Machine
}

func NewReplication(machine *vm.Machine) *Replication {
	return &Replication{Machine: machine}
}

func (*Replication) Name() string {
	return "replication"
}

// Evaluate runs the genome once and scores the longest prefix of it found at
// any offset past its own load region. A full copy scores
// floor(1000*len / (len*max(steps,1))), so fewer steps win among replicators;
// anything less scores the matched prefix length.
func (r *Replication) Evaluate(genome model.Genome) Score {
	res := r.Machine.Execute(genome)
	best := BestMatch(genome, res.Memory)

	score := Score{BestMatch: best, Steps: res.Steps}
	if n := len(genome); n > 0 && best == n {
		steps := int64(max(res.Steps, 1))
		score.Fitness = Fitness(fullCopyScale * int64(best) / (int64(n) * steps))
	} else {
		score.Fitness = Fitness(best)
	}
	return score
}

// Verify requires an exact copy of genome at an offset past its load region.
func (r *Replication) Verify(genome model.Genome) (bool, vm.Result) {
	res := r.Machine.Execute(genome)
	n := len(genome)
	if n == 0 {
		return false, res
	}
	for i := n; i+n <= len(res.Memory); i++ {
		if slices.Equal(res.Memory[i:i+n], genome) {
			return true, res
		}
	}
	return false, res
}

// BestMatch returns the longest prefix of genome found at any offset i with
// len(genome) <= i <= len(memory)-len(genome).
func BestMatch(genome model.Genome, memory []int32) int {
	n := len(genome)
	best := 0
	for i := n; i+n <= len(memory); i++ {
		matched := 0
		for j, v := range genome {
			if memory[i+j] != v {
				break
			}
			matched = j + 1
		}
		if matched > best {
			best = matched
			if best == n {
				break
			}
		}
	}
	return best
}
