package scape

import (
	"subleqevo/internal/model"
	"subleqevo/internal/vm"
)

type Fitness int64

// Score is the outcome of one evaluation. Scores are never cached on genomes.
type Score struct {
	Fitness   Fitness
	BestMatch int
	Steps     int
}

// Scape evaluates genomes. Implementations must be safe for concurrent use and
// deterministic for a fixed genome.
type Scape interface {
	Name() string
	Evaluate(genome model.Genome) Score
	// Verify reports whether genome is a confirmed solution, along with the
	// machine state that proves it.
	Verify(genome model.Genome) (bool, vm.Result)
}
