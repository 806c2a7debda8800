package evo

import (
	"math/rand/v2"

	"subleqevo/internal/model"
)

// Operator perturbs a freshly bred child. Apply may modify genome in place and
// returns the result; it must not change the genome length.
type Operator interface {
	Name() string
	Apply(rng *rand.Rand, genome model.Genome) model.Genome
}
