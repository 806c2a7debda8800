package model

import "slices"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is the evolvable integer sequence loaded as the machine's initial memory.
type Genome []int32

func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	return slices.Clone(g)
}

func (g Genome) Equal(other Genome) bool {
	return slices.Equal(g, other)
}

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
)

type GenerationRecord struct {
	Generation  int     `json:"generation"`
	BestFitness int64   `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  int64   `json:"min_fitness"`
	BestLength  int     `json:"best_length"`
	MeanLength  float64 `json:"mean_length"`
}

// Replicator is the verified self-copying genome together with the machine
// state that proves it.
type Replicator struct {
	VersionedRecord
	Generation  int     `json:"generation"`
	Genome      Genome  `json:"genome"`
	FinalMemory []int32 `json:"final_memory"`
	Steps       int     `json:"steps"`
	Fitness     int64   `json:"fitness"`
}

type RunRecord struct {
	VersionedRecord
	ID                string  `json:"id"`
	Seed              int64   `json:"seed"`
	PopulationSize    int     `json:"population_size"`
	Generations       int     `json:"generations"`
	MutationRate      float64 `json:"mutation_rate"`
	MinProgramLength  int     `json:"min_program_length"`
	MaxProgramLength  int     `json:"max_program_length"`
	MemorySize        int     `json:"memory_size"`
	MaxExecutionSteps int     `json:"max_execution_steps"`
	Outcome           Outcome `json:"outcome"`
	GenerationsRun    int     `json:"generations_run"`
	FinalBestFitness  int64   `json:"final_best_fitness"`
	CreatedAtUTC      string  `json:"created_at_utc"`
}
