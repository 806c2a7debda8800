// Package config holds the run configuration of the replicator search and
// validates it before any evolutionary work starts.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"subleqevo/internal/vm"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	PopulationSize    int     `yaml:"population_size" json:"population_size" validate:"gt=0"`
	Generations       int     `yaml:"generations" json:"generations" validate:"gt=0"`
	MutationRate      float64 `yaml:"mutation_rate" json:"mutation_rate" validate:"gte=0,lte=1"`
	MinProgramLength  int     `yaml:"min_program_length" json:"min_program_length" validate:"gt=0"`
	MaxProgramLength  int     `yaml:"max_program_length" json:"max_program_length" validate:"gt=0"`
	MemorySize        int     `yaml:"memory_size" json:"memory_size" validate:"gt=0"`
	MaxExecutionSteps int     `yaml:"max_execution_steps" json:"max_execution_steps" validate:"gt=0"`
	Seed              int64   `yaml:"seed" json:"seed"`
	Workers           int     `yaml:"workers" json:"workers" validate:"gte=0"`
}

// Default mirrors the reference search: 10000 programs of 6..64 cells for up
// to 10000 generations on a 256-cell machine.
func Default() Config {
	return Config{
		PopulationSize:    10000,
		Generations:       10000,
		MutationRate:      0.05,
		MinProgramLength:  6,
		MaxProgramLength:  64,
		MemorySize:        256,
		MaxExecutionSteps: 1000,
		Seed:              1,
	}
}

// ValidationError names the option and the constraint it violates.
type ValidationError struct {
	Field      string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s must satisfy %s (got %v)", ErrInvalidConfig, e.Field, e.Constraint, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(yamlName)
}

// Validate reports the first violated constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:      fe.Field(),
				Constraint: constraintText(fe.Tag(), fe.Param()),
				Value:      fe.Value(),
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MinProgramLength > c.MaxProgramLength {
		return &ValidationError{
			Field:      "min_program_length",
			Constraint: fmt.Sprintf("<= max_program_length (%d)", c.MaxProgramLength),
			Value:      c.MinProgramLength,
		}
	}
	if need := c.MaxProgramLength + vm.InstructionWidth; c.MemorySize < need {
		return &ValidationError{
			Field:      "memory_size",
			Constraint: fmt.Sprintf(">= max_program_length + %d (%d)", vm.InstructionWidth, need),
			Value:      c.MemorySize,
		}
	}
	return nil
}

// Load reads YAML (or JSON) from path over the defaults. Unknown keys are
// rejected. The result is not validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func yamlName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func constraintText(tag, param string) string {
	switch tag {
	case "gt":
		return "> " + param
	case "gte":
		return ">= " + param
	case "lte":
		return "<= " + param
	default:
		return tag + " " + param
	}
}
