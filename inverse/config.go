// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inverse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/inverse/qp"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid inverse config")

// DefaultDumpTrigger is the call index at which the dump fires by default.
const DefaultDumpTrigger = 200

// Config is the YAML configuration of a Solver.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Dump    DumpConfig    `yaml:"dump"`
	Logging LoggingConfig `yaml:"logging"`
}

// SolverConfig mirrors qp.Options plus the assembler tolerance.
// Zero values select the solver defaults.
type SolverConfig struct {
	MaxIterations        int     `yaml:"max_iterations" validate:"gte=0"`
	NNLSIterations       int     `yaml:"nnls_iterations" validate:"gte=0"`
	Tolerance            float64 `yaml:"tolerance" validate:"gte=0"`
	FeasibilityTolerance float64 `yaml:"feasibility_tolerance" validate:"gte=0"`
	RankTolerance        float64 `yaml:"rank_tolerance" validate:"gte=0"`
	SymmetryTolerance    float64 `yaml:"symmetry_tolerance" validate:"gte=0"`
}

// DumpConfig controls the one-shot problem dump. An empty Path disables it.
type DumpConfig struct {
	Path    string `yaml:"path"`
	Trigger int    `yaml:"trigger" validate:"gte=0"`
}

// LoggingConfig selects the level, encoding and destination of the solver log.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	// stdout, stderr or a file path.
	Output string `yaml:"output"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Dump: DumpConfig{Trigger: DefaultDumpTrigger},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// Options converts the solver section into qp.Options.
func (c SolverConfig) Options() qp.Options {
	return qp.Options{
		MaxIterations:        c.MaxIterations,
		NNLSIterations:       c.NNLSIterations,
		Tolerance:            c.Tolerance,
		FeasibilityTolerance: c.FeasibilityTolerance,
		RankTolerance:        c.RankTolerance,
	}
}

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected and an empty document yields the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse inverse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the named YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read inverse config: %w", err)
	}
	return ParseConfig(data)
}
