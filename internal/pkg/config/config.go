/*
config.go Problem configuration. A problem file is JSON: solver tolerances,
sizing loop limits, logging and the recorder configuration files. Fields left
out of the file keep their defaults.
*/

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"github.com/ohowland/oad_core/internal/pkg/solver"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config is a problem configuration.
type Config struct {
	Name      string         `json:"Name"`
	Solver    solver.Options `json:"Solver"`
	MDA       MDA            `json:"MDA"`
	Log       Log            `json:"Log"`
	Recorders Recorders      `json:"Recorders"`
}

// MDA bounds the performance/sizing loop.
type MDA struct {
	MaxIterations int     `json:"MaxIterations"`
	MassTolerance float64 `json:"MassTolerance"` // kg
}

// Log selects the logger built by Logger.
type Log struct {
	Level       string `json:"Level"`
	Development bool   `json:"Development"`
}

// Recorders holds the configuration file of every enabled result sink. An
// empty path disables the sink.
type Recorders struct {
	MongoDB string `json:"MongoDB"`
	MySQL   string `json:"MySQL"`
	NATS    string `json:"NATS"`
}

// Default returns the configuration used when no problem file is given.
func Default() Config {
	opts := powertrain.DefaultOptions()
	return Config{
		Name:   "oad",
		Solver: opts.Solver,
		MDA: MDA{
			MaxIterations: opts.MaxIterations,
			MassTolerance: opts.MassTolerance,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the problem file at path over the defaults and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes a problem configuration over the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("problem configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs error
	if c.Solver.Tolerance <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.Tolerance must be positive, got %v", c.Solver.Tolerance))
	}
	if c.Solver.MaxIterations < 1 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.MaxIterations must be at least 1, got %v", c.Solver.MaxIterations))
	}
	if c.Solver.MinDamping <= 0 || c.Solver.MinDamping > 1 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.MinDamping must be in (0, 1], got %v", c.Solver.MinDamping))
	}
	if c.Solver.DivergenceFactor <= 1 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.DivergenceFactor must be above 1, got %v", c.Solver.DivergenceFactor))
	}
	if c.Solver.StallIterations < 1 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.StallIterations must be at least 1, got %v", c.Solver.StallIterations))
	}
	if c.Solver.FiniteDifference <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("Solver.FiniteDifference must be positive, got %v", c.Solver.FiniteDifference))
	}
	if c.MDA.MaxIterations < 1 {
		errs = multierr.Append(errs, fmt.Errorf("MDA.MaxIterations must be at least 1, got %v", c.MDA.MaxIterations))
	}
	if c.MDA.MassTolerance <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("MDA.MassTolerance must be positive, got %v", c.MDA.MassTolerance))
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("Log.Level: %w", err))
	}
	return errs
}

// Logger builds the logger described by the Log section. verbose forces the
// debug level.
func (c Config) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

// Options returns the evaluation options of the configuration.
func (c Config) Options(log *zap.Logger) powertrain.Options {
	return powertrain.Options{
		Solver:        c.Solver,
		MaxIterations: c.MDA.MaxIterations,
		MassTolerance: c.MDA.MassTolerance,
		Logger:        log,
	}
}
