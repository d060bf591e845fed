package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default tuning values. The analysis core takes every parameter explicitly;
// these constants exist only so the configuration layer has a single source
// of truth for fallbacks.
const (
	// DefaultCutoffFrac is the minimum valley size as a fraction of the
	// profile length.
	DefaultCutoffFrac = 0.01
	// DefaultReferenceParameterIndex selects which cached clustering result
	// is used for the representative display.
	DefaultReferenceParameterIndex = 0
	// DefaultWorkers is the per-parameter concurrency of the batch runner.
	// 1 keeps the batch synchronous.
	DefaultWorkers = 1
)

// DefaultSensitivityParams is the default minPts sweep. Returned as a fresh
// slice so callers may modify it.
func DefaultSensitivityParams() []int {
	return []int{30, 60, 90, 120, 150}
}

// TuningConfig represents the root configuration for analysis tuning
// parameters. Fields are pointers so that partial JSON files are safe:
// anything omitted falls back to the Get* defaults.
type TuningConfig struct {
	// Valley extraction params
	CutoffFrac *float64 `json:"cutoff_frac,omitempty"`

	// Multi-resolution sweep params
	SensitivityParams       []int `json:"sensitivity_params,omitempty"`
	ReferenceParameterIndex *int  `json:"reference_parameter_index,omitempty"`

	// Density-clustering pass params
	MaxEps *float64 `json:"max_eps,omitempty"` // 0 or absent = unbounded

	// Batch runner params
	Workers *int `json:"workers,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to have a .json extension and to be under the max file size.
// Fields omitted from the JSON retain their defaults, so partial configs
// are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.CutoffFrac != nil {
		if *c.CutoffFrac <= 0 || *c.CutoffFrac >= 1 {
			return fmt.Errorf("cutoff_frac must be in (0, 1), got %f", *c.CutoffFrac)
		}
	}

	for i, mp := range c.SensitivityParams {
		if mp < 1 {
			return fmt.Errorf("sensitivity_params[%d] must be >= 1, got %d", i, mp)
		}
	}

	if c.ReferenceParameterIndex != nil {
		idx := *c.ReferenceParameterIndex
		if idx < 0 {
			return fmt.Errorf("reference_parameter_index must be non-negative, got %d", idx)
		}
		if n := len(c.GetSensitivityParams()); idx >= n {
			return fmt.Errorf("reference_parameter_index %d out of range for %d sensitivity params", idx, n)
		}
	}

	if c.MaxEps != nil && *c.MaxEps < 0 {
		return fmt.Errorf("max_eps must be non-negative, got %f", *c.MaxEps)
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}

	return nil
}

// GetCutoffFrac returns the cutoff_frac value or the default.
func (c *TuningConfig) GetCutoffFrac() float64 {
	if c.CutoffFrac == nil {
		return DefaultCutoffFrac
	}
	return *c.CutoffFrac
}

// GetSensitivityParams returns the configured minPts sweep or the default.
func (c *TuningConfig) GetSensitivityParams() []int {
	if len(c.SensitivityParams) == 0 {
		return DefaultSensitivityParams()
	}
	return c.SensitivityParams
}

// GetReferenceParameterIndex returns the reference_parameter_index value or
// the default.
func (c *TuningConfig) GetReferenceParameterIndex() int {
	if c.ReferenceParameterIndex == nil {
		return DefaultReferenceParameterIndex
	}
	return *c.ReferenceParameterIndex
}

// GetMaxEps returns the max_eps value, or 0 (unbounded) when unset.
func (c *TuningConfig) GetMaxEps() float64 {
	if c.MaxEps == nil {
		return 0
	}
	return *c.MaxEps
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}
