// Package main provides CMA-ES optimization for cellsim parameters.
package main

import (
	"math"

	"github.com/pthm-cable/cellsim/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // Rounded before it is applied
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Plant growth
			{Name: "rand_growth_factor", Path: "plant.rand_growth_factor", Min: 0.05, Max: 1.0, Default: 0.3},
			{Name: "energy_per_cell", Path: "plant.energy_per_cell", Min: 2, Max: 40, Default: 10, Integer: true},
			// Organism reproduction
			{Name: "well_fed_level", Path: "organism.well_fed_level", Min: 10, Max: 120, Default: 40, Integer: true},
			{Name: "maturity", Path: "organism.maturity", Min: 0, Max: 20, Default: 3, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds and integer parameters are whole.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := min(max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg and re-finalizes it.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	cfg.Plant.RandGrowthFactor = clamped[0]
	cfg.Plant.EnergyPerCell = int(clamped[1])
	cfg.Organism.WellFedLevel = int(clamped[2])
	cfg.Organism.Maturity = int(clamped[3])

	return cfg.Finalize()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Plant.RandGrowthFactor,
		float64(cfg.Plant.EnergyPerCell),
		float64(cfg.Organism.WellFedLevel),
		float64(cfg.Organism.Maturity),
	}
}
