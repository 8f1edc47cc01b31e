package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	raw := pv.ExtractFromConfig(cfg)
	back := pv.Denormalize(pv.Normalize(raw))
	for i, spec := range pv.Specs {
		if d := back[i] - raw[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("%s: round trip %v -> %v", spec.Name, raw[i], back[i])
		}
	}
	for i, spec := range pv.Specs {
		if raw[i] != spec.Default {
			t.Errorf("%s: default %v does not match config value %v", spec.Name, spec.Default, raw[i])
		}
	}
}

func TestApplyToConfigClampsAndRounds(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	if err := pv.ApplyToConfig(cfg, []float64{2.0, 7.6, -5, 3.4}); err != nil {
		t.Fatal(err)
	}
	if cfg.Plant.RandGrowthFactor != 1.0 {
		t.Errorf("rand_growth_factor = %v, want clamped to 1", cfg.Plant.RandGrowthFactor)
	}
	if cfg.Plant.EnergyPerCell != 8 {
		t.Errorf("energy_per_cell = %d, want 8", cfg.Plant.EnergyPerCell)
	}
	if cfg.Organism.WellFedLevel != 10 {
		t.Errorf("well_fed_level = %d, want clamped to 10", cfg.Organism.WellFedLevel)
	}
	if cfg.Organism.Maturity != 3 {
		t.Errorf("maturity = %d, want 3", cfg.Organism.Maturity)
	}
}

func TestFitnessPenalizesExtinction(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 300, []int64{1}, config.Default())

	full := &runResult{survivalTicks: 300}
	short := &runResult{survivalTicks: 100}
	for range 3 {
		full.windowStats = append(full.windowStats, windowWith(10))
	}
	short.windowStats = append(short.windowStats, windowWith(10))

	if got := fe.computeFitness(full); got != -11 {
		t.Errorf("full run fitness = %v, want -11", got)
	}
	if got := fe.computeFitness(short); got >= fe.computeFitness(full) {
		t.Errorf("extinct run fitness %v is not worse than full run", got)
	}
}

func TestFitnessRanksRunsWithoutWindows(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 300, []int64{1}, config.Default())

	tests := []struct {
		name     string
		survived int
		want     float64
	}{
		{"dies on first tick", 1, -1.0 / 300},
		{"dies before first window", 60, -0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fe.computeFitness(&runResult{survivalTicks: tt.survived})
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("fitness = %v, want %v", got, tt.want)
			}
		})
	}
	if early, late := fe.computeFitness(&runResult{survivalTicks: 10}), fe.computeFitness(&runResult{survivalTicks: 90}); late >= early {
		t.Errorf("surviving 90 ticks (%v) does not beat 10 ticks (%v)", late, early)
	}
}

func TestEvaluateRunsSimulations(t *testing.T) {
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 200, []int64{1, 2}, config.Default())

	fitness := fe.Evaluate(pv.DefaultVector())
	if fitness >= 0 || math.IsInf(fitness, 0) {
		t.Errorf("fitness = %v, want a finite negative score", fitness)
	}
	if fe.LastSurvival() <= 0 {
		t.Errorf("LastSurvival = %v", fe.LastSurvival())
	}

	// A founder that cannot move dies out fast and must score worse.
	weak := config.Default()
	weak.Organism.FounderEnergy = 2
	weak.Plant.SeedCount = 0
	starved := NewFitnessEvaluator(pv, 200, []int64{1, 2}, weak).Evaluate(pv.DefaultVector())
	if starved <= fitness {
		t.Errorf("starved run fitness %v is not worse than default %v", starved, fitness)
	}
}

func windowWith(organisms int) telemetry.WindowStats {
	return telemetry.WindowStats{Organisms: organisms}
}
