package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/sim"
	"github.com/pthm-cable/cellsim/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int
	seeds       []int64
	baseConfig  *config.Config
	statsWindow int
	logger      *slog.Logger

	mu           sync.Mutex
	lastSurvival float64 // mean ticks survived in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 100,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LastSurvival returns the mean ticks survived in the most recent evaluation.
func (fe *FitnessEvaluator) LastSurvival() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSurvival
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int                     // ticks run before extinction, or maxTicks
	windowStats   []telemetry.WindowStats // collected via StatsCallback each window
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negative mean organism population, averaged over seeds.
// A parameter set the config rejects scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return math.Inf(1)
	}

	// Run all seeds in parallel; simulations share no state.
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg.Clone(), s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalSurvival float64
	for _, r := range results {
		if r == nil {
			return math.Inf(1)
		}
		totalFitness += fe.computeFitness(r)
		totalSurvival += float64(r.survivalTicks)
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastSurvival = totalSurvival / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless simulation run until extinction
// or maxTicks. It returns nil if the simulation cannot be built.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}
	s, err := sim.New(cfg, sim.Options{
		Seed:        seed,
		Logger:      fe.logger,
		StatsWindow: fe.statsWindow,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return nil
	}
	defer s.Close()

	// Entity failures are already logged; they do not end a run.
	result.survivalTicks, _ = s.Run(fe.maxTicks)
	return result
}

// computeFitness calculates the scalar fitness (lower = better): the mean
// window population plus the fraction of maxTicks survived.
// Windows a run never reached because it went extinct count as empty, so
// early extinction is penalized in proportion to the time lost. The
// survival term ranks runs that die out before their first window.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	if fe.maxTicks <= 0 {
		return 0
	}
	survival := float64(r.survivalTicks) / float64(fe.maxTicks)

	var mean float64
	if windows := fe.maxTicks / fe.statsWindow; windows > 0 {
		var sum float64
		for _, w := range r.windowStats {
			sum += float64(w.Organisms)
		}
		mean = sum / float64(windows)
	}
	return -(mean + survival)
}
