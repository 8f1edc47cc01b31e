// Package telemetry aggregates simulation events into windowed statistics
// and writes them out as CSV.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population at window end
	Organisms    int `csv:"organisms"`
	PlantCells   int `csv:"plant_cells"`
	PooledEnergy int `csv:"pooled_energy"`

	// Events during window
	Births          int `csv:"births"`
	Deaths          int `csv:"deaths"`
	Meals           int `csv:"meals"`
	EnergyFreed     int `csv:"energy_freed"`
	PlantCellsGrown int `csv:"plant_cells_grown"`
	TickFailures    int `csv:"tick_failures"`

	// Organism energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Lineage
	GenerationMean float64 `csv:"generation_mean"`
	GenerationMax  int     `csv:"generation_max"`

	// Lifespans of organisms that died during the window
	LifespanMean float64 `csv:"lifespan_mean"`
	LifespanMax  int32   `csv:"lifespan_max"`

	// Genetic diversity
	DistinctGenomes int     `csv:"distinct_genomes"`
	DominantGenome  string  `csv:"dominant_genome"`
	DominantShare   float64 `csv:"dominant_share"`
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, p10, p50, p90
}

// ComputeGenerationStats returns the mean and maximum generation.
func ComputeGenerationStats(generations []int) (mean float64, maxGen int) {
	if len(generations) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(generations))
	for i, g := range generations {
		xs[i] = float64(g)
		maxGen = max(maxGen, g)
	}
	return stat.Mean(xs, nil), maxGen
}

// ComputeLifespanStats returns the mean and longest lifespan.
func ComputeLifespanStats(lifespans []int32) (mean float64, longest int32) {
	if len(lifespans) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(lifespans))
	for i, l := range lifespans {
		xs[i] = float64(l)
		longest = max(longest, l)
	}
	return stat.Mean(xs, nil), longest
}

// ComputeGenomeStats counts distinct genomes and finds the most common one.
// Ties go to the lexically smallest genome.
func ComputeGenomeStats(genomes []string) (distinct int, dominant string, share float64) {
	if len(genomes) == 0 {
		return 0, "", 0
	}
	counts := make(map[string]int)
	for _, g := range genomes {
		counts[g]++
	}

	best := 0
	for g, n := range counts {
		if n > best || (n == best && g < dominant) {
			dominant, best = g, n
		}
	}
	return len(counts), dominant, float64(best) / float64(len(genomes))
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("organisms", s.Organisms),
		slog.Int("plant_cells", s.PlantCells),
		slog.Int("pooled_energy", s.PooledEnergy),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("meals", s.Meals),
		slog.Int("energy_freed", s.EnergyFreed),
		slog.Int("plant_cells_grown", s.PlantCellsGrown),
		slog.Int("tick_failures", s.TickFailures),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("generation_mean", s.GenerationMean),
		slog.Int("generation_max", s.GenerationMax),
		slog.Float64("lifespan_mean", s.LifespanMean),
		slog.Int("lifespan_max", int(s.LifespanMax)),
		slog.Int("distinct_genomes", s.DistinctGenomes),
		slog.String("dominant_genome", s.DominantGenome),
		slog.Float64("dominant_share", s.DominantShare),
	)
}

// LogStats logs the window stats.
func (s WindowStats) LogStats(logger *slog.Logger) {
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"organisms", s.Organisms,
		"plant_cells", s.PlantCells,
		"pooled_energy", s.PooledEnergy,
		"births", s.Births,
		"deaths", s.Deaths,
		"meals", s.Meals,
		"energy_freed", s.EnergyFreed,
		"plant_cells_grown", s.PlantCellsGrown,
		"tick_failures", s.TickFailures,
		"energy_mean", s.EnergyMean,
		"energy_p50", s.EnergyP50,
		"generation_mean", s.GenerationMean,
		"generation_max", s.GenerationMax,
		"lifespan_mean", s.LifespanMean,
		"distinct_genomes", s.DistinctGenomes,
		"dominant_genome", s.DominantGenome,
	)
}
