package sim

import (
	"github.com/pthm-cable/cellsim/components"
	"github.com/pthm-cable/cellsim/grid"
	"github.com/pthm-cable/cellsim/systems"
	"github.com/pthm-cable/cellsim/telemetry"
)

// flushTelemetry flushes the stats window when it is due and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sample())
	perfStats := s.perf.Stats()

	if s.opts.StatsCallback != nil {
		s.opts.StatsCallback(stats)
	}

	if s.opts.LogStats {
		stats.LogStats(s.logger)
		perfStats.LogStats(s.logger)
	}

	if err := s.output.WriteTelemetry(stats); err != nil {
		s.logger.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.opts.LogStats {
			bm.LogBookmark(s.logger)
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			s.logger.Error("failed to write bookmark", "error", err)
		}
	}
}

// sample reads the population state for a stats window from the organism
// components, and drains the lifespans of the window's deaths.
func (s *Simulation) sample() telemetry.Sample {
	out := telemetry.Sample{
		Organisms:    len(s.cells),
		PlantCells:   s.ctx.Registry.Count(grid.KindPlantCell),
		PooledEnergy: s.ctx.Pool.Units(),
		Energies:     make([]float64, 0, len(s.cells)),
		Generations:  make([]int, 0, len(s.cells)),
		Genomes:      make([]string, 0, len(s.cells)),
		Lifespans:    s.lifetime.TakeLifespans(),
	}
	s.ctx.Registry.EachOrganism(func(lin components.Lineage, energy int, genome systems.Genome) {
		out.Energies = append(out.Energies, float64(energy))
		out.Generations = append(out.Generations, lin.Generation)
		out.Genomes = append(out.Genomes, genome.String())
	})
	return out
}
