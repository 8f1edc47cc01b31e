package telemetry

import "github.com/pthm-cable/cellsim/bus"

// Collector accumulates bus events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks     int32
	windowStartTick int32

	// Event counters for current window
	births          int
	deaths          int
	meals           int
	energyFreed     int
	plantCellsGrown int
	tickFailures    int
}

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int32(windowTicks)}
}

// HandleEvent implements bus.Handler.
func (c *Collector) HandleEvent(ev bus.Event) error {
	switch ev.Topic {
	case bus.TopicEnergyFreed:
		c.energyFreed += ev.Units
	case bus.TopicPlantCellEaten:
		c.meals++
	case bus.TopicOrganismBorn:
		c.births++
	case bus.TopicOrganismDied:
		c.deaths++
	case bus.TopicPlantCellGrown:
		c.plantCellsGrown += ev.Units
	}
	return nil
}

// Topics implements bus.Handler.
func (c *Collector) Topics() []bus.Topic {
	return []bus.Topic{
		bus.TopicEnergyFreed,
		bus.TopicPlantCellEaten,
		bus.TopicOrganismBorn,
		bus.TopicOrganismDied,
		bus.TopicPlantCellGrown,
	}
}

// RecordFailure records an entity tick failure.
func (c *Collector) RecordFailure() {
	c.tickFailures++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Sample is the population state read at the end of a window.
type Sample struct {
	Organisms    int
	PlantCells   int
	PooledEnergy int

	Energies    []float64
	Generations []int
	Genomes     []string
	Lifespans   []int32 // organisms that died during the window
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	energyMean, p10, p50, p90 := ComputeEnergyStats(s.Energies)
	genMean, genMax := ComputeGenerationStats(s.Generations)
	distinct, dominant, share := ComputeGenomeStats(s.Genomes)
	lifeMean, lifeMax := ComputeLifespanStats(s.Lifespans)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Organisms:    s.Organisms,
		PlantCells:   s.PlantCells,
		PooledEnergy: s.PooledEnergy,

		Births:          c.births,
		Deaths:          c.deaths,
		Meals:           c.meals,
		EnergyFreed:     c.energyFreed,
		PlantCellsGrown: c.plantCellsGrown,
		TickFailures:    c.tickFailures,

		EnergyMean: energyMean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		GenerationMean: genMean,
		GenerationMax:  genMax,

		LifespanMean: lifeMean,
		LifespanMax:  lifeMax,

		DistinctGenomes: distinct,
		DominantGenome:  dominant,
		DominantShare:   share,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.meals = 0
	c.energyFreed = 0
	c.plantCellsGrown = 0
	c.tickFailures = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowTicks
}
