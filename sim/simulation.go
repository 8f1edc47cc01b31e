// Package sim drives the simulation: it owns the entities, runs them in a
// fixed order each tick, and feeds telemetry.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
	"github.com/pthm-cable/cellsim/systems"
	"github.com/pthm-cable/cellsim/telemetry"
)

// Options configures a simulation beyond its Config.
type Options struct {
	Seed          int64
	Logger        *slog.Logger // nil uses slog.Default()
	OutputDir     string       // empty disables CSV output
	StatsWindow   int          // ticks per stats window, 0 uses the config
	LogStats      bool         // log every flushed window
	Verify        bool         // check the occupancy invariant after every tick
	StatsCallback func(telemetry.WindowStats)
}

// EntityKind names the scheduled entities.
type EntityKind uint8

const (
	EntityPlant EntityKind = iota
	EntityOrganism
)

func (k EntityKind) String() string {
	if k == EntityPlant {
		return "plant"
	}
	return "organism"
}

// EntityFailure is a fault raised while ticking one entity. The pass over
// the remaining entities continues.
type EntityFailure struct {
	Tick int32
	Kind EntityKind
	ID   uint32
	Err  error
}

func (f *EntityFailure) Error() string {
	return fmt.Sprintf("tick %d: %s %d: %v", f.Tick, f.Kind, f.ID, f.Err)
}

func (f *EntityFailure) Unwrap() error { return f.Err }

// Simulation holds the complete simulation state.
type Simulation struct {
	cfg    *config.Config
	ctx    *systems.Context
	logger *slog.Logger
	opts   Options

	plants []*systems.Plant
	cells  []*systems.Cell // live organisms in birth order

	tick int32

	// energyBudget is organism energy plus pooled energy plus plant cell
	// value, fixed once the world is seeded.
	energyBudget int

	collector *telemetry.Collector
	lifetime  *telemetry.LifetimeTracker
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
}

// New builds a simulation, places the founders and seeds the plants.
// A nil cfg uses the defaults.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := systems.NewContext(cfg, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, err
	}

	window := cfg.Telemetry.StatsWindow
	if opts.StatsWindow > 0 {
		window = opts.StatsWindow
	}

	s := &Simulation{
		cfg:       cfg,
		ctx:       ctx,
		logger:    logger,
		opts:      opts,
		collector: telemetry.NewCollector(window),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks: telemetry.NewBookmarkDetector(10),
	}
	s.lifetime = telemetry.NewLifetimeTracker(func() int32 { return s.tick })
	ctx.Bus.Subscribe(s.collector)
	ctx.Bus.Subscribe(s.lifetime)

	if err := s.spawnFounders(); err != nil {
		return nil, fmt.Errorf("spawning founders: %w", err)
	}
	if err := s.seedPlants(); err != nil {
		return nil, fmt.Errorf("seeding plants: %w", err)
	}

	s.energyBudget = s.totalEnergy()

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	s.output = output
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	logger.Debug("simulation created",
		"seed", opts.Seed,
		"rows", cfg.World.Rows,
		"columns", cfg.World.Columns,
		"species", cfg.Plant.Species,
		"organisms", len(s.cells),
		"plants", len(s.plants),
	)
	return s, nil
}

// Tick advances the simulation by one step: every plant, then every
// organism alive at the start of the pass. Organisms born during the pass
// act from the next tick. A failing entity is logged and skipped; the
// failures are returned joined.
func (s *Simulation) Tick() error {
	s.tick++
	s.ctx.Tick = s.tick
	s.perf.StartTick()

	var failures []error

	s.perf.StartPhase(telemetry.PhasePlants)
	for _, p := range s.plants {
		err := s.guard(EntityPlant, p.ID(), func() error {
			_, err := p.Tick()
			return err
		})
		if err != nil {
			failures = append(failures, err)
		}
	}

	s.perf.StartPhase(telemetry.PhaseOrganisms)
	for _, c := range s.cells {
		if c.Dead() {
			continue
		}
		err := s.guard(EntityOrganism, c.ID(), func() error {
			_, err := c.Tick(s.ctx)
			return err
		})
		if err != nil {
			failures = append(failures, err)
		}
	}

	s.perf.StartPhase(telemetry.PhaseBirths)
	s.collectBirthsAndDeaths()

	if s.opts.Verify {
		if err := s.ctx.World.Verify(); err != nil {
			failures = append(failures, fmt.Errorf("tick %d: %w", s.tick, err))
		}
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.perf.EndTick()

	return errors.Join(failures...)
}

// guard runs one entity tick, converting a returned error or a panic into
// an EntityFailure.
func (s *Simulation) guard(kind EntityKind, id uint32, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}
		err = &EntityFailure{Tick: s.tick, Kind: kind, ID: id, Err: err}
		s.collector.RecordFailure()
		s.logger.Error("entity tick failed",
			"tick", s.tick,
			"entity", id,
			"kind", kind.String(),
			"error", err,
		)
	}()
	return fn()
}

// collectBirthsAndDeaths drops dead organisms and appends this tick's
// daughters in birth order.
func (s *Simulation) collectBirthsAndDeaths() {
	live := s.cells[:0]
	for _, c := range s.cells {
		if !c.Dead() {
			live = append(live, c)
		}
	}
	clear(s.cells[len(live):])
	s.cells = append(live, s.ctx.TakeBirths()...)
}

// Run advances up to n ticks, stopping early on extinction. It returns the
// number of ticks run and every failure reported along the way.
func (s *Simulation) Run(n int) (int, error) {
	var errs []error
	ran := 0
	for ran < n && !s.Extinct() {
		if err := s.Tick(); err != nil {
			errs = append(errs, err)
		}
		ran++
	}
	return ran, errors.Join(errs...)
}

// Stats is a point-in-time summary of the simulation.
type Stats struct {
	Tick           int32
	Organisms      int
	PlantCells     int
	Plants         int
	PooledEnergy   int
	MaxGeneration  int
	MeanGeneration float64
}

// Stats returns live counts, lineage depth and the pooled growth energy.
func (s *Simulation) Stats() Stats {
	census := s.ctx.Registry.Census()
	return Stats{
		Tick:           s.tick,
		Organisms:      census.Organisms,
		PlantCells:     census.PlantCells,
		Plants:         len(s.plants),
		PooledEnergy:   s.ctx.Pool.Units(),
		MaxGeneration:  census.MaxGeneration,
		MeanGeneration: census.MeanGeneration,
	}
}

// Snapshot returns a read-only copy of the grid.
func (s *Simulation) Snapshot() grid.Snapshot {
	return s.ctx.World.Snapshot()
}

// Organisms returns the live organisms in birth order. The slice is a copy.
func (s *Simulation) Organisms() []*systems.Cell {
	out := make([]*systems.Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// Plants returns the plants. The slice is a copy.
func (s *Simulation) Plants() []*systems.Plant {
	out := make([]*systems.Plant, len(s.plants))
	copy(out, s.plants)
	return out
}

// Extinct reports whether no organism is alive.
func (s *Simulation) Extinct() bool {
	return len(s.cells) == 0
}

// CurrentTick returns the number of ticks run.
func (s *Simulation) CurrentTick() int32 { return s.tick }

// Config returns the configuration the simulation runs with.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Lifetimes returns the per-organism lifetime tracker.
func (s *Simulation) Lifetimes() *telemetry.LifetimeTracker { return s.lifetime }

// totalEnergy sums organism stores, the growth pool and the value of every
// live plant cell.
func (s *Simulation) totalEnergy() int {
	census := s.ctx.Registry.Census()
	return census.OrganismEnergy + s.ctx.Pool.Units() + census.PlantCells*s.cfg.Plant.EnergyPerCell
}

// Verify checks the occupancy invariant, that the registry agrees with the
// grid and the entity lists, and that no energy was created or lost since
// seeding.
func (s *Simulation) Verify() error {
	if err := s.ctx.World.Verify(); err != nil {
		return err
	}
	reg := s.ctx.Registry
	var errs []error
	if w, r := s.ctx.World.Count(grid.KindOrganism), reg.Count(grid.KindOrganism); w != r || r != len(s.cells) {
		errs = append(errs, fmt.Errorf("organisms: %d on grid, %d registered, %d scheduled", w, r, len(s.cells)))
	}
	for _, c := range s.cells {
		if !reg.Alive(c.ID()) {
			errs = append(errs, fmt.Errorf("organism %d scheduled but not registered", c.ID()))
		}
	}

	size := 0
	for _, p := range s.plants {
		size += p.Size()
		for _, cell := range p.Cells() {
			if owner, ok := reg.PlantOwner(cell.ID()); !ok || owner != p.ID() {
				errs = append(errs, fmt.Errorf("plant cell %d held by plant %d is registered to %d", cell.ID(), p.ID(), owner))
			}
		}
	}
	if w, r := s.ctx.World.Count(grid.KindPlantCell), reg.Count(grid.KindPlantCell); w != r || r != size {
		errs = append(errs, fmt.Errorf("plant cells: %d on grid, %d registered, %d owned", w, r, size))
	}

	if total := s.totalEnergy(); total != s.energyBudget {
		errs = append(errs, fmt.Errorf("energy: %d in the world, %d after seeding", total, s.energyBudget))
	}
	return errors.Join(errs...)
}

// Close flushes and closes output files.
func (s *Simulation) Close() error {
	return s.output.Close()
}
