package systems

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pthm-cable/cellsim/bus"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
)

// ErrNotOwned is returned when freeing a plant cell the plant does not hold,
// including one that was already freed.
var ErrNotOwned = errors.New("plant cell not owned")

// Species selects the growth strategy.
type Species uint8

const (
	Geometric Species = iota // compact front-filling growth
	Sinuous                  // randomized branching growth
)

// ParseSpecies maps a config name to a Species.
func ParseSpecies(name string) (Species, error) {
	switch strings.ToLower(name) {
	case config.SpeciesGeometric:
		return Geometric, nil
	case config.SpeciesSinuous:
		return Sinuous, nil
	default:
		return 0, fmt.Errorf("unknown plant species %q", name)
	}
}

// String returns the config name of the species.
func (s Species) String() string {
	if s == Sinuous {
		return config.SpeciesSinuous
	}
	return config.SpeciesGeometric
}

// PlantCell is one unit of edible biomass. Its owning plant is recorded as
// a component in the Registry.
type PlantCell struct {
	grid.Object
}

// Plant owns a set of plant cells and grows them from the shared energy pool.
type Plant struct {
	ctx     *Context
	id      uint32
	species Species

	factor    float64
	cost      int
	minBatch  int
	maxPasses int

	index map[uint32]*PlantCell
	// order keeps insertion order for growth scans. Freed cells are
	// dropped lazily by compact.
	order []*PlantCell
	stale int
}

// NewPlant creates an empty plant and subscribes it to meal events.
func NewPlant(ctx *Context) (*Plant, error) {
	cfg := ctx.Cfg.Plant
	if cfg.EnergyPerCell <= 0 {
		return nil, fmt.Errorf("plant: energy per cell must be positive, got %d", cfg.EnergyPerCell)
	}
	species, err := ParseSpecies(cfg.Species)
	if err != nil {
		return nil, err
	}

	p := &Plant{
		ctx:       ctx,
		id:        ctx.Registry.NextID(),
		species:   species,
		factor:    cfg.RandGrowthFactor,
		cost:      cfg.EnergyPerCell,
		minBatch:  cfg.MinGrowthBatch,
		maxPasses: max(cfg.MaxGrowthPasses, 1),
		index:     make(map[uint32]*PlantCell),
	}
	ctx.Bus.Subscribe(p)
	return p, nil
}

// ID returns the plant identity. Plants share the identity space with
// organisms and plant cells but are not registered entities.
func (p *Plant) ID() uint32 { return p.id }

// Species returns the growth strategy.
func (p *Plant) Species() Species { return p.species }

// Size returns the number of live cells.
func (p *Plant) Size() int { return len(p.index) }

// Cells returns the live cells in insertion order.
func (p *Plant) Cells() []*PlantCell {
	p.compact()
	out := make([]*PlantCell, len(p.order))
	copy(out, p.order)
	return out
}

// Owns reports whether cell is a live cell of this plant.
func (p *Plant) Owns(cell *PlantCell) bool {
	return p.index[cell.ID()] == cell
}

// Seed places the first cell at pos and primes growth with one tick.
func (p *Plant) Seed(pos grid.Pos) error {
	if !p.claim(pos) {
		return fmt.Errorf("plant: seeding at %v: %w", pos, p.claimErr(pos))
	}
	if _, err := p.Tick(); err != nil {
		return fmt.Errorf("plant: priming: %w", err)
	}
	return nil
}

// claimErr explains why claim refused pos.
func (p *Plant) claimErr(pos grid.Pos) error {
	switch {
	case !p.ctx.World.InBounds(pos):
		return grid.ErrOutOfBounds
	case !p.ctx.World.IsEmpty(pos):
		return grid.ErrOccupied
	default:
		return ErrPopulationCap
	}
}

// Tick grows as many cells as the pool and the population cap allow, unless
// that is fewer than the minimum batch. It returns the number grown.
func (p *Plant) Tick() (int, error) {
	desired := min(p.ctx.Registry.Remaining(grid.KindPlantCell), p.ctx.Pool.Units()/p.cost)
	if desired < p.minBatch || desired <= 0 {
		return 0, nil
	}

	grown := p.Grow(desired)
	if grown == 0 {
		return 0, nil
	}
	if err := p.ctx.Pool.Withdraw(grown * p.cost); err != nil {
		return grown, fmt.Errorf("plant: paying for %d cells: %w", grown, err)
	}
	return grown, p.ctx.Bus.Publish(bus.NewPlantCellGrownEvent(grown))
}

// Grow claims up to n empty cells next to existing ones and returns how
// many it actually claimed. It does not touch the energy pool.
func (p *Plant) Grow(n int) int {
	if n <= 0 {
		return 0
	}
	p.compact()

	switch p.species {
	case Sinuous:
		return p.growSinuous(n)
	default:
		return p.growGeometric(n)
	}
}

// growGeometric makes one outward pass over the existing cells in insertion
// order, claiming every empty cardinal neighbor in scan order.
func (p *Plant) growGeometric(n int) int {
	grown := 0
	sources := p.order
	for _, src := range sources {
		for _, pos := range p.ctx.World.EmptyCNeighbors(src.Pos()) {
			if grown == n {
				return grown
			}
			if p.claim(pos) {
				grown++
			}
		}
	}
	return grown
}

// growSinuous repeats passes over the existing cells in reverse insertion
// order. Each source claims at most one neighbor per pass, each candidate
// with probability factor. Cells claimed in a pass become sources for the
// next one. Growth stops at n, after maxPasses, or once a pass finds no
// empty neighbor anywhere.
func (p *Plant) growSinuous(n int) int {
	rng := p.ctx.Rng
	grown := 0
	for pass := 0; pass < p.maxPasses && grown < n; pass++ {
		sources := p.order
		candidates := false
		for i := len(sources) - 1; i >= 0 && grown < n; i-- {
			for _, pos := range p.ctx.World.EmptyCNeighbors(sources[i].Pos()) {
				candidates = true
				if rng.Float64() < p.factor && p.claim(pos) {
					grown++
					break
				}
			}
		}
		if !candidates {
			break
		}
	}
	return grown
}

// claim registers and places a new cell at pos. It reports false when the
// population cap is reached or the slot is not free.
func (p *Plant) claim(pos grid.Pos) bool {
	reg := p.ctx.Registry
	if !reg.HasRoom(grid.KindPlantCell) || !p.ctx.World.IsEmpty(pos) {
		return false
	}

	cell := &PlantCell{Object: grid.NewObject(reg.NextID(), grid.KindPlantCell)}
	if _, err := reg.RegisterPlantCell(cell.ID(), p.id, p.ctx.Tick); err != nil {
		return false
	}
	if err := p.ctx.World.Place(cell, pos); err != nil {
		_ = reg.Unregister(cell.ID(), grid.KindPlantCell)
		return false
	}

	p.index[cell.ID()] = cell
	p.order = append(p.order, cell)
	return true
}

// FreeCell removes cell from the world, the registry and this plant.
// Freeing a cell twice fails with ErrNotOwned.
func (p *Plant) FreeCell(cell *PlantCell) error {
	if !p.Owns(cell) {
		return fmt.Errorf("plant: free cell %d: %w", cell.ID(), ErrNotOwned)
	}
	err := errors.Join(
		p.ctx.World.Remove(cell.Pos(), cell),
		p.ctx.Registry.Unregister(cell.ID(), grid.KindPlantCell),
	)
	delete(p.index, cell.ID())
	p.stale++
	if err != nil {
		return fmt.Errorf("plant: free cell %d: %w", cell.ID(), err)
	}
	return nil
}

// compact drops freed cells from the insertion order.
func (p *Plant) compact() {
	if p.stale == 0 {
		return
	}
	live := p.order[:0]
	for _, c := range p.order {
		if p.index[c.ID()] == c {
			live = append(live, c)
		}
	}
	clear(p.order[len(live):])
	p.order = live
	p.stale = 0
}

// HandleEvent implements bus.Handler. Meals on cells owned by other plants,
// or already freed, are ignored.
func (p *Plant) HandleEvent(ev bus.Event) error {
	if ev.Topic != bus.TopicPlantCellEaten {
		return nil
	}
	cell, ok := ev.Cell.(*PlantCell)
	if !ok {
		return fmt.Errorf("plant: eaten occupant %d is a %s", ev.Cell.ID(), ev.Cell.Kind())
	}
	if owner, ok := p.ctx.Registry.PlantOwner(cell.ID()); !ok || owner != p.id {
		return nil
	}
	return p.FreeCell(cell)
}

// Topics implements bus.Handler.
func (p *Plant) Topics() []bus.Topic {
	return []bus.Topic{bus.TopicPlantCellEaten}
}
