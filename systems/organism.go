package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellsim/bus"
	"github.com/pthm-cable/cellsim/components"
	"github.com/pthm-cable/cellsim/grid"
)

// Outcome is the branch an organism's tick took.
type Outcome uint8

const (
	OutcomeDied    Outcome = iota // Energy exhausted, removed from world and registry
	OutcomeAte                    // Consumed an adjacent plant cell
	OutcomeCloned                 // Split off a daughter
	OutcomeMoved                  // Followed a directional gene
	OutcomeBlocked                // Directional gene pointed at an occupied or off-grid slot
	OutcomeIdle                   // Read the no-op gene
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeDied:
		return "died"
	case OutcomeAte:
		return "ate"
	case OutcomeCloned:
		return "cloned"
	case OutcomeMoved:
		return "moved"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Cell is a genome-driven organism occupying one grid slot. Its energy,
// age, lineage and program live as components in the Registry; Cell is the
// grid occupant and handle.
type Cell struct {
	grid.Object

	reg    *Registry
	entity ecs.Entity

	dead  bool
	final organismState // components at the moment of death
}

// SpawnCell registers a new organism and places it at pos. The genome is
// owned by the new cell.
func SpawnCell(ctx *Context, genome Genome, generation, energy int, pos grid.Pos, parentID uint32) (*Cell, error) {
	id := ctx.Registry.NextID()
	lin := components.Lineage{Generation: generation, ParentID: parentID, BirthTick: ctx.Tick}
	e, err := ctx.Registry.RegisterOrganism(id, lin, energy, genome)
	if err != nil {
		return nil, err
	}

	c := &Cell{Object: grid.NewObject(id, grid.KindOrganism), reg: ctx.Registry, entity: e}
	if err := ctx.World.Place(c, pos); err != nil {
		return nil, errors.Join(err, ctx.Registry.Unregister(id, grid.KindOrganism))
	}
	return c, nil
}

func (c *Cell) state() organismState {
	if c.dead {
		return c.final
	}
	return c.reg.organismState(c.entity)
}

// Energy returns the energy store.
func (c *Cell) Energy() int { return c.state().energy }

// Age returns ticks survived since birth or the last division.
func (c *Cell) Age() int { return c.state().age }

// Generation returns the lineage depth; founders are generation 0.
func (c *Cell) Generation() int { return c.state().lineage.Generation }

// Genome returns the genome. Callers must not modify it.
func (c *Cell) Genome() Genome { return Genome(c.state().genes) }

// PC returns the program counter.
func (c *Cell) PC() int { return c.state().pc }

// Dead reports whether the organism has been removed.
func (c *Cell) Dead() bool { return c.dead }

// Tick advances the organism by one step:
//  1. die if the energy store is exhausted
//  2. pay the movement cost into the growth pool
//  3. eat an adjacent plant cell, or
//  4. clone when well fed, mature and the population has room, or
//  5. execute the current gene
//
// then age by one tick.
//
// Component pointers are fetched again after anything that may add or
// remove entities.
func (c *Cell) Tick(ctx *Context) (Outcome, error) {
	if c.dead {
		return OutcomeDied, fmt.Errorf("organism %d ticked after death", c.ID())
	}
	energy := c.reg.energy.Get(c.entity)
	if energy.Units <= 0 {
		return OutcomeDied, c.die(ctx)
	}

	// Never charge more than the store holds, so energy stays non-negative
	// and the pool receives exactly what the organism lost.
	paid := min(ctx.Cfg.Organism.EnergyPerMove, energy.Units)
	energy.Units -= paid
	if err := ctx.Bus.Publish(bus.NewEnergyFreedEvent(paid)); err != nil {
		return OutcomeIdle, fmt.Errorf("organism %d freeing energy: %w", c.ID(), err)
	}

	outcome, err := c.act(ctx)
	if err != nil {
		return outcome, err
	}
	c.reg.age.Get(c.entity).Ticks++
	return outcome, nil
}

func (c *Cell) act(ctx *Context) (Outcome, error) {
	if ate, err := c.eat(ctx); ate || err != nil {
		return OutcomeAte, err
	}

	if c.readyToClone(ctx) {
		if cloned, err := c.clone(ctx); cloned || err != nil {
			return OutcomeCloned, err
		}
		// No room for a daughter: fall through to the genome.
	}

	return c.step(ctx)
}

// eat consumes a random cardinal plant neighbor. The owning plant frees the
// cell and this organism is credited through the bus.
func (c *Cell) eat(ctx *Context) (bool, error) {
	plants := ctx.World.CNeighborsOfKind(c.Pos(), grid.KindPlantCell)
	if len(plants) == 0 {
		return false, nil
	}

	meal := plants[ctx.Rng.Intn(len(plants))]
	ev := bus.NewPlantCellEatenEvent(meal, c, ctx.Cfg.Plant.EnergyPerCell)
	if err := ctx.Bus.Send(c, ev); err != nil {
		return false, fmt.Errorf("organism %d eating plant cell %d: %w", c.ID(), meal.ID(), err)
	}
	return true, nil
}

func (c *Cell) readyToClone(ctx *Context) bool {
	cfg := ctx.Cfg.Organism
	return c.reg.energy.Get(c.entity).Units >= cfg.WellFedLevel &&
		c.reg.age.Get(c.entity).Ticks > cfg.Maturity &&
		ctx.Registry.HasRoom(grid.KindOrganism)
}

// clone places a mutated daughter on a random empty neighbor and gives it
// half of the energy store. The program counter does not advance.
func (c *Cell) clone(ctx *Context) (bool, error) {
	spots := ctx.World.EmptyNeighbors(c.Pos())
	if len(spots) == 0 {
		return false, nil
	}
	spot := spots[ctx.Rng.Intn(len(spots))]

	st := c.state()
	genome, _ := Genome(st.genes).Mutate(ctx.Rng, ctx.Cfg.Derived.Alphabet)
	share := st.energy / 2
	daughter, err := SpawnCell(ctx, genome, st.lineage.Generation+1, share, spot, c.ID())
	if err != nil {
		return false, fmt.Errorf("organism %d cloning: %w", c.ID(), err)
	}

	c.reg.energy.Get(c.entity).Units -= share
	c.reg.age.Get(c.entity).Ticks = 0
	ctx.addBirth(daughter)

	if err := ctx.Bus.Publish(bus.NewOrganismBornEvent(daughter, c)); err != nil {
		return true, fmt.Errorf("organism %d announcing daughter %d: %w", c.ID(), daughter.ID(), err)
	}
	return true, nil
}

// step executes the gene under the program counter and advances it.
func (c *Cell) step(ctx *Context) (Outcome, error) {
	prog := c.reg.program.Get(c.entity)
	gene := prog.Genes[prog.PC]
	prog.PC = (prog.PC + 1) % len(prog.Genes)

	d, ok := grid.GeneDirection(gene)
	if !ok || gene == ctx.Cfg.Derived.NoOp {
		return OutcomeIdle, nil
	}

	dest := c.Pos().Add(d)
	if !ctx.World.IsEmpty(dest) {
		return OutcomeBlocked, nil
	}
	if err := ctx.World.Move(c, dest); err != nil {
		return OutcomeBlocked, fmt.Errorf("organism %d moving %s: %w", c.ID(), d, err)
	}
	return OutcomeMoved, nil
}

func (c *Cell) die(ctx *Context) error {
	c.final = c.reg.organismState(c.entity)
	c.dead = true
	err := errors.Join(
		ctx.World.Remove(c.Pos(), c),
		ctx.Registry.Unregister(c.ID(), grid.KindOrganism),
	)
	if err != nil {
		return fmt.Errorf("organism %d dying: %w", c.ID(), err)
	}
	return ctx.Bus.Publish(bus.NewOrganismDiedEvent(c))
}

// HandleEvent implements bus.Handler. The organism is never subscribed;
// it receives the meals addressed to it.
func (c *Cell) HandleEvent(ev bus.Event) error {
	if ev.Topic == bus.TopicPlantCellEaten && ev.Eater == grid.Occupant(c) && !c.dead {
		c.reg.energy.Get(c.entity).Units += ev.Units
	}
	return nil
}

// Topics implements bus.Handler.
func (c *Cell) Topics() []bus.Topic { return nil }
