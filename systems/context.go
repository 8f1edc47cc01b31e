// Package systems implements the organism and plant behavior of the simulation.
package systems

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/cellsim/bus"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
)

// Context is the state shared by every entity during a tick.
// It is passed by reference; entities never keep their own copies of it.
type Context struct {
	Cfg      *config.Config
	World    *grid.World
	Bus      *bus.Bus
	Registry *Registry
	Pool     *EnergyPool
	Rng      *rand.Rand
	Tick     int32

	births []*Cell
}

// NewContext builds the world, bus, registry and growth pool for cfg.
// The growth pool is subscribed to the bus.
func NewContext(cfg *config.Config, rng *rand.Rand) (*Context, error) {
	world, err := grid.NewWorld(cfg.World.Rows, cfg.World.Columns)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}

	ctx := &Context{
		Cfg:      cfg,
		World:    world,
		Bus:      bus.New(),
		Registry: NewRegistry(cfg.Organism.MaxPopulation, cfg.Plant.MaxPopulation),
		Pool:     NewEnergyPool(cfg.Plant.InitialEnergy),
		Rng:      rng,
	}
	ctx.Bus.Subscribe(ctx.Pool)
	return ctx, nil
}

// TakeBirths returns the organisms cloned since the last call and clears the list.
func (c *Context) TakeBirths() []*Cell {
	b := c.births
	c.births = nil
	return b
}

func (c *Context) addBirth(cell *Cell) {
	c.births = append(c.births, cell)
}
