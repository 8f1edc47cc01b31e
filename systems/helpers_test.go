package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
)

// newTestContext builds a context over a small world from the default
// config with an empty growth pool. edit runs before the context is created.
func newTestContext(t *testing.T, rows, cols int, edit func(*config.Config)) *Context {
	t.Helper()
	cfg := config.Default()
	cfg.World.Rows = rows
	cfg.World.Columns = cols
	cfg.Plant.InitialEnergy = 0
	if edit != nil {
		edit(cfg)
	}
	ctx, err := NewContext(cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

// spawn places a registered organism or fails the test.
func spawn(t *testing.T, ctx *Context, genome string, energy int, pos grid.Pos) *Cell {
	t.Helper()
	c, err := SpawnCell(ctx, Genome(genome), 0, energy, pos, 0)
	if err != nil {
		t.Fatalf("SpawnCell at %v: %v", pos, err)
	}
	return c
}

// setAge overwrites the age component of a live organism.
func setAge(c *Cell, ticks int) {
	c.reg.age.Get(c.entity).Ticks = ticks
}

func newTestPlant(t *testing.T, ctx *Context) *Plant {
	t.Helper()
	p, err := NewPlant(ctx)
	if err != nil {
		t.Fatalf("NewPlant: %v", err)
	}
	return p
}
