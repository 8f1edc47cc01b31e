package systems

import (
	"errors"
	"testing"

	"github.com/pthm-cable/cellsim/bus"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
)

func withSpecies(species string, factor float64) func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.Plant.Species = species
		cfg.Plant.RandGrowthFactor = factor
	}
}

func TestParseSpecies(t *testing.T) {
	tests := []struct {
		in      string
		want    Species
		wantErr bool
	}{
		{"geometric", Geometric, false},
		{"Sinuous", Sinuous, false},
		{"spiral", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSpecies(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSpecies(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewPlantRejectsZeroCellCost(t *testing.T) {
	ctx := newTestContext(t, 10, 10, func(cfg *config.Config) {
		cfg.Plant.EnergyPerCell = 0
	})
	if _, err := NewPlant(ctx); err == nil {
		t.Error("NewPlant accepted energy_per_cell 0")
	}
}

func TestGeometricGrowth(t *testing.T) {
	ctx := newTestContext(t, 21, 21, withSpecies(config.SpeciesGeometric, 0))
	p := newTestPlant(t, ctx)
	center := ctx.World.Center()
	if err := p.Seed(center); err != nil {
		t.Fatal(err)
	}

	// One pass from a single seed can only reach its four cardinal neighbors.
	if got := p.Grow(100); got != 4 {
		t.Fatalf("first Grow(100) = %d, want 4", got)
	}
	for _, d := range []grid.Direction{grid.North, grid.South, grid.East, grid.West} {
		if ctx.World.KindAt(center.Add(d)) != grid.KindPlantCell {
			t.Errorf("no plant cell %s of the seed", d)
		}
	}

	// Second pass fills the diamond of radius two.
	if got := p.Grow(100); got != 8 {
		t.Fatalf("second Grow(100) = %d, want 8", got)
	}
	if p.Size() != 13 {
		t.Errorf("Size() = %d, want 13", p.Size())
	}
	if err := ctx.World.Verify(); err != nil {
		t.Error(err)
	}
}

func TestGeometricGrowthStopsAtRequest(t *testing.T) {
	ctx := newTestContext(t, 10, 10, withSpecies(config.SpeciesGeometric, 0))
	p := newTestPlant(t, ctx)
	if err := p.Seed(grid.Pos{Row: 5, Col: 5}); err != nil {
		t.Fatal(err)
	}

	if got := p.Grow(2); got != 2 {
		t.Fatalf("Grow(2) = %d, want 2", got)
	}
	// Scan order is N, S, E, W.
	if ctx.World.KindAt(grid.Pos{Row: 4, Col: 5}) != grid.KindPlantCell ||
		ctx.World.KindAt(grid.Pos{Row: 6, Col: 5}) != grid.KindPlantCell {
		t.Error("geometric growth did not follow scan order")
	}
	if p.Size() != ctx.World.Count(grid.KindPlantCell) {
		t.Errorf("plant holds %d cells, world has %d", p.Size(), ctx.World.Count(grid.KindPlantCell))
	}
}

func TestSinuousGrowth(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
		rows   int
		cols   int
		n      int
		want   int
	}{
		{"factor one matches geometric", 1.0, 21, 21, 4, 4},
		{"factor one fills many passes", 1.0, 21, 21, 30, 30},
		{"factor zero stalls", 0.0, 21, 21, 10, 0},
		{"boxed in", 1.0, 1, 2, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t, tt.rows, tt.cols, withSpecies(config.SpeciesSinuous, tt.factor))
			p := newTestPlant(t, ctx)
			if err := p.Seed(grid.Pos{}); err != nil {
				t.Fatal(err)
			}

			if got := p.Grow(tt.n); got != tt.want {
				t.Errorf("Grow(%d) = %d, want %d", tt.n, got, tt.want)
			}
			if p.Size() != 1+tt.want {
				t.Errorf("Size() = %d, want %d", p.Size(), 1+tt.want)
			}
			if err := ctx.World.Verify(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSinuousPassCap(t *testing.T) {
	ctx := newTestContext(t, 21, 21, func(cfg *config.Config) {
		cfg.Plant.Species = config.SpeciesSinuous
		cfg.Plant.RandGrowthFactor = 1.0
		cfg.Plant.MaxGrowthPasses = 2
	})
	p := newTestPlant(t, ctx)
	if err := p.Seed(ctx.World.Center()); err != nil {
		t.Fatal(err)
	}

	// Each source claims one neighbor per pass: 1 then 2 cells.
	if got := p.Grow(100); got != 3 {
		t.Errorf("Grow(100) with two passes = %d, want 3", got)
	}
}

func TestPlantTick(t *testing.T) {
	ctx := newTestContext(t, 20, 20, withSpecies(config.SpeciesGeometric, 0))
	grown := newTopicCounter(bus.TopicPlantCellGrown)
	ctx.Bus.Subscribe(grown)
	p := newTestPlant(t, ctx)
	if err := p.Seed(ctx.World.Center()); err != nil {
		t.Fatal(err)
	}
	cost := ctx.Cfg.Plant.EnergyPerCell
	batch := ctx.Cfg.Plant.MinGrowthBatch

	// Below the minimum batch nothing grows and the pool is untouched.
	ctx.Pool.Deposit(cost*batch - 1)
	n, err := p.Tick()
	if err != nil || n != 0 {
		t.Fatalf("Tick below batch = %d, %v", n, err)
	}
	if ctx.Pool.Units() != cost*batch-1 {
		t.Errorf("pool = %d, want %d", ctx.Pool.Units(), cost*batch-1)
	}

	ctx.Pool.Deposit(1)
	n, err = p.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Tick grew %d cells, want 4", n)
	}
	if want := cost*batch - n*cost; ctx.Pool.Units() != want {
		t.Errorf("pool = %d, want %d", ctx.Pool.Units(), want)
	}
	if grown.seen[bus.TopicPlantCellGrown] != 1 {
		t.Errorf("growth events = %d, want 1", grown.seen[bus.TopicPlantCellGrown])
	}
}

func TestPlantCapSharedAcrossPlants(t *testing.T) {
	ctx := newTestContext(t, 20, 20, func(cfg *config.Config) {
		cfg.Plant.Species = config.SpeciesGeometric
		cfg.Plant.MaxPopulation = 6
	})
	a := newTestPlant(t, ctx)
	b := newTestPlant(t, ctx)
	if err := a.Seed(grid.Pos{Row: 5, Col: 5}); err != nil {
		t.Fatal(err)
	}
	if err := b.Seed(grid.Pos{Row: 15, Col: 15}); err != nil {
		t.Fatal(err)
	}

	a.Grow(100)
	b.Grow(100)
	if total := a.Size() + b.Size(); total != 6 {
		t.Errorf("plants hold %d cells, want cap 6", total)
	}
	if ctx.Registry.Remaining(grid.KindPlantCell) != 0 {
		t.Error("registry reports room above the cap")
	}
}

func TestFreeCellTwiceFails(t *testing.T) {
	ctx := newTestContext(t, 10, 10, withSpecies(config.SpeciesGeometric, 0))
	p := newTestPlant(t, ctx)
	if err := p.Seed(grid.Pos{Row: 5, Col: 5}); err != nil {
		t.Fatal(err)
	}
	cell := p.Cells()[0]

	if err := p.FreeCell(cell); err != nil {
		t.Fatalf("first FreeCell: %v", err)
	}
	if err := p.FreeCell(cell); !errors.Is(err, ErrNotOwned) {
		t.Errorf("second FreeCell error = %v, want ErrNotOwned", err)
	}
	if p.Size() != 0 || len(p.Cells()) != 0 {
		t.Errorf("Size() = %d after freeing the only cell", p.Size())
	}
	if ctx.World.Count(grid.KindPlantCell) != 0 || ctx.Registry.Count(grid.KindPlantCell) != 0 {
		t.Error("freed cell still in world or registry")
	}
}

func TestPlantIgnoresOtherPlantsCells(t *testing.T) {
	ctx := newTestContext(t, 10, 10, withSpecies(config.SpeciesGeometric, 0))
	a := newTestPlant(t, ctx)
	b := newTestPlant(t, ctx)
	if err := a.Seed(grid.Pos{Row: 2, Col: 2}); err != nil {
		t.Fatal(err)
	}
	if err := b.Seed(grid.Pos{Row: 7, Col: 7}); err != nil {
		t.Fatal(err)
	}
	eater := spawn(t, ctx, "________", 5, grid.Pos{Row: 2, Col: 3})

	cell := a.Cells()[0]
	if err := ctx.Bus.Send(eater, bus.NewPlantCellEatenEvent(cell, eater, 10)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if a.Size() != 0 || b.Size() != 1 {
		t.Errorf("sizes after meal = %d, %d; want 0, 1", a.Size(), b.Size())
	}
	if eater.Energy() != 15 {
		t.Errorf("eater energy = %d, want 15", eater.Energy())
	}
}
