package systems

import (
	"testing"

	"github.com/pthm-cable/cellsim/bus"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/grid"
)

// topicCounter counts events per topic.
type topicCounter struct {
	topics []bus.Topic
	seen   map[bus.Topic]int
}

func newTopicCounter(topics ...bus.Topic) *topicCounter {
	return &topicCounter{topics: topics, seen: make(map[bus.Topic]int)}
}

func (c *topicCounter) HandleEvent(ev bus.Event) error {
	c.seen[ev.Topic]++
	return nil
}

func (c *topicCounter) Topics() []bus.Topic { return c.topics }

func TestCellMovesAndPaysIntoPool(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	c := spawn(t, ctx, "NNNNNNNN", 5, grid.Pos{Row: 5, Col: 5})

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out != OutcomeMoved {
		t.Errorf("outcome = %s, want moved", out)
	}
	if c.Pos() != (grid.Pos{Row: 4, Col: 5}) {
		t.Errorf("position = %v, want {4 5}", c.Pos())
	}
	if c.Energy() != 4 || ctx.Pool.Units() != 1 {
		t.Errorf("energy = %d, pool = %d; want 4, 1", c.Energy(), ctx.Pool.Units())
	}
	if c.PC() != 1 || c.Age() != 1 {
		t.Errorf("pc = %d, age = %d; want 1, 1", c.PC(), c.Age())
	}
	if err := ctx.World.Verify(); err != nil {
		t.Error(err)
	}
}

func TestCellGeneOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		genome string
		pos    grid.Pos
		want   Outcome
	}{
		{"noop", "________", grid.Pos{Row: 5, Col: 5}, OutcomeIdle},
		{"north edge", "NNNNNNNN", grid.Pos{Row: 0, Col: 5}, OutcomeBlocked},
		{"west edge", "WWWWWWWW", grid.Pos{Row: 5, Col: 0}, OutcomeBlocked},
		{"corner", "SSSSSSSS", grid.Pos{Row: 9, Col: 9}, OutcomeBlocked},
		{"east", "EEEEEEEE", grid.Pos{Row: 5, Col: 5}, OutcomeMoved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t, 10, 10, nil)
			c := spawn(t, ctx, tt.genome, 10, tt.pos)

			out, err := c.Tick(ctx)
			if err != nil {
				t.Fatalf("Tick: %v", err)
			}
			if out != tt.want {
				t.Errorf("outcome = %s, want %s", out, tt.want)
			}
			if c.PC() != 1 {
				t.Errorf("pc = %d, want 1", c.PC())
			}
			if tt.want != OutcomeMoved && c.Pos() != tt.pos {
				t.Errorf("position changed to %v", c.Pos())
			}
		})
	}
}

func TestCellBlockedByOccupant(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	c := spawn(t, ctx, "EEEEEEEE", 10, grid.Pos{Row: 5, Col: 5})
	spawn(t, ctx, "________", 10, grid.Pos{Row: 5, Col: 6})

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeBlocked || c.Pos() != (grid.Pos{Row: 5, Col: 5}) {
		t.Errorf("outcome = %s at %v, want blocked at {5 5}", out, c.Pos())
	}
}

func TestCellProgramCounterWraps(t *testing.T) {
	ctx := newTestContext(t, 10, 10, func(cfg *config.Config) {
		cfg.Organism.EnergyPerMove = 0
	})
	c := spawn(t, ctx, "NS", 10, grid.Pos{Row: 5, Col: 5})

	for range 5 {
		if _, err := c.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if c.PC() != 1 {
		t.Errorf("pc = %d after 5 ticks on a 2-gene genome, want 1", c.PC())
	}
	if c.Pos() != (grid.Pos{Row: 4, Col: 5}) {
		t.Errorf("position = %v, want {4 5}", c.Pos())
	}
}

func TestCellDies(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	died := newTopicCounter(bus.TopicOrganismDied)
	ctx.Bus.Subscribe(died)
	c := spawn(t, ctx, "NNNNNNNN", 0, grid.Pos{Row: 5, Col: 5})

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out != OutcomeDied || !c.Dead() {
		t.Fatalf("outcome = %s, dead = %v; want died", out, c.Dead())
	}
	if ctx.World.Count(grid.KindOrganism) != 0 || ctx.Registry.Count(grid.KindOrganism) != 0 {
		t.Error("dead organism still present in world or registry")
	}
	if ctx.Pool.Units() != 0 {
		t.Errorf("pool = %d, dying must not pay the move cost", ctx.Pool.Units())
	}
	if died.seen[bus.TopicOrganismDied] != 1 {
		t.Errorf("death events = %d, want 1", died.seen[bus.TopicOrganismDied])
	}

	if c.Energy() != 0 || c.Genome().String() != "NNNNNNNN" {
		t.Errorf("dead organism reads energy %d, genome %q", c.Energy(), c.Genome())
	}

	if _, err := c.Tick(ctx); err == nil {
		t.Error("ticking a dead organism succeeded")
	}
}

func TestCellMoveCostNeverOverdraws(t *testing.T) {
	ctx := newTestContext(t, 10, 10, func(cfg *config.Config) {
		cfg.Organism.EnergyPerMove = 3
	})
	c := spawn(t, ctx, "________", 1, grid.Pos{Row: 5, Col: 5})

	if _, err := c.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Energy() != 0 || ctx.Pool.Units() != 1 {
		t.Errorf("energy = %d, pool = %d; want 0, 1", c.Energy(), ctx.Pool.Units())
	}

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeDied {
		t.Errorf("outcome = %s, want died", out)
	}
}

func TestCellEatsAdjacentPlantCell(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	p := newTestPlant(t, ctx)
	if err := p.Seed(grid.Pos{Row: 4, Col: 5}); err != nil {
		t.Fatal(err)
	}
	c := spawn(t, ctx, "SSSSSSSS", 10, grid.Pos{Row: 5, Col: 5})

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out != OutcomeAte {
		t.Fatalf("outcome = %s, want ate", out)
	}
	want := 10 - ctx.Cfg.Organism.EnergyPerMove + ctx.Cfg.Plant.EnergyPerCell
	if c.Energy() != want {
		t.Errorf("energy = %d, want %d", c.Energy(), want)
	}
	if p.Size() != 0 || ctx.World.KindAt(grid.Pos{Row: 4, Col: 5}) != grid.KindEmpty {
		t.Error("eaten plant cell still present")
	}
	if ctx.Registry.Count(grid.KindPlantCell) != 0 {
		t.Error("eaten plant cell still registered")
	}
	if c.PC() != 0 || c.Pos() != (grid.Pos{Row: 5, Col: 5}) {
		t.Errorf("eating advanced pc to %d or moved to %v", c.PC(), c.Pos())
	}
	if c.Age() != 1 {
		t.Errorf("age = %d, want 1", c.Age())
	}
}

func TestCellClones(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	born := newTopicCounter(bus.TopicOrganismBorn)
	ctx.Bus.Subscribe(born)
	c := spawn(t, ctx, "NNNNNNNN", 41, grid.Pos{Row: 5, Col: 5})
	setAge(c, ctx.Cfg.Organism.Maturity+1)

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out != OutcomeCloned {
		t.Fatalf("outcome = %s, want cloned", out)
	}

	births := ctx.TakeBirths()
	if len(births) != 1 {
		t.Fatalf("births = %d, want 1", len(births))
	}
	d := births[0]

	before := 41 - ctx.Cfg.Organism.EnergyPerMove
	if d.Energy() != before/2 {
		t.Errorf("daughter energy = %d, want %d", d.Energy(), before/2)
	}
	if c.Energy()+d.Energy() != before {
		t.Errorf("parent %d + daughter %d != %d", c.Energy(), d.Energy(), before)
	}
	if d.Generation() != 1 {
		t.Errorf("daughter generation = %d, want 1", d.Generation())
	}
	if c.Genome().Diff(d.Genome()) > 1 {
		t.Errorf("daughter genome %q differs from %q in more than one position", d.Genome(), c.Genome())
	}
	if c.PC() != 0 || c.Age() != 1 {
		t.Errorf("parent pc = %d, age = %d; want 0, 1", c.PC(), c.Age())
	}

	dr, dc := d.Pos().Row-c.Pos().Row, d.Pos().Col-c.Pos().Col
	if dr < -1 || dr > 1 || dc < -1 || dc > 1 || (dr == 0 && dc == 0) {
		t.Errorf("daughter at %v is not adjacent to parent at %v", d.Pos(), c.Pos())
	}

	lin := ctx.Registry.organismState(d.entity).lineage
	if lin.ParentID != c.ID() || lin.Generation != 1 || lin.BirthTick != ctx.Tick {
		t.Errorf("daughter lineage = %+v", lin)
	}
	if born.seen[bus.TopicOrganismBorn] != 1 {
		t.Errorf("birth events = %d, want 1", born.seen[bus.TopicOrganismBorn])
	}
	if len(ctx.TakeBirths()) != 0 {
		t.Error("TakeBirths did not clear the list")
	}
	if err := ctx.World.Verify(); err != nil {
		t.Error(err)
	}
}

func TestCellCloneGates(t *testing.T) {
	tests := []struct {
		name   string
		energy int
		age    int
		cap    int
	}{
		{"hungry", 40, 10, 10},
		{"immature", 100, 3, 10},
		{"population cap", 100, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t, 10, 10, func(cfg *config.Config) {
				cfg.Organism.MaxPopulation = tt.cap
			})
			c := spawn(t, ctx, "EEEEEEEE", tt.energy, grid.Pos{Row: 5, Col: 5})
			setAge(c, tt.age)

			out, err := c.Tick(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if out != OutcomeMoved {
				t.Errorf("outcome = %s, want moved", out)
			}
			if len(ctx.TakeBirths()) != 0 {
				t.Error("organism cloned")
			}
		})
	}
}

func TestCellCloneFallsThroughWhenBoxedIn(t *testing.T) {
	ctx := newTestContext(t, 10, 10, nil)
	c := spawn(t, ctx, "WWWWWWWW", 41, grid.Pos{Row: 0, Col: 0})
	setAge(c, 10)
	for _, p := range []grid.Pos{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}} {
		spawn(t, ctx, "________", 100, p)
	}

	out, err := c.Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeBlocked {
		t.Errorf("outcome = %s, want blocked", out)
	}
	if c.Energy() != 40 || c.PC() != 1 {
		t.Errorf("energy = %d, pc = %d; want 40, 1", c.Energy(), c.PC())
	}
	if len(ctx.TakeBirths()) != 0 {
		t.Error("boxed-in organism cloned")
	}
}

func TestCellEnergyConservation(t *testing.T) {
	ctx := newTestContext(t, 20, 20, nil)
	var cells []*Cell
	for i := range 5 {
		cells = append(cells, spawn(t, ctx, "NESSWWWW", 3+i, grid.Pos{Row: 2 + 3*i, Col: 10}))
	}

	total := func() int {
		sum := 0
		for _, c := range cells {
			if !c.Dead() {
				sum += c.Energy()
			}
		}
		return sum
	}

	for tick := range 10 {
		before, pool := total(), ctx.Pool.Units()
		for _, c := range cells {
			if c.Dead() {
				continue
			}
			if _, err := c.Tick(ctx); err != nil {
				t.Fatalf("tick %d: %v", tick, err)
			}
		}
		lost := before - total()
		if gained := ctx.Pool.Units() - pool; gained != lost {
			t.Fatalf("tick %d: organisms lost %d, pool gained %d", tick, lost, gained)
		}
		for _, c := range cells {
			if c.Energy() < 0 {
				t.Fatalf("tick %d: organism %d energy %d", tick, c.ID(), c.Energy())
			}
		}
	}
}
