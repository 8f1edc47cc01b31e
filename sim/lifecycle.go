package sim

import (
	"fmt"

	"github.com/pthm-cable/cellsim/grid"
	"github.com/pthm-cable/cellsim/systems"
)

// spawnFounders places the founder organisms: the first at the grid center,
// the rest at random empty slots.
func (s *Simulation) spawnFounders() error {
	cfg := s.cfg.Organism
	genome, err := systems.ParseGenome(cfg.FounderGenome, s.cfg.Derived.Alphabet)
	if err != nil {
		return err
	}

	for i := range cfg.FounderCount {
		pos := s.ctx.World.Center()
		if i > 0 {
			var ok bool
			if pos, ok = s.randomEmpty(); !ok {
				return fmt.Errorf("no empty slot for founder %d", i)
			}
		}

		c, err := systems.SpawnCell(s.ctx, genome.Clone(), 0, cfg.FounderEnergy, pos, 0)
		if err != nil {
			return err
		}
		s.cells = append(s.cells, c)
		s.lifetime.Register(c.ID(), s.tick, 0, 0)
	}
	return nil
}

// seedPlants creates the plants. The first is seeded next to the first
// founder so it has food in reach; the rest start at random empty slots.
func (s *Simulation) seedPlants() error {
	for i := range s.cfg.Plant.SeedCount {
		p, err := systems.NewPlant(s.ctx)
		if err != nil {
			return err
		}

		pos, ok := s.plantSeedPos(i)
		if !ok {
			return fmt.Errorf("no empty slot for plant %d", i)
		}
		if err := p.Seed(pos); err != nil {
			return err
		}
		s.plants = append(s.plants, p)
	}
	return nil
}

func (s *Simulation) plantSeedPos(i int) (grid.Pos, bool) {
	if i == 0 && len(s.cells) > 0 {
		spots := s.ctx.World.EmptyCNeighbors(s.cells[0].Pos())
		if len(spots) > 0 {
			return spots[s.ctx.Rng.Intn(len(spots))], true
		}
	}
	return s.randomEmpty()
}

// randomEmpty picks a uniformly random empty slot.
func (s *Simulation) randomEmpty() (grid.Pos, bool) {
	w := s.ctx.World
	var empty []grid.Pos
	for row := range w.Rows() {
		for col := range w.Cols() {
			if p := (grid.Pos{Row: row, Col: col}); w.IsEmpty(p) {
				empty = append(empty, p)
			}
		}
	}
	if len(empty) == 0 {
		return grid.Pos{}, false
	}
	return empty[s.ctx.Rng.Intn(len(empty))], true
}
