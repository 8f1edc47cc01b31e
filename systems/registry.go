package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellsim/components"
	"github.com/pthm-cable/cellsim/grid"
)

// Registry contract violations.
var (
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrUnknownEntity   = errors.New("entity not registered")
	ErrPopulationCap   = errors.New("population cap reached")
)

// Registry assigns identities and stores the state of every live organism
// and plant cell as ECS components. Per-kind counts come from ECS queries,
// checked against the configured caps.
//
// The ECS world holds the state but not the order: removals reorder its
// tables, so the scheduler and the plants keep their own insertion-ordered
// handles.
type Registry struct {
	world *ecs.World

	organisms  *ecs.Map5[components.Identity, components.Lineage, components.Energy, components.Age, components.Program]
	plantCells *ecs.Map3[components.Identity, components.Lineage, components.Owner]

	identity *ecs.Map1[components.Identity]
	energy   *ecs.Map1[components.Energy]
	age      *ecs.Map1[components.Age]
	program  *ecs.Map1[components.Program]
	owner    *ecs.Map1[components.Owner]

	organismFilter *ecs.Filter3[components.Lineage, components.Energy, components.Program]
	plantFilter    *ecs.Filter1[components.Owner]

	entities map[uint32]ecs.Entity
	nextID   uint32
	caps     map[grid.Kind]int
}

// NewRegistry creates a registry with the given population caps.
func NewRegistry(organismCap, plantCellCap int) *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world: world,

		organisms:  ecs.NewMap5[components.Identity, components.Lineage, components.Energy, components.Age, components.Program](world),
		plantCells: ecs.NewMap3[components.Identity, components.Lineage, components.Owner](world),

		identity: ecs.NewMap1[components.Identity](world),
		energy:   ecs.NewMap1[components.Energy](world),
		age:      ecs.NewMap1[components.Age](world),
		program:  ecs.NewMap1[components.Program](world),
		owner:    ecs.NewMap1[components.Owner](world),

		organismFilter: ecs.NewFilter3[components.Lineage, components.Energy, components.Program](world),
		plantFilter:    ecs.NewFilter1[components.Owner](world),

		entities: make(map[uint32]ecs.Entity),
		nextID:   1,
		caps: map[grid.Kind]int{
			grid.KindOrganism:  organismCap,
			grid.KindPlantCell: plantCellCap,
		},
	}
}

// NextID returns a fresh identity. Identities are never reused.
func (r *Registry) NextID() uint32 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *Registry) admit(id uint32, kind grid.Kind) error {
	if _, ok := r.entities[id]; ok {
		return fmt.Errorf("register %s %d: %w", kind, id, ErrDuplicateEntity)
	}
	if !r.HasRoom(kind) {
		return fmt.Errorf("register %s %d: %w (%d)", kind, id, ErrPopulationCap, r.caps[kind])
	}
	return nil
}

// RegisterOrganism creates the ECS entity of a new organism. The genome is
// stored as given; callers hand over ownership.
func (r *Registry) RegisterOrganism(id uint32, lin components.Lineage, energy int, genome Genome) (ecs.Entity, error) {
	if err := r.admit(id, grid.KindOrganism); err != nil {
		return ecs.Entity{}, err
	}
	e := r.organisms.NewEntity(
		&components.Identity{ID: id, Kind: grid.KindOrganism},
		&lin,
		&components.Energy{Units: energy},
		&components.Age{},
		&components.Program{Genes: genome},
	)
	r.entities[id] = e
	return e, nil
}

// RegisterPlantCell creates the ECS entity of a new plant cell owned by plant.
func (r *Registry) RegisterPlantCell(id, plant uint32, birthTick int32) (ecs.Entity, error) {
	if err := r.admit(id, grid.KindPlantCell); err != nil {
		return ecs.Entity{}, err
	}
	e := r.plantCells.NewEntity(
		&components.Identity{ID: id, Kind: grid.KindPlantCell},
		&components.Lineage{BirthTick: birthTick},
		&components.Owner{Plant: plant},
	)
	r.entities[id] = e
	return e, nil
}

// Unregister removes a live entity of the given kind.
func (r *Registry) Unregister(id uint32, kind grid.Kind) error {
	e, ok := r.entities[id]
	if !ok || r.identity.Get(e).Kind != kind {
		return fmt.Errorf("unregister %s %d: %w", kind, id, ErrUnknownEntity)
	}
	r.world.RemoveEntity(e)
	delete(r.entities, id)
	return nil
}

// Alive reports whether id is registered.
func (r *Registry) Alive(id uint32) bool {
	_, ok := r.entities[id]
	return ok
}

// PlantOwner returns the plant that owns a live plant cell.
func (r *Registry) PlantOwner(id uint32) (uint32, bool) {
	e, ok := r.entities[id]
	if !ok || !r.owner.HasAll(e) {
		return 0, false
	}
	return r.owner.Get(e).Plant, true
}

// Count returns the number of live entities of a kind.
func (r *Registry) Count(kind grid.Kind) int {
	switch kind {
	case grid.KindOrganism:
		q := r.organismFilter.Query()
		n := q.Count()
		q.Close()
		return n
	case grid.KindPlantCell:
		q := r.plantFilter.Query()
		n := q.Count()
		q.Close()
		return n
	default:
		return 0
	}
}

// Cap returns the population cap of a kind.
func (r *Registry) Cap(kind grid.Kind) int {
	return r.caps[kind]
}

// Remaining returns how many more entities of a kind fit under the cap.
func (r *Registry) Remaining(kind grid.Kind) int {
	return max(r.caps[kind]-r.Count(kind), 0)
}

// HasRoom reports whether one more entity of a kind fits under the cap.
func (r *Registry) HasRoom(kind grid.Kind) bool {
	return r.Remaining(kind) > 0
}

// Census summarizes the live population.
type Census struct {
	Organisms      int
	PlantCells     int
	MaxGeneration  int
	MeanGeneration float64
	OrganismEnergy int // summed energy stores
}

// Census walks the organism components.
func (r *Registry) Census() Census {
	c := Census{PlantCells: r.Count(grid.KindPlantCell)}
	var genSum int

	query := r.organismFilter.Query()
	for query.Next() {
		lin, energy, _ := query.Get()
		c.Organisms++
		c.OrganismEnergy += energy.Units
		genSum += lin.Generation
		c.MaxGeneration = max(c.MaxGeneration, lin.Generation)
	}

	if c.Organisms > 0 {
		c.MeanGeneration = float64(genSum) / float64(c.Organisms)
	}
	return c
}

// EachOrganism calls fn with the state of every live organism, in no
// particular order. fn must not register or unregister entities.
func (r *Registry) EachOrganism(fn func(lin components.Lineage, energy int, genome Genome)) {
	query := r.organismFilter.Query()
	for query.Next() {
		lin, energy, prog := query.Get()
		fn(*lin, energy.Units, Genome(prog.Genes))
	}
}

// organismState copies the components of a live organism.
func (r *Registry) organismState(e ecs.Entity) organismState {
	_, lin, energy, age, prog := r.organisms.Get(e)
	return organismState{lineage: *lin, energy: energy.Units, age: age.Ticks, genes: prog.Genes, pc: prog.PC}
}

// organismState is a snapshot of an organism's components.
type organismState struct {
	lineage components.Lineage
	energy  int
	age     int
	genes   []byte
	pc      int
}
