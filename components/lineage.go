// Package components defines the ECS components that hold organism and
// plant cell state.
package components

import "github.com/pthm-cable/cellsim/grid"

// Identity ties an ECS entity to a grid occupant.
type Identity struct {
	ID   uint32
	Kind grid.Kind
}

// Lineage records ancestry for organisms. Plant cells carry only a birth tick.
type Lineage struct {
	Generation int
	ParentID   uint32 // 0 for founders and plant cells
	BirthTick  int32
}
