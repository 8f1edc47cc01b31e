// Package grid implements the bounded 2D world and its occupancy queries.
package grid

import (
	"errors"
	"fmt"
)

// Contract violations returned by Place, Remove and Move.
var (
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrOccupied    = errors.New("slot already occupied")
	ErrNotPresent  = errors.New("occupant not present at slot")
	ErrPlaced      = errors.New("occupant already placed")
)

// World is a fixed-size grid where each slot holds at most one occupant.
// Edges are hard boundaries; there is no wraparound.
type World struct {
	rows, cols int

	// Parallel slices indexed by row*cols+col. kinds is the by-value tag
	// consulted by neighbor queries; occ holds the occupant itself.
	kinds []Kind
	occ   []Occupant

	counts [numKinds]int
}

// NewWorld creates an empty rows×cols world.
func NewWorld(rows, cols int) (*World, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", rows, cols)
	}
	return &World{
		rows:  rows,
		cols:  cols,
		kinds: make([]Kind, rows*cols),
		occ:   make([]Occupant, rows*cols),
	}, nil
}

// Rows returns the number of rows.
func (w *World) Rows() int { return w.rows }

// Cols returns the number of columns.
func (w *World) Cols() int { return w.cols }

// Center returns the middle slot.
func (w *World) Center() Pos { return Pos{Row: w.rows / 2, Col: w.cols / 2} }

func (w *World) idx(p Pos) int {
	return p.Row*w.cols + p.Col
}

// InBounds reports whether p lies on the grid.
func (w *World) InBounds(p Pos) bool {
	return p.Row >= 0 && p.Row < w.rows && p.Col >= 0 && p.Col < w.cols
}

// KindAt returns the kind tag at p. Out-of-bounds positions read as empty.
func (w *World) KindAt(p Pos) Kind {
	if !w.InBounds(p) {
		return KindEmpty
	}
	return w.kinds[w.idx(p)]
}

// At returns the occupant at p, or nil.
func (w *World) At(p Pos) Occupant {
	if !w.InBounds(p) {
		return nil
	}
	return w.occ[w.idx(p)]
}

// IsEmpty reports whether p is on the grid and unoccupied.
func (w *World) IsEmpty(p Pos) bool {
	return w.InBounds(p) && w.kinds[w.idx(p)] == KindEmpty
}

// Count returns the number of placed occupants of kind k.
func (w *World) Count(k Kind) int {
	if k >= numKinds {
		return 0
	}
	return w.counts[k]
}

// EmptyNeighbors returns the in-bounds unoccupied slots among the eight
// neighbors of p, scanned N, S, E, W, NE, NW, SE, SW.
func (w *World) EmptyNeighbors(p Pos) []Pos {
	out := make([]Pos, 0, len(moore))
	for _, d := range moore {
		if n := p.Add(d); w.IsEmpty(n) {
			out = append(out, n)
		}
	}
	return out
}

// EmptyCNeighbors is EmptyNeighbors restricted to N, S, E, W.
func (w *World) EmptyCNeighbors(p Pos) []Pos {
	out := make([]Pos, 0, len(cardinal))
	for _, d := range cardinal {
		if n := p.Add(d); w.IsEmpty(n) {
			out = append(out, n)
		}
	}
	return out
}

// CNeighborsOfKind returns the occupants of kind k on the cardinal
// neighbors of p, in N, S, E, W order.
func (w *World) CNeighborsOfKind(p Pos, k Kind) []Occupant {
	var out []Occupant
	for _, d := range cardinal {
		n := p.Add(d)
		if w.InBounds(n) && w.kinds[w.idx(n)] == k && k != KindEmpty {
			out = append(out, w.occ[w.idx(n)])
		}
	}
	return out
}

// Place puts o into the slot at p and records the position on o.
func (w *World) Place(o Occupant, p Pos) error {
	obj := o.object()
	if obj.world != nil {
		return fmt.Errorf("place %s %d at %v: %w", obj.kind, obj.id, p, ErrPlaced)
	}
	if !w.InBounds(p) {
		return fmt.Errorf("place %s %d at %v: %w", obj.kind, obj.id, p, ErrOutOfBounds)
	}
	i := w.idx(p)
	if w.kinds[i] != KindEmpty {
		return fmt.Errorf("place %s %d at %v: %w", obj.kind, obj.id, p, ErrOccupied)
	}

	w.kinds[i] = obj.kind
	w.occ[i] = o
	w.counts[obj.kind]++
	obj.pos = p
	obj.world = w
	return nil
}

// Remove clears the slot at p. It fails unless the slot currently holds o,
// which guards against freeing the same occupant twice.
func (w *World) Remove(p Pos, o Occupant) error {
	obj := o.object()
	if !w.InBounds(p) {
		return fmt.Errorf("remove %s %d at %v: %w", obj.kind, obj.id, p, ErrOutOfBounds)
	}
	i := w.idx(p)
	if w.occ[i] == nil || w.occ[i].object() != obj {
		return fmt.Errorf("remove %s %d at %v: %w", obj.kind, obj.id, p, ErrNotPresent)
	}

	w.kinds[i] = KindEmpty
	w.occ[i] = nil
	w.counts[obj.kind]--
	obj.world = nil
	return nil
}

// Move relocates a placed occupant to an empty slot.
func (w *World) Move(o Occupant, to Pos) error {
	obj := o.object()
	if obj.world != w {
		return fmt.Errorf("move %s %d: %w", obj.kind, obj.id, ErrNotPresent)
	}
	if !w.InBounds(to) {
		return fmt.Errorf("move %s %d to %v: %w", obj.kind, obj.id, to, ErrOutOfBounds)
	}
	j := w.idx(to)
	if w.kinds[j] != KindEmpty {
		return fmt.Errorf("move %s %d to %v: %w", obj.kind, obj.id, to, ErrOccupied)
	}
	i := w.idx(obj.pos)
	if w.occ[i] == nil || w.occ[i].object() != obj {
		return fmt.Errorf("move %s %d from %v: %w", obj.kind, obj.id, obj.pos, ErrNotPresent)
	}

	w.kinds[j], w.occ[j] = w.kinds[i], w.occ[i]
	w.kinds[i], w.occ[i] = KindEmpty, nil
	obj.pos = to
	return nil
}

// Verify checks the occupancy invariant: every occupant's recorded position
// points back at the slot holding it, and kind tags agree with occupants.
func (w *World) Verify() error {
	var counts [numKinds]int
	for i, o := range w.occ {
		p := Pos{Row: i / w.cols, Col: i % w.cols}
		if o == nil {
			if w.kinds[i] != KindEmpty {
				return fmt.Errorf("grid: slot %v tagged %s without an occupant", p, w.kinds[i])
			}
			continue
		}
		obj := o.object()
		if obj.world != w || obj.pos != p {
			return fmt.Errorf("grid: %s %d recorded at %v but stored at %v", obj.kind, obj.id, obj.pos, p)
		}
		if w.kinds[i] != obj.kind {
			return fmt.Errorf("grid: slot %v tagged %s holds %s %d", p, w.kinds[i], obj.kind, obj.id)
		}
		counts[obj.kind]++
	}
	for k := KindOrganism; k < numKinds; k++ {
		if counts[k] != w.counts[k] {
			return fmt.Errorf("grid: %s count %d, cached %d", k, counts[k], w.counts[k])
		}
	}
	return nil
}
