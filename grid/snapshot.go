package grid

import "strings"

// Snapshot is a read-only copy of the grid's kind tags, for renderers.
type Snapshot struct {
	rows, cols int
	kinds      []Kind
}

// Snapshot copies the current occupancy. Later world mutations do not affect it.
func (w *World) Snapshot() Snapshot {
	kinds := make([]Kind, len(w.kinds))
	copy(kinds, w.kinds)
	return Snapshot{rows: w.rows, cols: w.cols, kinds: kinds}
}

// Rows returns the number of rows.
func (s Snapshot) Rows() int { return s.rows }

// Cols returns the number of columns.
func (s Snapshot) Cols() int { return s.cols }

// At returns the kind at (row, col); out-of-range reads as empty.
func (s Snapshot) At(row, col int) Kind {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return KindEmpty
	}
	return s.kinds[row*s.cols+col]
}

// Count returns how many slots hold kind k.
func (s Snapshot) Count(k Kind) int {
	n := 0
	for _, v := range s.kinds {
		if v == k {
			n++
		}
	}
	return n
}

// String renders the grid one row per line: '.' empty, 'o' organism, '*' plant cell.
func (s Snapshot) String() string {
	var b strings.Builder
	b.Grow((s.cols + 1) * s.rows)
	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			switch s.kinds[r*s.cols+c] {
			case KindOrganism:
				b.WriteByte('o')
			case KindPlantCell:
				b.WriteByte('*')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
