package grid

// Pos is a (row, column) grid coordinate. Row 0 is the northern edge.
type Pos struct {
	Row, Col int
}

// Add returns the position one step in direction d.
func (p Pos) Add(d Direction) Pos {
	off := offsets[d]
	return Pos{Row: p.Row + off.Row, Col: p.Col + off.Col}
}

// Direction identifies one of the eight neighboring cells.
type Direction uint8

const (
	North Direction = iota
	South
	East
	West
	NorthEast
	NorthWest
	SouthEast
	SouthWest
)

var offsets = [...]Pos{
	North:     {-1, 0},
	South:     {1, 0},
	East:      {0, 1},
	West:      {0, -1},
	NorthEast: {-1, 1},
	NorthWest: {-1, -1},
	SouthEast: {1, 1},
	SouthWest: {1, -1},
}

// Scan orders used by the neighbor queries. Callers rely on them being fixed.
var (
	cardinal = [...]Direction{North, South, East, West}
	moore    = [...]Direction{North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest}
)

// String returns the compass abbreviation.
func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	case NorthEast:
		return "NE"
	case NorthWest:
		return "NW"
	case SouthEast:
		return "SE"
	case SouthWest:
		return "SW"
	default:
		return "?"
	}
}

// GeneDirection maps a directional gene symbol (N, S, E, W) to its direction.
// ok is false for any other symbol, including the no-op gene.
func GeneDirection(gene byte) (d Direction, ok bool) {
	switch gene {
	case 'N':
		return North, true
	case 'S':
		return South, true
	case 'E':
		return East, true
	case 'W':
		return West, true
	}
	return 0, false
}
