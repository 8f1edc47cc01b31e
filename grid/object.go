package grid

// Kind tags what occupies a grid slot.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindOrganism
	KindPlantCell

	numKinds
)

// String returns the kind name used in logs and telemetry.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindOrganism:
		return "organism"
	case KindPlantCell:
		return "plant_cell"
	default:
		return "unknown"
	}
}

// Occupant is anything that can be placed in the World.
// Implementations embed Object, which carries the bookkeeping the World maintains.
type Occupant interface {
	ID() uint32
	Kind() Kind
	Pos() Pos
	object() *Object
}

// Object is the embeddable base of every grid occupant.
// The World is a non-owning back-reference set while the object is placed.
type Object struct {
	id    uint32
	kind  Kind
	pos   Pos
	world *World
}

// NewObject creates an unplaced object with the given identity and kind.
func NewObject(id uint32, kind Kind) Object {
	return Object{id: id, kind: kind}
}

// ID returns the stable identity.
func (o *Object) ID() uint32 { return o.id }

// Kind returns the occupant kind tag.
func (o *Object) Kind() Kind { return o.kind }

// Pos returns the recorded grid position. Only meaningful while Placed.
func (o *Object) Pos() Pos { return o.pos }

// World returns the world the object is placed in, or nil.
func (o *Object) World() *World { return o.world }

// Placed reports whether the object currently occupies a grid slot.
func (o *Object) Placed() bool { return o.world != nil }

func (o *Object) object() *Object { return o }
