// Package bus provides synchronous publish/subscribe delivery of simulation events.
package bus

import (
	"github.com/pthm-cable/cellsim/grid"
)

// Topic identifies an event type.
type Topic uint8

const (
	// TopicEnergyFreed carries movement energy spent by an organism.
	// Consumer: growth energy pool | Fields: Units
	TopicEnergyFreed Topic = iota

	// TopicPlantCellEaten signals an organism consuming an adjacent plant cell.
	// Consumers: owning plant (frees the cell), eater (gains Units)
	// Fields: Cell, Eater, Units
	TopicPlantCellEaten

	// TopicOrganismBorn signals a successful clone. Fields: Subject (daughter), Parent
	TopicOrganismBorn

	// TopicOrganismDied signals removal of an exhausted organism. Fields: Subject
	TopicOrganismDied

	// TopicPlantCellGrown signals plant growth. Fields: Units (cells grown)
	TopicPlantCellGrown

	numTopics
)

// String returns the topic name.
func (t Topic) String() string {
	switch t {
	case TopicEnergyFreed:
		return "energy_freed"
	case TopicPlantCellEaten:
		return "plant_cell_eaten"
	case TopicOrganismBorn:
		return "organism_born"
	case TopicOrganismDied:
		return "organism_died"
	case TopicPlantCellGrown:
		return "plant_cell_grown"
	default:
		return "unknown"
	}
}

// Event is an immutable message. Which fields are meaningful depends on Topic.
type Event struct {
	Topic Topic
	Units int

	Cell    grid.Occupant // eaten plant cell
	Eater   grid.Occupant // organism that ate Cell
	Subject grid.Occupant // organism born or died
	Parent  grid.Occupant // parent of a born organism
}

// NewEnergyFreedEvent creates an energy freed event.
func NewEnergyFreedEvent(units int) Event {
	return Event{Topic: TopicEnergyFreed, Units: units}
}

// NewPlantCellEatenEvent creates a plant cell eaten event worth units of energy.
func NewPlantCellEatenEvent(cell, eater grid.Occupant, units int) Event {
	return Event{Topic: TopicPlantCellEaten, Cell: cell, Eater: eater, Units: units}
}

// NewOrganismBornEvent creates a birth event.
func NewOrganismBornEvent(daughter, parent grid.Occupant) Event {
	return Event{Topic: TopicOrganismBorn, Subject: daughter, Parent: parent}
}

// NewOrganismDiedEvent creates a death event.
func NewOrganismDiedEvent(organism grid.Occupant) Event {
	return Event{Topic: TopicOrganismDied, Subject: organism}
}

// NewPlantCellGrownEvent creates a growth event for n new cells.
func NewPlantCellGrownEvent(n int) Event {
	return Event{Topic: TopicPlantCellGrown, Units: n}
}

// Handler receives events.
type Handler interface {
	// HandleEvent processes a single event. Called synchronously during Publish or Send.
	HandleEvent(ev Event) error

	// Topics returns the topics delivered to this handler by Publish.
	// A handler with no topics still receives events addressed to it with Send.
	Topics() []Topic
}

// Bus dispatches events to subscribers before the publishing call returns.
//
// Architecture:
//   - Single-threaded dispatch, no queue
//   - Multiple handlers can subscribe to the same topic
//   - Handlers are invoked in subscription order
type Bus struct {
	handlers [numTopics][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for its declared topics.
func (b *Bus) Subscribe(h Handler) {
	for _, t := range h.Topics() {
		if t < numTopics {
			b.handlers[t] = append(b.handlers[t], h)
		}
	}
}

// Publish delivers ev to every subscriber of its topic, stopping at the first error.
func (b *Bus) Publish(ev Event) error {
	if ev.Topic >= numTopics {
		return nil
	}
	for _, h := range b.handlers[ev.Topic] {
		if err := h.HandleEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers ev to the subscribers of its topic and then to the recipient.
// Subscribers run first so ownership changes complete before the recipient
// acts on them; the recipient is skipped if a subscriber fails. A recipient
// that is also subscribed receives the event once.
func (b *Bus) Send(to Handler, ev Event) error {
	if ev.Topic >= numTopics {
		return to.HandleEvent(ev)
	}
	for _, h := range b.handlers[ev.Topic] {
		if h == to {
			continue
		}
		if err := h.HandleEvent(ev); err != nil {
			return err
		}
	}
	return to.HandleEvent(ev)
}
