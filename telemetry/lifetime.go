package telemetry

import "github.com/pthm-cable/cellsim/bus"

// LifetimeStats tracks per-organism statistics over its lifetime.
type LifetimeStats struct {
	BirthTick  int32
	DeathTick  int32
	Dead       bool
	Generation int
	ParentID   uint32

	Meals    int
	Children int
}

// Lifespan returns the ticks lived, up to now for a living organism.
func (s *LifetimeStats) Lifespan(now int32) int32 {
	if s.Dead {
		return s.DeathTick - s.BirthTick
	}
	return now - s.BirthTick
}

// LifetimeTracker manages per-organism lifetime statistics. It subscribes
// to births, deaths and meals; founders are added with Register.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
	now   func() int32

	// Lifespans of organisms that died since the last TakeLifespans.
	lifespans []int32
}

// NewLifetimeTracker creates a tracker. now reports the current tick.
func NewLifetimeTracker(now func() int32) *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
		now:   now,
	}
}

// Register creates lifetime stats for a new organism.
func (lt *LifetimeTracker) Register(id uint32, birthTick int32, generation int, parentID uint32) {
	lt.stats[id] = &LifetimeStats{
		BirthTick:  birthTick,
		Generation: generation,
		ParentID:   parentID,
	}
}

// Get returns the lifetime stats for an organism, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove records the death of an organism and returns its stats.
func (lt *LifetimeTracker) Remove(id uint32, deathTick int32) *LifetimeStats {
	s := lt.stats[id]
	if s == nil {
		return nil
	}
	delete(lt.stats, id)
	s.DeathTick = deathTick
	s.Dead = true
	lt.lifespans = append(lt.lifespans, s.Lifespan(deathTick))
	return s
}

// RecordMeal increments the meal count.
func (lt *LifetimeTracker) RecordMeal(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Meals++
	}
}

// RecordChild increments the children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// Count returns the number of tracked living organisms.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// TakeLifespans returns the lifespans recorded since the previous call, in
// death order, and starts a new batch.
func (lt *LifetimeTracker) TakeLifespans() []int32 {
	out := lt.lifespans
	lt.lifespans = nil
	return out
}

// HandleEvent implements bus.Handler.
func (lt *LifetimeTracker) HandleEvent(ev bus.Event) error {
	switch ev.Topic {
	case bus.TopicOrganismBorn:
		gen := 0
		if parent := lt.stats[ev.Parent.ID()]; parent != nil {
			gen = parent.Generation + 1
		}
		lt.Register(ev.Subject.ID(), lt.now(), gen, ev.Parent.ID())
		lt.RecordChild(ev.Parent.ID())
	case bus.TopicOrganismDied:
		lt.Remove(ev.Subject.ID(), lt.now())
	case bus.TopicPlantCellEaten:
		lt.RecordMeal(ev.Eater.ID())
	}
	return nil
}

// Topics implements bus.Handler.
func (lt *LifetimeTracker) Topics() []bus.Topic {
	return []bus.Topic{bus.TopicOrganismBorn, bus.TopicOrganismDied, bus.TopicPlantCellEaten}
}
