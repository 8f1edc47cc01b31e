package systems

import (
	"fmt"

	"github.com/pthm-cable/cellsim/bus"
)

// EnergyPool is the growth energy shared by every plant in a run.
// Organisms fill it with spent movement energy; plants draw it down to grow.
type EnergyPool struct {
	units int
}

// NewEnergyPool creates a pool holding initial units.
func NewEnergyPool(initial int) *EnergyPool {
	return &EnergyPool{units: initial}
}

// Units returns the currently available energy.
func (p *EnergyPool) Units() int { return p.units }

// Deposit adds n units.
func (p *EnergyPool) Deposit(n int) {
	p.units += n
}

// Withdraw removes n units. Overdrawing is a contract violation.
func (p *EnergyPool) Withdraw(n int) error {
	if n < 0 || n > p.units {
		return fmt.Errorf("withdraw %d from growth pool holding %d", n, p.units)
	}
	p.units -= n
	return nil
}

// HandleEvent implements bus.Handler.
func (p *EnergyPool) HandleEvent(ev bus.Event) error {
	if ev.Topic == bus.TopicEnergyFreed {
		p.Deposit(ev.Units)
	}
	return nil
}

// Topics implements bus.Handler.
func (p *EnergyPool) Topics() []bus.Topic {
	return []bus.Topic{bus.TopicEnergyFreed}
}
