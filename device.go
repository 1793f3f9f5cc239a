package miniptm

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/BeatGlow/miniptm/mmio"
)

// State of a Device.
type State uint8

// States.
const (
	StateCandidate State = iota
	StateRejected
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCandidate:
		return "candidate"
	case StateRejected:
		return "rejected"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Device is one controller driven by a Manager.
type Device struct {
	candidate Candidate
	state     atomic.Uint32
	regs      mmio.Window
	chip      *Chip
	adapter   *Adapter
	bus       int

	chipRegistered bool
	busRegistered  bool
}

func (d *Device) String() string {
	return d.candidate.String()
}

// Candidate returns the controller the device was built from.
func (d *Device) Candidate() Candidate {
	return d.candidate
}

// State returns the lifecycle state.
func (d *Device) State() State {
	return State(d.state.Load())
}

func (d *Device) setState(s State) {
	d.state.Store(uint32(s))
}

// Chip returns the GPIO chip.
func (d *Device) Chip() *Chip {
	return d.chip
}

// Adapter returns the I²C bus.
func (d *Device) Adapter() *Adapter {
	return d.adapter
}

// BusNumber is the number the I²C bus was registered as.
func (d *Device) BusNumber() int {
	return d.bus
}

// ApplyLEDErrata switches every LED off. It overwrites the whole LEDCTL
// register and is only meant to run once, right after setup.
func (d *Device) ApplyLEDErrata() {
	d.regs.Write32(RegLEDConfig, LEDErrataValue)
}

// release frees what setup acquired, in reverse order. Each resource is
// released at most once, failures do not stop the others.
func (d *Device) release(gpio GPIORegistrar, bus BusRegistrar) (err error) {
	if d.busRegistered {
		err = multierr.Append(err, bus.UnregisterBus(d.adapter))
		d.busRegistered = false
	}
	if d.adapter != nil {
		err = multierr.Append(err, d.adapter.Close())
		d.adapter = nil
	}
	if d.chipRegistered {
		err = multierr.Append(err, gpio.UnregisterChip(d.chip))
		d.chipRegistered = false
	}
	if d.regs != nil {
		if d.chip != nil {
			d.chip.close()
		}
		err = multierr.Append(err, d.regs.Close())
		d.regs = nil
	}
	return
}
