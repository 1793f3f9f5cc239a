package miniptm

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is one SDP of a Chip. It implements gpio.PinIO.
type Pin struct {
	chip  *Chip
	index int
}

var _ gpio.PinIO = (*Pin)(nil)

func (p *Pin) String() string {
	return p.Name()
}

// Name is unique per controller, e.g. "0000:01:00.0/SDP2".
func (p *Pin) Name() string {
	return fmt.Sprintf("%s/%s", p.chip.name, sdps[p.index].name)
}

// Number is the global pin number, -1 while the chip is not registered.
func (p *Pin) Number() int {
	base := p.chip.Base()
	if base < 0 {
		return -1
	}
	return base + p.index
}

// Function returns the direction and level, e.g. "In/High", or "Closed"
// once the controller is gone.
func (p *Pin) Function() string {
	d, l, err := p.chip.direction(sdps[p.index])
	if err != nil {
		return "Closed"
	}
	return fmt.Sprintf("%s/%s", d, l)
}

// Halt does nothing.
func (p *Pin) Halt() error {
	return nil
}

// In switches the pin to input. The SDPs have no internal pull resistors
// and no edge detection.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.Float && pull != gpio.PullNoChange {
		return fmt.Errorf("miniptm: %s: pull %s not supported", p, pull)
	}
	if edge != gpio.NoEdge {
		return fmt.Errorf("miniptm: %s: edge detection not supported", p)
	}
	return p.chip.setDirection(sdps[p.index], Input)
}

// Read returns the pin level, gpio.Low once the controller is gone.
func (p *Pin) Read() gpio.Level {
	l, _ := p.chip.get(sdps[p.index])
	return l
}

// WaitForEdge always returns false.
func (p *Pin) WaitForEdge(_ time.Duration) bool {
	return false
}

// Pull returns gpio.PullNoChange, pulls are external to the controller.
func (p *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull returns gpio.Float.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out switches the pin to output and drives l.
func (p *Pin) Out(l gpio.Level) error {
	return p.chip.directionOutput(sdps[p.index], l)
}

// PWM is not supported.
func (p *Pin) PWM(_ gpio.Duty, _ physic.Frequency) error {
	return fmt.Errorf("miniptm: %s: PWM not supported", p)
}
