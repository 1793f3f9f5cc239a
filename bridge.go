package miniptm

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/miniptm/mmio"
)

var debug bool

func init() {
	debug = os.Getenv("MINIPTM_DEBUG") != ""
}

// Label of every Chip, as reported to GPIO consumers.
const Label = "MiniPTM_GPIO"

// Direction of a pin.
type Direction uint8

// Directions.
const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "Out"
	}
	return "In"
}

// Chip is the GPIO view of the SDP2 and SDP3 pins of one controller.
//
// Every operation is a read-modify-write of the CTRL_EXT register. Both pins
// share that register, so the cycles are serialised per chip.
type Chip struct {
	mu     sync.Mutex
	name   string
	regs   mmio.Window
	pins   [NumPins]*Pin
	base   int
	closed bool
}

// NewChip returns the chip of the controller whose registers are mapped at regs.
func NewChip(name string, regs mmio.Window) *Chip {
	c := &Chip{
		name: name,
		regs: regs,
		base: -1,
	}
	for i := range c.pins {
		c.pins[i] = &Pin{chip: c, index: i}
	}
	return c
}

func (c *Chip) String() string {
	return fmt.Sprintf("%s %s", Label, c.name)
}

// Label returns the chip label.
func (c *Chip) Label() string {
	return Label
}

// NumPins returns the number of pins.
func (c *Chip) NumPins() int {
	return NumPins
}

// CanSleep is always true. Bit-banged I²C sleeps between line transitions,
// so the pins must only be used from contexts that may block.
func (c *Chip) CanSleep() bool {
	return true
}

// Base is the first global pin number, -1 while the chip is not registered.
func (c *Chip) Base() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

func (c *Chip) setBase(base int) {
	c.mu.Lock()
	c.base = base
	c.mu.Unlock()
}

// Closed reports whether the register window was released. Every operation
// of a closed chip fails with ErrClosed.
func (c *Chip) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// close detaches the chip from its register window, which the caller
// unmaps afterwards.
func (c *Chip) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Pin returns pin i.
func (c *Chip) Pin(i int) (*Pin, error) {
	if i < 0 || i >= NumPins {
		return nil, fmt.Errorf("%w %d on %s", ErrInvalidPin, i, c)
	}
	return c.pins[i], nil
}

// Pins returns every pin, in order.
func (c *Chip) Pins() []*Pin {
	return c.pins[:]
}

func (c *Chip) sdp(i int) (sdp, error) {
	if i < 0 || i >= NumPins {
		return sdp{}, fmt.Errorf("%w %d on %s", ErrInvalidPin, i, c)
	}
	return sdps[i], nil
}

// SetDirection changes the direction of pin i, leaving its data bit alone.
func (c *Chip) SetDirection(i int, d Direction) error {
	s, err := c.sdp(i)
	if err != nil {
		return err
	}
	return c.setDirection(s, d)
}

// DirectionInput makes pin i an input.
func (c *Chip) DirectionInput(i int) error {
	return c.SetDirection(i, Input)
}

// DirectionOutput makes pin i an output driving l, in one register write.
func (c *Chip) DirectionOutput(i int, l gpio.Level) error {
	s, err := c.sdp(i)
	if err != nil {
		return err
	}
	return c.directionOutput(s, l)
}

// Get returns the data bit of pin i. It reflects the line level while the
// pin is an input.
func (c *Chip) Get(i int) (gpio.Level, error) {
	s, err := c.sdp(i)
	if err != nil {
		return gpio.Low, err
	}
	return c.get(s)
}

// Set changes the data bit of pin i. It has no external effect while the
// pin is an input.
func (c *Chip) Set(i int, l gpio.Level) error {
	s, err := c.sdp(i)
	if err != nil {
		return err
	}
	return c.modify(func(v uint32) uint32 {
		return setLevel(v, s, l)
	})
}

func (c *Chip) setDirection(s sdp, d Direction) error {
	return c.modify(func(v uint32) uint32 {
		if d == Output {
			return v | s.dir
		}
		return v &^ s.dir
	})
}

func (c *Chip) directionOutput(s sdp, l gpio.Level) error {
	return c.modify(func(v uint32) uint32 {
		return setLevel(v|s.dir, s, l)
	})
}

func (c *Chip) get(s sdp) (gpio.Level, error) {
	v, err := c.read()
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(v&s.data != 0), nil
}

func (c *Chip) direction(s sdp) (Direction, gpio.Level, error) {
	v, err := c.read()
	if err != nil {
		return Input, gpio.Low, err
	}
	if v&s.dir != 0 {
		return Output, gpio.Level(v&s.data != 0), nil
	}
	return Input, gpio.Level(v&s.data != 0), nil
}

func (c *Chip) read() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, fmt.Errorf("%w: %s", ErrClosed, c)
	}
	return c.regs.Read32(RegCtrlExt), nil
}

func (c *Chip) modify(f func(uint32) uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: %s", ErrClosed, c)
	}

	v := c.regs.Read32(RegCtrlExt)
	w := f(v)
	c.regs.Write32(RegCtrlExt, w)
	if debug {
		slog.Debug("CTRL_EXT write", "chip", c.name, "old", fmt.Sprintf("%#08x", v), "new", fmt.Sprintf("%#08x", w))
	}
	return nil
}

func setLevel(v uint32, s sdp, l gpio.Level) uint32 {
	if l {
		return v | s.data
	}
	return v &^ s.data
}
