package board

import (
	"errors"
	"fmt"
)

// NumGPIO is the number of DPLL (clock matrix) GPIOs.
const NumGPIO = 16

// GPIO errors.
var (
	ErrInvalidGPIO = errors.New("board: DPLL GPIO must be 0-15")
	ErrGPIOMode    = errors.New("board: DPLL GPIO mode not configurable")
)

// GPIOMode is the function of a DPLL GPIO.
type GPIOMode uint8

// GPIO modes.
const (
	GPIOInput GPIOMode = iota
	GPIOOutput
	GPIOFunction
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOInput:
		return "Input"
	case GPIOOutput:
		return "Output"
	case GPIOFunction:
		return "Function"
	default:
		return fmt.Sprintf("GPIOMode(%d)", uint8(m))
	}
}

// Each GPIO has a configuration block; its mode register is at offset 0x10
// (programming guide v4.9 layout).
var gpioBase = [NumGPIO]uint16{
	0xc8c2, 0xc8d4, 0xc8e6, 0xc900, 0xc912, 0xc924, 0xc936, 0xc948,
	0xc95a, 0xc980, 0xc992, 0xc9a4, 0xc9b6, 0xc9c8, 0xc9da, 0xca00,
}

const (
	gpioModeOffset = 0x10
	gpioModeIn     = 0x0
	gpioModeOut    = 0x4
	gpioModeFunc   = 0x1

	// gpioOutLevel holds the output levels, pins 0-7 then 8-15. Writing its
	// second byte commits both.
	gpioOutLevel = 0xc160

	// gpioInLevel holds the line levels, pins 0-7 then 8-15.
	gpioInLevel = 0xc03c + 0x8a
)

// ConfigureGPIO makes DPLL GPIO pin an input, or an output driving level.
func (b *Board) ConfigureGPIO(pin int, mode GPIOMode, level bool) error {
	if pin < 0 || pin >= NumGPIO {
		return ErrInvalidGPIO
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mreg := gpioBase[pin] + gpioModeOffset
	switch mode {
	case GPIOInput:
		return b.writeReg(mreg, gpioModeIn)

	case GPIOOutput:
		reg := uint16(gpioOutLevel + pin/8)
		v, err := b.readReg(reg)
		if err != nil {
			return err
		}
		bit := byte(1) << (pin % 8)
		if level {
			v |= bit
		} else {
			v &^= bit
		}
		if err = b.writeReg(reg, v); err != nil {
			return err
		}
		commit, err := b.readReg(gpioOutLevel + 1)
		if err != nil {
			return err
		}
		if err = b.writeReg(gpioOutLevel+1, commit); err != nil {
			return err
		}
		return b.writeReg(mreg, gpioModeOut)

	default:
		return fmt.Errorf("%w: %s", ErrGPIOMode, mode)
	}
}

// ReadGPIO returns the mode and line level of DPLL GPIO pin.
func (b *Board) ReadGPIO(pin int) (GPIOMode, bool, error) {
	if pin < 0 || pin >= NumGPIO {
		return 0, false, ErrInvalidGPIO
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.readReg(gpioBase[pin] + gpioModeOffset)
	if err != nil {
		return 0, false, err
	}
	mode := GPIOInput
	switch {
	case m&gpioModeFunc != 0:
		mode = GPIOFunction
	case m&gpioModeOut != 0:
		mode = GPIOOutput
	}

	levels, err := b.readRegs(gpioInLevel, 2)
	if err != nil {
		return 0, false, err
	}
	level := uint16(levels[0]) | uint16(levels[1])<<8
	return mode, level&(1<<pin) != 0, nil
}
