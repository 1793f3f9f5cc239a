package miniptm

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	"github.com/BeatGlow/miniptm/bitbang"
)

// AdapterName prefixes the name of every MiniPTM I²C bus.
const AdapterName = "MiniPTM I2C Adapter"

// Adapter is the bit-banged I²C bus of one controller.
type Adapter struct {
	*bitbang.Bus
	chip *Chip
}

var (
	_ i2c.BusCloser = (*Adapter)(nil)
	_ i2c.Pins      = (*Adapter)(nil)
)

// NewAdapter returns the I²C bus over the SDPs of c. The bus is named after
// the chip, with ':' replaced since bus names may not contain it.
func NewAdapter(c *Chip, config *bitbang.Config) *Adapter {
	name := fmt.Sprintf("%s %s", AdapterName, strings.ReplaceAll(c.name, ":", "-"))
	return &Adapter{
		Bus:  bitbang.New(name, NewLines(c), config),
		chip: c,
	}
}

// SCL returns the clock pin.
func (a *Adapter) SCL() gpio.PinIO {
	return a.chip.pins[PinSCL]
}

// SDA returns the data pin.
func (a *Adapter) SDA() gpio.PinIO {
	return a.chip.pins[PinSDA]
}
