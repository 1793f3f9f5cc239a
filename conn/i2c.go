// Package conn opens I²C buses and devices from the periph.io registry.
package conn

import (
	"fmt"
	"sort"
	"strings"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// I2C is one device on an I²C bus.
type I2C struct {
	bus  i2c.BusCloser
	conn conn.Conn
}

// OpenI2C opens the bus registered as name, or the first bus if name is
// empty, and addresses the device at addr.
func OpenI2C(name string, addr uint16) (*I2C, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}

	return &I2C{
		bus:  bus,
		conn: &i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// FindBuses returns the names of the registered buses whose name contains
// label, in bus number order.
func FindBuses(label string) []string {
	var refs []*i2creg.Ref
	for _, ref := range i2creg.All() {
		if strings.Contains(ref.Name, label) {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Number < refs[j].Number
	})

	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}

// Scan addresses every unreserved 7-bit target and returns those that answer.
func Scan(bus i2c.Bus) []uint16 {
	var found []uint16
	for addr := uint16(0x03); addr <= 0x77; addr++ {
		if bus.Tx(addr, nil, nil) == nil {
			found = append(found, addr)
		}
	}
	return found
}

func (c *I2C) String() string {
	return fmt.Sprintf("I²C bus %s", c.bus)
}

// Bus returns the underlying bus.
func (c *I2C) Bus() i2c.Bus {
	return c.bus
}

func (c *I2C) Close() error {
	return c.bus.Close()
}

func (c *I2C) Read(p []byte) (int, error) {
	return len(p), c.conn.Tx(nil, p)
}

func (c *I2C) Write(p []byte) (int, error) {
	return len(p), c.conn.Tx(p, nil)
}

// Tx writes w then reads r in one transaction.
func (c *I2C) Tx(w, r []byte) error {
	return c.conn.Tx(w, r)
}
