package miniptm

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// GPIORegistrar publishes chips to GPIO consumers.
type GPIORegistrar interface {
	RegisterChip(c *Chip) error
	UnregisterChip(c *Chip) error
}

// BusRegistrar publishes I²C adapters to bus consumers.
type BusRegistrar interface {
	// RegisterBus registers a as bus number, or as the next free number if
	// number is negative, and returns the number used.
	RegisterBus(a *Adapter, number int) (int, error)
	UnregisterBus(a *Adapter) error
}

// DynamicGPIOBase is the lowest number handed out to chips.
const DynamicGPIOBase = 512

// PeriphRegistrar registers with the periph.io gpioreg and i2creg registries.
type PeriphRegistrar struct {
	mu sync.Mutex
}

var defaultRegistrar = &PeriphRegistrar{}

// RegisterChip registers every pin of c, numbered after the highest pin
// already registered.
func (r *PeriphRegistrar) RegisterChip(c *Chip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := DynamicGPIOBase
	for _, p := range gpioreg.All() {
		if n := p.Number(); n >= base {
			base = n + 1
		}
	}
	c.setBase(base)

	for i, p := range c.pins {
		if err := gpioreg.Register(p); err != nil {
			for _, q := range c.pins[:i] {
				_ = gpioreg.Unregister(q.Name())
			}
			c.setBase(-1)
			return fmt.Errorf("gpio %s: %w", p, err)
		}
	}
	return nil
}

// UnregisterChip removes every pin of c.
func (r *PeriphRegistrar) UnregisterChip(c *Chip) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range c.pins {
		err = multierr.Append(err, gpioreg.Unregister(p.Name()))
	}
	c.setBase(-1)
	return
}

type busRef struct {
	*Adapter
}

// Close does nothing; the Manager owns the adapter.
func (busRef) Close() error {
	return nil
}

func (r *PeriphRegistrar) RegisterBus(a *Adapter, number int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if number < 0 {
		number = 0
		for _, ref := range i2creg.All() {
			if ref.Number >= number {
				number = ref.Number + 1
			}
		}
	}
	opener := func() (i2c.BusCloser, error) {
		return busRef{a}, nil
	}
	if err := i2creg.Register(a.String(), nil, number, opener); err != nil {
		return -1, fmt.Errorf("i2c %s: %w", a, err)
	}
	return number, nil
}

func (r *PeriphRegistrar) UnregisterBus(a *Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return i2creg.Unregister(a.String())
}
