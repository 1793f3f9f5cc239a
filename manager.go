package miniptm

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/BeatGlow/miniptm/bitbang"
	"github.com/BeatGlow/miniptm/pci"
)

// ManagerConfig is the Manager configuration.
type ManagerConfig struct {
	// ID selects the controllers.
	ID pci.ID

	// BAR is the register window to map.
	BAR int

	// Allow decides which controllers are driven.
	Allow AddrFilter

	// GPIO and Bus registrars, the periph.io registries if nil.
	GPIO GPIORegistrar
	Bus  BusRegistrar

	// I2C is the bus timing.
	I2C bitbang.Config

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultManagerConfig drives MiniPTM boards on the default allow list.
var DefaultManagerConfig = ManagerConfig{
	ID:    DefaultID,
	BAR:   0,
	Allow: DefaultAllowList,
	I2C:   bitbang.DefaultConfig,
}

// Manager sets up and tears down the controllers of a Host.
type Manager struct {
	mu      sync.Mutex
	host    Host
	config  ManagerConfig
	matcher *Matcher
	log     *slog.Logger
	devices []*Device
}

// NewManager returns a manager for the controllers of h.
func NewManager(h Host, config *ManagerConfig) *Manager {
	if config == nil {
		config = new(ManagerConfig)
		*config = DefaultManagerConfig
	}

	m := &Manager{
		host:   h,
		config: *config,
		log:    config.Logger,
	}
	if m.config.GPIO == nil {
		m.config.GPIO = defaultRegistrar
	}
	if m.config.Bus == nil {
		m.config.Bus = defaultRegistrar
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.matcher = &Matcher{
		ID:     m.config.ID,
		Allow:  m.config.Allow,
		Logger: m.log,
	}
	return m
}

// Matcher returns the matcher used by Start.
func (m *Manager) Matcher() *Matcher {
	return m.matcher
}

// Start sets up every accepted controller and returns how many became
// active. A controller that fails any step is unwound and skipped.
func (m *Manager) Start() int {
	var n int
	for c, err := range m.matcher.FindCandidates(m.host) {
		if err != nil {
			m.log.Warn("skipping candidate", "candidate", fmt.Sprint(c), "err", err)
			continue
		}
		if !m.matcher.Accept(c) {
			continue
		}
		d, err := m.setup(c)
		if err != nil {
			m.log.Error("device rejected", "device", c.String(), "err", err)
			continue
		}
		m.log.Info("device active", "device", d.String(), "gpio_base", d.chip.Base(), "i2c_bus", d.bus)
		n++
	}
	return n
}

func (m *Manager) setup(c Candidate) (*Device, error) {
	d := &Device{candidate: c, bus: -1}
	d.setState(StateCandidate)

	regs, err := m.host.Map(c, m.config.BAR)
	if err != nil {
		d.setState(StateRejected)
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceMapping, c, err)
	}
	d.regs = regs
	if n := regs.Len(); n < MinWindowSize {
		m.unwind(d)
		return nil, fmt.Errorf("%w: %s: window of %#x bytes is too small", ErrResourceMapping, c, n)
	}

	d.chip = NewChip(c.String(), regs)
	if err = m.config.GPIO.RegisterChip(d.chip); err != nil {
		m.unwind(d)
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistration, c, err)
	}
	d.chipRegistered = true

	d.adapter = NewAdapter(d.chip, &m.config.I2C)
	if d.bus, err = m.config.Bus.RegisterBus(d.adapter, -1); err != nil {
		m.unwind(d)
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistration, c, err)
	}
	d.busRegistered = true

	m.mu.Lock()
	m.devices = append(m.devices, d)
	d.setState(StateActive)
	m.mu.Unlock()

	d.ApplyLEDErrata()
	return d, nil
}

func (m *Manager) unwind(d *Device) {
	if err := d.release(m.config.GPIO, m.config.Bus); err != nil {
		m.log.Warn("unwinding partial setup", "device", d.String(), "err", err)
	}
	d.setState(StateRejected)
}

// Devices returns the active devices in setup order.
func (m *Manager) Devices() []*Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Device(nil), m.devices...)
}

// Stop tears every active device down, in setup order. It keeps going on
// failure and returns every error encountered.
func (m *Manager) Stop() (err error) {
	m.mu.Lock()
	devices := m.devices
	m.devices = nil
	m.mu.Unlock()

	for _, d := range devices {
		if e := d.release(m.config.GPIO, m.config.Bus); e != nil {
			m.log.Error("device teardown", "device", d.String(), "err", e)
			err = multierr.Append(err, fmt.Errorf("%s: %w", d, e))
		}
		d.setState(StateClosed)
	}
	m.log.Info("removed", "devices", len(devices))
	return
}
