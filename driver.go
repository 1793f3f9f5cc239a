package miniptm

import (
	"errors"

	"periph.io/x/conn/v3/driver/driverreg"
)

// driver hooks Manager.Start into the periph.io driver initialisation, so
// that host.Init brings the controllers up.
type driver struct {
	m *Manager
}

func (d *driver) String() string {
	return "miniptm"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	if d.m.Start() == 0 {
		return false, errors.New("no MiniPTM controller found")
	}
	return true, nil
}

// RegisterDriver registers m with driverreg. It must be called before
// host.Init or driverreg.Init.
func RegisterDriver(m *Manager) error {
	return driverreg.Register(&driver{m: m})
}
