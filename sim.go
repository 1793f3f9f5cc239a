package miniptm

import (
	"fmt"
	"iter"
	"net"

	"github.com/BeatGlow/miniptm/mmio"
	"github.com/BeatGlow/miniptm/pci"
)

// SimDevice is a controller of a SimHost.
type SimDevice struct {
	Addr string
	ID   pci.ID

	// MAC is the interface address, nil for a device without interface.
	MAC net.HardwareAddr

	// Regs is returned by Map, unless MapErr is set.
	Regs   *mmio.Buffer
	MapErr error

	// Err is yielded with the device during enumeration.
	Err error
}

func (d *SimDevice) String() string {
	return d.Addr
}

func (d *SimDevice) HardwareAddr() (net.HardwareAddr, error) {
	if d.MAC == nil {
		return nil, pci.ErrNoInterface
	}
	return d.MAC, nil
}

// SimHost is a Host over in-memory controllers.
type SimHost struct {
	Devices []*SimDevice
}

// NewSimDevice returns a device with a zeroed register window.
func NewSimDevice(addr string, mac net.HardwareAddr) *SimDevice {
	return &SimDevice{
		Addr: addr,
		ID:   DefaultID,
		MAC:  mac,
		Regs: mmio.NewBuffer(MinWindowSize),
	}
}

func (h *SimHost) Candidates(id pci.ID) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		for _, d := range h.Devices {
			if d.ID != id {
				continue
			}
			if !yield(d, d.Err) {
				return
			}
		}
	}
}

func (h *SimHost) Map(c Candidate, _ int) (mmio.Window, error) {
	d, ok := c.(*SimDevice)
	if !ok {
		return nil, fmt.Errorf("miniptm: %s is not a simulated device", c)
	}
	if d.MapErr != nil {
		return nil, d.MapErr
	}
	if d.Regs == nil {
		return nil, fmt.Errorf("miniptm: %s has no registers", d)
	}
	return d.Regs, nil
}
