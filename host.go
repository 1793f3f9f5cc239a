package miniptm

import (
	"fmt"
	"iter"
	"log/slog"
	"net"

	"go.uber.org/multierr"

	"github.com/BeatGlow/miniptm/mmio"
	"github.com/BeatGlow/miniptm/pci"
)

// Candidate is a controller found by a Host.
type Candidate interface {
	String() string

	// HardwareAddr returns the MAC address of the network interface of the
	// controller, or pci.ErrNoInterface.
	HardwareAddr() (net.HardwareAddr, error)
}

// Host enumerates and maps controllers.
type Host interface {
	// Candidates yields every controller matching id. A candidate that
	// could not be inspected is yielded with an error.
	Candidates(id pci.ID) iter.Seq2[Candidate, error]

	// Map maps the register window bar of c.
	Map(c Candidate, bar int) (mmio.Window, error)
}

// SysfsHost finds controllers in the Linux sysfs tree.
type SysfsHost struct {
	Bus *pci.Bus

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// mapFile and mapPhys default to mmio.MapFile and mmio.MapPhys.
	mapFile func(name string, size int) (mmio.Window, error)
	mapPhys func(base uint64, size int) (mmio.Window, error)
}

// NewSysfsHost returns a host reading root, pci.DefaultRoot if empty.
func NewSysfsHost(root string) *SysfsHost {
	return &SysfsHost{Bus: &pci.Bus{Root: root}}
}

func (h *SysfsHost) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *SysfsHost) Candidates(id pci.ID) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		for d, err := range h.Bus.Devices(id) {
			var c Candidate
			if d != nil {
				c = d
			}
			if !yield(c, err) {
				return
			}
		}
	}
}

// Map maps the sysfs resource file of the BAR, falling back to /dev/mem
// when the kernel refuses it.
func (h *SysfsHost) Map(c Candidate, bar int) (mmio.Window, error) {
	d, ok := c.(*pci.Device)
	if !ok {
		return nil, fmt.Errorf("miniptm: %s is not a PCI device", c)
	}
	r, err := d.Resource(bar)
	if err != nil {
		return nil, err
	}
	h.logger().Info("mapping BAR", "device", d.Addr, "bar", bar, "start", fmt.Sprintf("%#x", r.Start), "len", fmt.Sprintf("%#x", r.Len()))

	mapFile, mapPhys := h.mapFile, h.mapPhys
	if mapFile == nil {
		mapFile = mmio.MapFile
	}
	if mapPhys == nil {
		mapPhys = mmio.MapPhys
	}

	w, err := mapFile(d.ResourceFile(bar), int(r.Len()))
	if err == nil {
		return w, nil
	}
	h.logger().Debug("resource file not mappable, trying /dev/mem", "device", d.Addr, "err", err)
	w, physErr := mapPhys(r.Start, int(r.Len()))
	if physErr != nil {
		return nil, multierr.Combine(err, physErr)
	}
	return w, nil
}
