// Package pci enumerates PCI devices through the Linux sysfs tree.
package pci

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where the kernel lists PCI devices.
const DefaultRoot = "/sys/bus/pci/devices"

// Errors.
var (
	ErrNoInterface = errors.New("pci: device has no network interface")
	ErrNoResource  = errors.New("pci: resource not present")
)

// ID is a vendor/device identifier pair.
type ID struct {
	Vendor uint16
	Device uint16
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor, id.Device)
}

// Resource is one base address region as reported by sysfs.
type Resource struct {
	Start uint64
	End   uint64
	Flags uint64
}

// Len is the size of the region in bytes; zero if unassigned.
func (r Resource) Len() uint64 {
	if r.End == 0 || r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r Resource) String() string {
	return fmt.Sprintf("[%#x-%#x]", r.Start, r.End)
}

// Bus is a sysfs PCI device directory.
type Bus struct {
	// Root defaults to DefaultRoot.
	Root string
}

func (b *Bus) root() string {
	if b == nil || b.Root == "" {
		return DefaultRoot
	}
	return b.Root
}

// Devices yields every device matching id, in bus address order. The
// directory is only read once iteration starts. Devices whose identifiers
// cannot be read are yielded with a non-nil error.
func (b *Bus) Devices(id ID) iter.Seq2[*Device, error] {
	root := b.root()
	return func(yield func(*Device, error) bool) {
		entries, err := os.ReadDir(root)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, entry := range entries {
			d := &Device{Addr: entry.Name(), path: filepath.Join(root, entry.Name())}
			if d.ID, err = d.readID(); err != nil {
				if !yield(d, err) {
					return
				}
				continue
			}
			if d.ID != id {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

// Device is a PCI function, such as 0000:01:00.0.
type Device struct {
	Addr string
	ID   ID
	path string
}

// Open returns the device at addr without checking its identifiers.
func (b *Bus) Open(addr string) (*Device, error) {
	d := &Device{Addr: addr, path: filepath.Join(b.root(), addr)}
	var err error
	if d.ID, err = d.readID(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) String() string {
	return d.Addr
}

// Path is the sysfs directory of the device.
func (d *Device) Path() string {
	return d.path
}

func (d *Device) readID() (id ID, err error) {
	if id.Vendor, err = readUint16(filepath.Join(d.path, "vendor")); err != nil {
		return
	}
	id.Device, err = readUint16(filepath.Join(d.path, "device"))
	return
}

func readUint16(name string) (uint16, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("pci: %s: %w", name, err)
	}
	return uint16(v), nil
}

// Resource returns the base address region bar.
func (d *Device) Resource(bar int) (Resource, error) {
	f, err := os.Open(filepath.Join(d.path, "resource"))
	if err != nil {
		return Resource{}, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for i := 0; s.Scan(); i++ {
		if i != bar {
			continue
		}
		fields := strings.Fields(s.Text())
		if len(fields) != 3 {
			return Resource{}, fmt.Errorf("pci: %s: malformed resource line %q", d, s.Text())
		}
		var (
			r   Resource
			dst = []*uint64{&r.Start, &r.End, &r.Flags}
		)
		for j, field := range fields {
			if *dst[j], err = strconv.ParseUint(field, 0, 64); err != nil {
				return Resource{}, fmt.Errorf("pci: %s: %w", d, err)
			}
		}
		if r.Len() == 0 {
			return Resource{}, fmt.Errorf("%w: %s BAR %d", ErrNoResource, d, bar)
		}
		return r, nil
	}
	if err = s.Err(); err != nil {
		return Resource{}, err
	}
	return Resource{}, fmt.Errorf("%w: %s BAR %d", ErrNoResource, d, bar)
}

// ResourceFile is the mappable sysfs file for region bar.
func (d *Device) ResourceFile(bar int) string {
	return filepath.Join(d.path, "resource"+strconv.Itoa(bar))
}

// Interfaces lists the network interfaces bound to the device.
func (d *Device) Interfaces() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.path, "net"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoInterface
	} else if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, ErrNoInterface
	}
	return names, nil
}

// HardwareAddr returns the address of the first network interface.
func (d *Device) HardwareAddr() (net.HardwareAddr, error) {
	names, err := d.Interfaces()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(d.path, "net", names[0], "address"))
	if err != nil {
		return nil, err
	}
	return net.ParseMAC(strings.TrimSpace(string(b)))
}
