package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MapFile maps size bytes of a device resource file, typically
// /sys/bus/pci/devices/<addr>/resource0. If size is zero or negative, the
// file size is used.
func MapFile(name string, size int) (Window, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	if size <= 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		size = int(info.Size())
	}
	if size <= 0 {
		return nil, fmt.Errorf("mmio: %s has no size", name)
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: name, Err: err}
	}
	return &mem{name: name, b: b, unmap: unix.Munmap}, nil
}
