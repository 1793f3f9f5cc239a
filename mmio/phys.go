package mmio

import (
	"fmt"

	"periph.io/x/host/v3/pmem"
)

// MapPhys maps a physical address range through /dev/mem. It is the
// fallback when the kernel does not expose a mappable resource file.
func MapPhys(base uint64, size int) (Window, error) {
	v, err := pmem.Map(base, size)
	if err != nil {
		return nil, err
	}
	return &mem{
		name:  fmt.Sprintf("/dev/mem@%#x", base),
		b:     []byte(v.Slice),
		unmap: func([]byte) error { return v.Close() },
	}, nil
}
