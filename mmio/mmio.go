// Package mmio provides 32-bit access to memory mapped device register windows.
//
// A window is either a sysfs PCI resource file mapped with [MapFile], a
// physical address range mapped through /dev/mem with [MapPhys], or an
// in-memory [Buffer] that behaves like device memory for tests and
// simulation.
package mmio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
	"unsafe"
)

// Errors.
var (
	ErrClosed       = errors.New("mmio: window is closed")
	ErrNotSupported = errors.New("mmio: mapping not supported on this platform")
)

// Window is a mapped register window. Registers are little-endian 32-bit
// words; every access is a single aligned load or store.
type Window interface {
	String() string

	// Read32 reads the register at byte offset off.
	Read32(off uint32) uint32

	// Write32 writes the register at byte offset off.
	Write32(off uint32, v uint32)

	// Len is the size of the window in bytes.
	Len() int

	// Close unmaps the window.
	Close() error
}

var littleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

func le32(v uint32) uint32 {
	if littleEndian {
		return v
	}
	return bits.ReverseBytes32(v)
}

type mem struct {
	name  string
	b     []byte
	unmap func([]byte) error
}

func (m *mem) String() string {
	return fmt.Sprintf("%s (%#x bytes)", m.name, len(m.b))
}

func (m *mem) word(off uint32) *uint32 {
	if off&3 != 0 {
		panic(fmt.Sprintf("mmio: unaligned register offset %#x", off))
	}
	if int(off)+4 > len(m.b) {
		panic(fmt.Sprintf("mmio: register offset %#x outside %s", off, m))
	}
	return (*uint32)(unsafe.Pointer(&m.b[off]))
}

func (m *mem) Read32(off uint32) uint32 {
	return le32(atomic.LoadUint32(m.word(off)))
}

func (m *mem) Write32(off uint32, v uint32) {
	atomic.StoreUint32(m.word(off), le32(v))
}

func (m *mem) Len() int {
	return len(m.b)
}

func (m *mem) Close() error {
	if m.b == nil {
		return ErrClosed
	}
	b := m.b
	m.b = nil
	if m.unmap != nil {
		return m.unmap(b)
	}
	return nil
}

// Buffer is an in-memory Window.
type Buffer struct {
	mem
}

// NewBuffer allocates a zeroed, word aligned window of size bytes.
func NewBuffer(size int) *Buffer {
	if size < 4 {
		size = 4
	}
	words := make([]uint32, (size+3)/4)
	return &Buffer{mem: mem{
		name: "buffer",
		b:    unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size),
	}}
}

// Closed reports whether Close was called.
func (b *Buffer) Closed() bool {
	return b.mem.b == nil
}
