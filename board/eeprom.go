package board

import (
	"fmt"
	"io"
	"time"

	"github.com/marcinbor85/gohex"
)

// EEPROM addressing. The DPLL configuration EEPROM sits behind the DPLL mux
// channel and takes a 16-bit memory address; bit 16 selects the block
// through the lowest device address bit.
const (
	EEPROMAddr = 0x54

	eepromBlockBit = 0x1

	// EEPROMSize is the addressable size, two 64 KiB blocks.
	EEPROMSize = 2 << 16

	// EEPROMWriteDelay is the internal write cycle time after each byte.
	EEPROMWriteDelay = 5 * time.Millisecond
)

// Segment is a run of bytes at an EEPROM address.
type Segment struct {
	Addr uint32
	Data []byte
}

// ParseHex reads an Intel HEX image into segments.
func ParseHex(r io.Reader) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("board: hex image: %w", err)
	}
	var segs []Segment
	for _, s := range mem.GetDataSegments() {
		segs = append(segs, Segment{Addr: s.Address, Data: s.Data})
	}
	return segs, nil
}

func eepromTarget(addr uint32) (uint16, []byte) {
	dev := uint16(EEPROMAddr) | uint16(addr>>16)&eepromBlockBit
	return dev, []byte{byte(addr >> 8), byte(addr)}
}

func checkEEPROM(addr uint32, n int) error {
	if n <= 0 || uint64(addr)+uint64(n) > EEPROMSize {
		return fmt.Errorf("board: EEPROM range %#05x+%d out of bounds", addr, n)
	}
	return nil
}

// WriteEEPROM writes data byte by byte starting at addr, waiting out the
// write cycle after each byte.
func (b *Board) WriteEEPROM(addr uint32, data []byte) error {
	if err := checkEEPROM(addr, len(data)); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.openEEPROM(); err != nil {
		return err
	}
	for i, v := range data {
		a := addr + uint32(i)
		dev, w := eepromTarget(a)
		if err := b.bus.Tx(dev, append(w, v), nil); err != nil {
			return fmt.Errorf("board: write EEPROM %#05x: %w", a, err)
		}
		time.Sleep(b.eepromDelay)
	}
	b.log.Debug("EEPROM written", "addr", fmt.Sprintf("%#05x", addr), "len", len(data))
	return nil
}

// ReadEEPROM reads n bytes starting at addr. The range may span both blocks.
func (b *Board) ReadEEPROM(addr uint32, n int) ([]byte, error) {
	if err := checkEEPROM(addr, n); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.openEEPROM(); err != nil {
		return nil, err
	}
	r := make([]byte, n)
	for off := 0; off < n; {
		a := addr + uint32(off)
		// A sequential read does not carry into the next block.
		end := min(n, off+int(1<<16-a&0xffff))
		dev, w := eepromTarget(a)
		if err := b.bus.Tx(dev, w, r[off:end]); err != nil {
			return nil, fmt.Errorf("board: read EEPROM %#05x: %w", a, err)
		}
		off = end
	}
	return r, nil
}

// ProgramEEPROM writes every segment and reads it back.
func (b *Board) ProgramEEPROM(segs []Segment) error {
	for _, s := range segs {
		if err := b.WriteEEPROM(s.Addr, s.Data); err != nil {
			return err
		}
		got, err := b.ReadEEPROM(s.Addr, len(s.Data))
		if err != nil {
			return err
		}
		for i := range got {
			if got[i] != s.Data[i] {
				return fmt.Errorf("board: EEPROM verify failed at %#05x: wrote %#02x, read %#02x", s.Addr+uint32(i), s.Data[i], got[i])
			}
		}
	}
	return nil
}

func (b *Board) openEEPROM() error {
	if b.muxSet && b.mux == ChannelDPLL {
		return nil
	}
	return b.selectChannel(ChannelDPLL)
}
