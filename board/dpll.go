package board

import "fmt"

// DPLL addressing.
const (
	DPLLAddr = 0x58

	// dpllPageReg takes {lo, hi, 0x10, 0x20} and selects the 256-byte page
	// holding hi<<8.
	dpllPageReg = 0xfc
)

// ReadReg reads the DPLL register at the 16-bit address addr.
func (b *Board) ReadReg(addr uint16) (byte, error) {
	r, err := b.ReadRegs(addr, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

// WriteReg writes v to the DPLL register at addr.
func (b *Board) WriteReg(addr uint16, v byte) error {
	return b.WriteRegs(addr, []byte{v})
}

// ReadRegs reads n consecutive DPLL registers starting at addr. The range
// must not cross a page boundary.
func (b *Board) ReadRegs(addr uint16, n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readRegs(addr, n)
}

// WriteRegs writes data to consecutive DPLL registers starting at addr.
func (b *Board) WriteRegs(addr uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeRegs(addr, data)
}

func (b *Board) readReg(addr uint16) (byte, error) {
	r, err := b.readRegs(addr, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (b *Board) writeReg(addr uint16, v byte) error {
	return b.writeRegs(addr, []byte{v})
}

func (b *Board) readRegs(addr uint16, n int) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	if err := b.openDPLL(addr); err != nil {
		return nil, err
	}
	r := make([]byte, n)
	if err := b.bus.Tx(DPLLAddr, []byte{byte(addr)}, r); err != nil {
		return nil, fmt.Errorf("board: read DPLL %#04x: %w", addr, err)
	}
	return r, nil
}

func (b *Board) writeRegs(addr uint16, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}
	if err := b.openDPLL(addr); err != nil {
		return err
	}
	w := append([]byte{byte(addr)}, data...)
	if err := b.bus.Tx(DPLLAddr, w, nil); err != nil {
		return fmt.Errorf("board: write DPLL %#04x: %w", addr, err)
	}
	return nil
}

func checkRange(addr uint16, n int) error {
	if n <= 0 || int(addr&0xff)+n > 0x100 {
		return fmt.Errorf("board: DPLL range %#04x+%d crosses a page", addr, n)
	}
	return nil
}

func (b *Board) openDPLL(addr uint16) error {
	if !b.muxSet || b.mux != ChannelDPLL {
		if err := b.selectChannel(ChannelDPLL); err != nil {
			return err
		}
	}

	page := int(addr >> 8)
	if b.paged && b.page == page {
		return nil
	}
	if err := b.bus.Tx(DPLLAddr, []byte{dpllPageReg, byte(addr), byte(addr >> 8), 0x10, 0x20}, nil); err != nil {
		b.paged = false
		return fmt.Errorf("board: select DPLL page %#02x: %w", page, err)
	}
	b.page = page
	b.paged = true
	return nil
}
