package board

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"
)

// SFP addresses behind a mux channel.
const (
	SFPIdentAddr = 0x50 // A0h
	SFPDiagAddr  = 0x51 // A2h
)

const (
	sfpChunk      = 32
	sfpIdentLen   = 96
	sfpTempReg    = 96
	sfpTxPowerReg = 102
	sfpRxPowerReg = 104
	sfpControlReg = 110

	// NoLightDBm is reported for a zero power reading.
	NoLightDBm = -40.0
)

// SFP is what ReadSFP learns about one module.
type SFP struct {
	Cage   int
	Type   byte
	Vendor string
	Part   string
	Serial string

	// Diag is nil when the module has no A2h page, as many copper
	// modules do.
	Diag *Diagnostics
}

func (s *SFP) String() string {
	return fmt.Sprintf("SFP%d %s %s (serial %s, type %#02x)", s.Cage, s.Vendor, s.Part, s.Serial, s.Type)
}

// Diagnostics are the A2h digital diagnostic readings.
type Diagnostics struct {
	Temperature float64 // °C
	TxPower     float64 // dBm
	RxPower     float64 // dBm
	Control     byte
}

// ReadSFP reads identity and diagnostics of the module in cage n (1-4).
// The mux is closed afterwards.
func (b *Board) ReadSFP(n int) (s *SFP, err error) {
	ch, err := SFPChannel(n)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err = b.selectChannel(ch); err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, b.selectChannel(ChannelNone))
	}()

	ident, err := b.readChunks(SFPIdentAddr, 0, sfpIdentLen)
	if err != nil {
		b.log.Debug("SFP identity read failed", "cage", n, "error", err)
		return nil, fmt.Errorf("%w: cage %d", ErrNotPresent, n)
	}
	s = parseIdent(n, ident)

	if d, derr := b.readDiagnostics(); derr != nil {
		b.log.Debug("SFP diagnostics unavailable", "cage", n, "error", derr)
	} else {
		s.Diag = d
	}
	return s, nil
}

func (b *Board) readChunks(addr uint16, reg, n int) ([]byte, error) {
	buf := make([]byte, n)
	for off := 0; off < n; off += sfpChunk {
		end := min(off+sfpChunk, n)
		if err := b.bus.Tx(addr, []byte{byte(reg + off)}, buf[off:end]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (b *Board) readDiagnostics() (*Diagnostics, error) {
	r, err := b.readChunks(SFPDiagAddr, sfpTempReg, sfpControlReg-sfpTempReg+1)
	if err != nil {
		return nil, err
	}
	at := func(reg int) []byte { return r[reg-sfpTempReg:] }

	return &Diagnostics{
		Temperature: float64(int16(binary.BigEndian.Uint16(at(sfpTempReg)))) / 256,
		TxPower:     PowerDBm(binary.BigEndian.Uint16(at(sfpTxPowerReg))),
		RxPower:     PowerDBm(binary.BigEndian.Uint16(at(sfpRxPowerReg))),
		Control:     at(sfpControlReg)[0],
	}, nil
}

// PowerDBm converts an optical power reading in units of 0.1 µW to dBm.
func PowerDBm(raw uint16) float64 {
	if raw == 0 {
		return NoLightDBm
	}
	uw := float64(raw) * 0.1
	return 10 * math.Log10(uw/1000)
}

func parseIdent(cage int, b []byte) *SFP {
	return &SFP{
		Cage:   cage,
		Type:   b[0],
		Vendor: field(b[20:36]),
		Part:   field(b[40:56]),
		Serial: field(b[68:84]),
	}
}

func field(b []byte) string {
	return strings.Trim(string(b), " \x00")
}
