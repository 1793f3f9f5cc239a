package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/miniptm"
	"github.com/BeatGlow/miniptm/board"
)

type tx struct {
	addr uint16
	w    []byte
	n    int
}

// recordBus acknowledges every target and reads back 0x5a.
type recordBus struct {
	txs    []tx
	closed bool
}

func (b *recordBus) String() string                    { return "record" }
func (b *recordBus) SetSpeed(_ physic.Frequency) error { return nil }
func (b *recordBus) Close() error                      { b.closed = true; return nil }

func (b *recordBus) Tx(addr uint16, w, r []byte) error {
	b.txs = append(b.txs, tx{addr, append([]byte(nil), w...), len(r)})
	for i := range r {
		r[i] = 0x5a
	}
	return nil
}

func newTestCLI(t *testing.T) (*cli, *recordBus) {
	t.Helper()
	b := new(recordBus)
	name := miniptm.AdapterName + " 0000-07-00.0"
	require.NoError(t, i2creg.Register(name, nil, 70, func() (i2c.BusCloser, error) { return b, nil }))
	t.Cleanup(func() { _ = i2creg.Unregister(name) })
	return &cli{logger: slog.Default()}, b
}

func TestRawTransaction(t *testing.T) {
	c, b := newTestCLI(t)

	require.NoError(t, c.run([]string{"i2c", "0x50", "0102"}))
	require.NoError(t, c.run([]string{"i2c", "0x50", "", "2"}))
	require.NoError(t, c.run([]string{"i2c", "0x51", "60", "4"}))

	assert.Equal(t, []tx{
		{0x50, []byte{1, 2}, 0},
		{0x50, nil, 2},
		{0x51, []byte{0x60}, 4},
	}, b.txs)
	assert.True(t, b.closed)
}

func TestRawTransactionErrors(t *testing.T) {
	c, b := newTestCLI(t)

	assert.Error(t, c.run([]string{"i2c", "0x80", "00"}), "not a 7-bit address")
	assert.Error(t, c.run([]string{"i2c", "0x50", "zz"}))
	assert.Error(t, c.run([]string{"i2c", "0x50"}))
	assert.Empty(t, b.txs)
}

func TestDPLLCommand(t *testing.T) {
	c, b := newTestCLI(t)

	require.NoError(t, c.run([]string{"dpll", "0xc03c", "0x12"}))
	require.Len(t, b.txs, 3)
	assert.Equal(t, uint16(board.MuxAddr), b.txs[0].addr)
	assert.Equal(t, []byte{0x00, byte(board.ChannelDPLL)}, b.txs[0].w)
	assert.Equal(t, uint16(board.DPLLAddr), b.txs[2].addr)
	assert.Equal(t, []byte{0x3c, 0x12}, b.txs[2].w)
}

func TestCommandUsage(t *testing.T) {
	c, b := newTestCLI(t)

	for _, args := range [][]string{
		{"bogus"},
		{"sfp"},
		{"dpll"},
		{"gpio", "3", "sideways"},
		{"gpio", "3", "out", "maybe"},
		{"eeprom"},
		{"eeprom", "read", "0"},
		{"eeprom", "write", "/nonexistent.hex"},
	} {
		assert.Error(t, c.run(args), "%v", args)
	}
	assert.Empty(t, b.txs)
}

func TestBusName(t *testing.T) {
	c, _ := newTestCLI(t)

	name, err := c.busName()
	require.NoError(t, err)
	assert.Equal(t, miniptm.AdapterName+" 0000-07-00.0", name)

	c.bus = "explicit"
	name, err = c.busName()
	require.NoError(t, err)
	assert.Equal(t, "explicit", name)
}
