package conn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

type fakeBus struct {
	name    string
	present map[uint16]bool
	txs     [][]byte
	closed  bool
}

func (b *fakeBus) String() string                    { return b.name }
func (b *fakeBus) SetSpeed(_ physic.Frequency) error { return nil }
func (b *fakeBus) Close() error                      { b.closed = true; return nil }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if !b.present[addr] {
		return errors.New("nack")
	}
	b.txs = append(b.txs, append([]byte(nil), w...))
	for i := range r {
		r[i] = byte(addr) + byte(i)
	}
	return nil
}

func register(t *testing.T, name string, number int, b *fakeBus) {
	t.Helper()
	require.NoError(t, i2creg.Register(name, nil, number, func() (i2c.BusCloser, error) { return b, nil }))
	t.Cleanup(func() { _ = i2creg.Unregister(name) })
}

func TestFindBuses(t *testing.T) {
	register(t, "MiniPTM I2C Adapter 0000-03-00.0", 41, &fakeBus{})
	register(t, "MiniPTM I2C Adapter 0000-01-00.0", 40, &fakeBus{})
	register(t, "other", 42, &fakeBus{})

	assert.Equal(t, []string{
		"MiniPTM I2C Adapter 0000-01-00.0",
		"MiniPTM I2C Adapter 0000-03-00.0",
	}, FindBuses("MiniPTM"))
	assert.Empty(t, FindBuses("nothing"))
}

func TestOpenI2C(t *testing.T) {
	b := &fakeBus{name: "fake", present: map[uint16]bool{0x50: true}}
	register(t, "conn-test", 50, b)

	c, err := OpenI2C("conn-test", 0x50)
	require.NoError(t, err)
	assert.Equal(t, "I²C bus fake", c.String())

	n, err := c.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r := make([]byte, 2)
	require.NoError(t, c.Tx([]byte{0x00}, r))
	assert.Equal(t, []byte{0x50, 0x51}, r)
	assert.Equal(t, [][]byte{{0x01, 0x02}, {0x00}}, b.txs)

	require.NoError(t, c.Close())
	assert.True(t, b.closed)

	_, err = OpenI2C("conn-missing", 0x50)
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	b := &fakeBus{present: map[uint16]bool{0x01: true, 0x50: true, 0x70: true, 0x78: true}}
	assert.Equal(t, []uint16{0x50, 0x70}, Scan(b))
}
