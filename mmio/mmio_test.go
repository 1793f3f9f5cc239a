package mmio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReadWrite(t *testing.T) {
	b := NewBuffer(0x1000)
	assert.Equal(t, 0x1000, b.Len())
	assert.Equal(t, uint32(0), b.Read32(0x18))

	b.Write32(0x18, 0xdeadbeef)
	b.Write32(0xffc, 0x010101)
	assert.Equal(t, uint32(0xdeadbeef), b.Read32(0x18))
	assert.Equal(t, uint32(0x010101), b.Read32(0xffc))
	assert.Equal(t, uint32(0), b.Read32(0x14))
	assert.Equal(t, uint32(0), b.Read32(0x1c))
}

func TestBufferLittleEndian(t *testing.T) {
	b := NewBuffer(8)
	b.Write32(4, 0x11223344)
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, b.mem.b[4:8])
}

func TestBufferBounds(t *testing.T) {
	b := NewBuffer(16)
	assert.Panics(t, func() { b.Read32(16) })
	assert.Panics(t, func() { b.Write32(2, 1) })
	assert.NotPanics(t, func() { b.Read32(12) })
}

func TestBufferClose(t *testing.T) {
	b := NewBuffer(16)
	require.False(t, b.Closed())
	require.NoError(t, b.Close())
	assert.True(t, b.Closed())
	assert.ErrorIs(t, b.Close(), ErrClosed)
}
