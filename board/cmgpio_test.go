package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureGPIOOutput(t *testing.T) {
	f := newFakeBus()
	b := New(f, nil)

	require.NoError(t, b.ConfigureGPIO(3, GPIOOutput, true))
	assert.Equal(t, byte(0x08), f.dpll[0xc160])
	assert.Equal(t, byte(gpioModeOut), f.dpll[0xc900+0x10])
	assert.Equal(t, 1, f.writes[0xc161], "levels committed")

	f.dpll[0xc161] = 0xff
	require.NoError(t, b.ConfigureGPIO(10, GPIOOutput, false))
	assert.Equal(t, byte(0xfb), f.dpll[0xc161])
	assert.Equal(t, byte(gpioModeOut), f.dpll[0xc992+0x10])
	assert.Equal(t, 3, f.writes[0xc161], "level write plus commit")
	assert.Equal(t, byte(0x08), f.dpll[0xc160], "other bank untouched")
}

func TestConfigureGPIOInput(t *testing.T) {
	f := newFakeBus()
	f.dpll[0xc8c2+0x10] = gpioModeOut
	b := New(f, nil)

	require.NoError(t, b.ConfigureGPIO(0, GPIOInput, true))
	assert.Equal(t, byte(gpioModeIn), f.dpll[0xc8c2+0x10])
	assert.Zero(t, f.writes[0xc160], "input leaves levels alone")
}

func TestConfigureGPIOErrors(t *testing.T) {
	b := New(newFakeBus(), nil)

	assert.ErrorIs(t, b.ConfigureGPIO(16, GPIOOutput, true), ErrInvalidGPIO)
	assert.ErrorIs(t, b.ConfigureGPIO(-1, GPIOInput, false), ErrInvalidGPIO)
	assert.ErrorIs(t, b.ConfigureGPIO(1, GPIOFunction, false), ErrGPIOMode)
	_, _, err := b.ReadGPIO(16)
	assert.ErrorIs(t, err, ErrInvalidGPIO)
}

func TestReadGPIO(t *testing.T) {
	f := newFakeBus()
	f.dpll[0xc900+0x10] = gpioModeOut
	f.dpll[0xc992+0x10] = gpioModeFunc
	f.dpll[0xc0c6] = 0x08 // pin 3
	f.dpll[0xc0c7] = 0x04 // pin 10
	b := New(f, nil)

	for _, test := range []struct {
		pin   int
		mode  GPIOMode
		level bool
	}{
		{3, GPIOOutput, true},
		{10, GPIOFunction, true},
		{0, GPIOInput, false},
		{11, GPIOInput, false},
	} {
		mode, level, err := b.ReadGPIO(test.pin)
		require.NoError(t, err)
		assert.Equal(t, test.mode, mode, "pin %d", test.pin)
		assert.Equal(t, test.level, level, "pin %d", test.pin)
	}

	assert.Equal(t, "Output", GPIOOutput.String())
	assert.Equal(t, "GPIOMode(7)", GPIOMode(7).String())
}

func TestGPIORoundTrip(t *testing.T) {
	f := newFakeBus()
	b := New(f, nil)

	require.NoError(t, b.ConfigureGPIO(15, GPIOOutput, true))
	// Loop the output levels back to the input level register.
	f.dpll[0xc0c6], f.dpll[0xc0c7] = f.dpll[0xc160], f.dpll[0xc161]

	mode, level, err := b.ReadGPIO(15)
	require.NoError(t, err)
	assert.Equal(t, GPIOOutput, mode)
	assert.True(t, level)
}
