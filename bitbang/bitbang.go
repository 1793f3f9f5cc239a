// Package bitbang implements an I²C bus master on top of two open-drain
// lines driven in software.
//
// The algorithm only ever pulls a line low or releases it; the high level
// comes from the bus pull-ups. Targets may stretch the clock by holding SCL
// low, the master then waits up to the configured timeout. All delays
// sleep, they never spin.
package bitbang

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Errors.
var (
	ErrTimeout = errors.New("bitbang: timeout waiting for SCL release")
	ErrNoAck   = errors.New("bitbang: no acknowledge")
	ErrAddress = errors.New("bitbang: only 7-bit addresses are supported")
	ErrClosed  = errors.New("bitbang: bus is closed")
)

// Lines are the four line primitives of an open-drain bus. Setting a line
// High releases it, setting it Low pulls it down. Reading a line releases
// it first.
type Lines interface {
	SDA() gpio.Level
	SCL() gpio.Level
	SetSDA(gpio.Level)
	SetSCL(gpio.Level)
}

// Config holds the bus timing.
type Config struct {
	// Delay is the time between line transitions, half a clock period.
	Delay time.Duration

	// Timeout is the maximum time a target may stretch the clock.
	Timeout time.Duration

	// Retries is the number of times an unacknowledged address is resent.
	Retries int
}

// DefaultConfig gives a clock of roughly 100kHz.
var DefaultConfig = Config{
	Delay:   5 * time.Microsecond,
	Timeout: 100 * time.Millisecond,
}

// Bus is an I²C bus master. It implements i2c.BusCloser.
type Bus struct {
	mu      sync.Mutex
	name    string
	lines   Lines
	delay   time.Duration
	timeout time.Duration
	retries int
	closed  bool
}

// New returns a bus master over l and leaves the bus idle.
func New(name string, l Lines, config *Config) *Bus {
	if config == nil {
		config = new(Config)
		*config = DefaultConfig
	}

	b := &Bus{
		name:    name,
		lines:   l,
		delay:   config.Delay,
		timeout: config.Timeout,
		retries: config.Retries,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultConfig.Timeout
	}

	// Looks like a stop if a transfer was in flight.
	l.SetSCL(gpio.High)
	b.udelay()
	l.SetSDA(gpio.High)
	return b
}

func (b *Bus) String() string {
	return b.name
}

// Delay returns the current half clock period.
func (b *Bus) Delay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delay
}

// Timeout returns the clock stretching limit.
func (b *Bus) Timeout() time.Duration {
	return b.timeout
}

// SetSpeed changes the clock frequency.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 || f > physic.MegaHertz {
		return fmt.Errorf("bitbang: invalid speed %s", f)
	}
	b.mu.Lock()
	b.delay = f.Period() / 2
	b.mu.Unlock()
	return nil
}

// Close releases both lines. Further transactions fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	b.lines.SetSCL(gpio.High)
	b.lines.SetSDA(gpio.High)
	return nil
}

// Tx writes w then reads into r, with a repeated start in between. With
// both empty the target is only addressed, which is how a bus is scanned.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("%w, got %#x", ErrAddress, addr)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.start()
	err := b.transfer(uint8(addr), w, r)
	if stopErr := b.stop(); err == nil {
		err = stopErr
	}
	return err
}

func (b *Bus) transfer(addr uint8, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		if err := b.address(addr << 1); err != nil {
			return err
		}
		for i, c := range w {
			ack, err := b.writeByte(c)
			if err != nil {
				return err
			}
			if !ack {
				return fmt.Errorf("%w from %#02x after %d bytes", ErrNoAck, addr, i)
			}
		}
		if len(r) == 0 {
			return nil
		}
		if err := b.repeatedStart(); err != nil {
			return err
		}
	}

	if err := b.address(addr<<1 | 1); err != nil {
		return err
	}
	for i := range r {
		c, err := b.readByte(i < len(r)-1)
		if err != nil {
			return err
		}
		r[i] = c
	}
	return nil
}

func (b *Bus) address(a byte) error {
	for i := 0; ; i++ {
		ack, err := b.writeByte(a)
		if err != nil {
			return err
		}
		if ack {
			return nil
		}
		if i >= b.retries {
			return fmt.Errorf("%w from %#02x", ErrNoAck, a>>1)
		}
		if err = b.stop(); err != nil {
			return err
		}
		b.udelay()
		b.start()
	}
}

func (b *Bus) udelay() {
	time.Sleep(b.delay)
}

func (b *Bus) halfDelay() {
	time.Sleep((b.delay + 1) / 2)
}

func (b *Bus) sdaLow()  { b.lines.SetSDA(gpio.Low) }
func (b *Bus) sdaHigh() { b.lines.SetSDA(gpio.High) }
func (b *Bus) sclLow()  { b.lines.SetSCL(gpio.Low) }

// sclHigh releases SCL and waits for the targets to let it rise.
func (b *Bus) sclHigh() error {
	b.lines.SetSCL(gpio.High)

	poll := b.delay
	if poll < time.Microsecond {
		poll = time.Microsecond
	}
	start := time.Now()
	for b.lines.SCL() == gpio.Low {
		if time.Since(start) > b.timeout {
			// The line may have risen while we were sleeping.
			if b.lines.SCL() == gpio.High {
				break
			}
			return ErrTimeout
		}
		time.Sleep(poll)
	}
	b.udelay()
	return nil
}

// start expects both lines released.
func (b *Bus) start() {
	b.sdaLow()
	b.udelay()
	b.sclLow()
}

func (b *Bus) repeatedStart() error {
	b.sdaHigh()
	if err := b.sclHigh(); err != nil {
		return err
	}
	b.sdaLow()
	b.udelay()
	b.sclLow()
	return nil
}

func (b *Bus) stop() error {
	b.sdaLow()
	if err := b.sclHigh(); err != nil {
		return err
	}
	b.sdaHigh()
	b.udelay()
	return nil
}

// writeByte shifts c out MSB first and reports whether the target
// acknowledged it.
func (b *Bus) writeByte(c byte) (bool, error) {
	for i := 7; i >= 0; i-- {
		b.lines.SetSDA(gpio.Level(c>>i&1 == 1))
		b.halfDelay()
		if err := b.sclHigh(); err != nil {
			return false, err
		}
		b.sclLow()
	}

	b.sdaHigh()
	if err := b.sclHigh(); err != nil {
		return false, err
	}
	ack := b.lines.SDA() == gpio.Low
	b.sclLow()
	return ack, nil
}

// readByte shifts a byte in and answers with an ACK or a NAK.
func (b *Bus) readByte(ack bool) (byte, error) {
	var c byte
	b.sdaHigh()
	for i := 0; i < 8; i++ {
		if err := b.sclHigh(); err != nil {
			return 0, err
		}
		c <<= 1
		if b.lines.SDA() == gpio.High {
			c |= 1
		}
		b.sclLow()
		if i == 7 {
			b.halfDelay()
		} else {
			b.udelay()
		}
	}

	if ack {
		b.sdaLow()
	}
	b.halfDelay()
	if err := b.sclHigh(); err != nil {
		return 0, err
	}
	b.sclLow()
	return c, nil
}
