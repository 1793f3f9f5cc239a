package miniptm

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/miniptm/bitbang"
)

// Lines drives SDA (SDP2) and SCL (SDP3) of a chip as open-drain lines.
//
// A line is never driven high: High switches the pin to input and lets the
// pull-up or another device set the level, Low switches it to output low.
type Lines struct {
	chip *Chip
}

var _ bitbang.Lines = Lines{}

// NewLines returns the I²C lines of c.
func NewLines(c *Chip) Lines {
	return Lines{chip: c}
}

// SDA releases SDA and returns its level.
func (l Lines) SDA() gpio.Level {
	return l.read(sdps[PinSDA])
}

// SCL releases SCL and returns its level.
func (l Lines) SCL() gpio.Level {
	return l.read(sdps[PinSCL])
}

// SetSDA releases SDA for High and pulls it down for Low.
func (l Lines) SetSDA(level gpio.Level) {
	l.set(sdps[PinSDA], level)
}

// SetSCL releases SCL for High and pulls it down for Low.
func (l Lines) SetSCL(level gpio.Level) {
	l.set(sdps[PinSCL], level)
}

// Once the chip is closed, lines read Low and writes are dropped; the bus
// built on them is closed first.
func (l Lines) read(s sdp) gpio.Level {
	if l.chip.setDirection(s, Input) != nil {
		return gpio.Low
	}
	level, _ := l.chip.get(s)
	return level
}

func (l Lines) set(s sdp, level gpio.Level) {
	if level {
		_ = l.chip.setDirection(s, Input)
		return
	}
	_ = l.chip.directionOutput(s, gpio.Low)
}
