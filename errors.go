package miniptm

import (
	"errors"

	"github.com/BeatGlow/miniptm/bitbang"
)

// Errors.
var (
	ErrResourceMapping = errors.New("miniptm: register window could not be mapped")
	ErrRegistration    = errors.New("miniptm: registration rejected")
	ErrInvalidPin      = errors.New("miniptm: invalid pin")
	ErrClosed          = errors.New("miniptm: chip is closed")
	ErrBusTimeout      = bitbang.ErrTimeout
)
