// Package board talks to the devices behind the MiniPTM I²C adapter: the
// PCA9548 channel mux, the Renesas DPLL and the four SFP cages.
package board

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Errors.
var (
	ErrInvalidSFP = errors.New("board: SFP cage must be 1-4")
	ErrNotPresent = errors.New("board: SFP module not present")
)

// Board serializes access to the devices on one MiniPTM bus and tracks the
// mux channel and DPLL page currently selected.
type Board struct {
	mu     sync.Mutex
	bus    i2c.Bus
	log    *slog.Logger
	mux    Channel
	page   int
	paged  bool
	muxSet bool

	eepromDelay time.Duration
}

// New returns a Board on bus. A nil logger uses slog.Default.
func New(bus i2c.Bus, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		bus:         bus,
		log:         logger,
		eepromDelay: EEPROMWriteDelay,
	}
}

func (b *Board) String() string {
	return fmt.Sprintf("MiniPTM board on %s", b.bus)
}

// Bus returns the underlying bus.
func (b *Board) Bus() i2c.Bus {
	return b.bus
}
