package miniptm

import "github.com/BeatGlow/miniptm/pci"

// Register offsets within BAR 0.
const (
	RegCtrlExt   = 0x0018 // Extended device control
	RegLEDConfig = 0x0e00 // LED configuration

	// MinWindowSize is the smallest register window covering every register we touch.
	MinWindowSize = RegLEDConfig + 4
)

// CTRL_EXT bits for SDP2 and SDP3.
const (
	ctrlExtSDP2Data = 1 << 6
	ctrlExtSDP3Data = 1 << 7
	ctrlExtSDP2Dir  = 1 << 10
	ctrlExtSDP3Dir  = 1 << 11
)

// LED modes, one 8-bit field per LED in LEDCTL.
const (
	LEDAlwaysOn  = 0x0
	LEDAlwaysOff = 0x1

	// LEDErrataValue switches LED0, LED1 and LED2 off. The 1G link LEDs are
	// miswired on MiniPTM V4 boards.
	LEDErrataValue = LEDAlwaysOff<<0 | LEDAlwaysOff<<8 | LEDAlwaysOff<<16
)

// DefaultID is the I225 PCI identifier.
var DefaultID = pci.ID{Vendor: 0x8086, Device: 0x125b}

// Logical pins.
const (
	PinSDA = 0
	PinSCL = 1

	// NumPins is the number of pins of a Chip.
	NumPins = 2
)

// sdp is the register view of one pin.
type sdp struct {
	name string
	dir  uint32
	data uint32
}

var sdps = [NumPins]sdp{
	PinSDA: {name: "SDP2", dir: ctrlExtSDP2Dir, data: ctrlExtSDP2Data},
	PinSCL: {name: "SDP3", dir: ctrlExtSDP3Dir, data: ctrlExtSDP3Data},
}
