// Package miniptm drives the software definable pins (SDPs) of the Intel
// I225 controller on MiniPTM boards.
//
// Two SDPs are exposed as GPIO pins and, together, as a bit-banged I²C bus
// with open-drain semantics: SDP2 is SDA and SDP3 is SCL. A [Manager]
// discovers the controllers, keeps those whose MAC address is on an allow
// list, maps their register window and registers the pins and the bus
// with the periph.io registries, so that they can be opened with gpioreg
// and i2creg like any other host pin or bus.
//
// Set MINIPTM_DEBUG in the environment to log every register write at debug
// level.
package miniptm
