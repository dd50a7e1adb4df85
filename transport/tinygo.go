package transport

import "tinygo.org/x/drivers"

// FromDriver adapts a TinyGo I²C peripheral, such as machine.I2C0 after
// Configure, for use with isp.Open.
func FromDriver(d drivers.I2C) *Shared {
	return NewShared(d)
}
