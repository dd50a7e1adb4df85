package transport

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// initHost loads the periph.io host drivers once per process. Every caller
// waits for the first call to finish and sees its error.
var initHost = sync.OnceValue(func() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host initialization failed: %w", err)
	}
	return nil
})

// I2C is a periph.io I²C bus.
type I2C struct {
	bus i2c.BusCloser
}

// OpenI2C opens the I²C bus registered as name, such as "/dev/i2c-1" or
// "1". An empty name selects the first bus found.
func OpenI2C(name string) (*I2C, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return &I2C{bus: bus}, nil
}

// Tx implements isp.Bus.
func (b *I2C) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

// SetSpeed sets the bus clock. The sysCONFIG port accepts up to 400kHz.
func (b *I2C) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

// Close releases the bus.
func (b *I2C) Close() error {
	return b.bus.Close()
}

func (b *I2C) String() string {
	return b.bus.String()
}
