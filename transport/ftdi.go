package transport

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/ftdi"
)

// ErrNoFTDI is returned when no MPSSE capable FTDI adapter is attached.
var ErrNoFTDI = errors.New("no FT232H/FT2232H adapter found")

// findFTDI returns the first attached adapter with an MPSSE engine.
func findFTDI() (*ftdi.FT232H, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	for _, dev := range ftdi.All() {
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}
	return nil, ErrNoFTDI
}

// OpenFTDII2C opens the MPSSE I²C bus of the first FT232H/FT2232H adapter,
// with ADBUS0 as SCL and ADBUS1/ADBUS2 tied together as SDA.
func OpenFTDII2C() (*I2C, error) {
	ft, err := findFTDI()
	if err != nil {
		return nil, err
	}
	bus, err := ft.I2C(gpio.PullNoChange)
	if err != nil {
		return nil, fmt.Errorf("failed to get I2C bus: %w", err)
	}
	return &I2C{bus: bus}, nil
}

// OpenFTDISPI opens the MPSSE SPI port of the first FT232H/FT2232H adapter.
func OpenFTDISPI(freq physic.Frequency) (*SPI, error) {
	ft, err := findFTDI()
	if err != nil {
		return nil, err
	}
	port, err := ft.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}
	return connectSPI(port, freq)
}
