// Package transport provides isp.Bus implementations for real hardware.
//
//   - I2C: any periph.io I²C bus, by name ("/dev/i2c-1", "1", "")
//   - SPI: a periph.io SPI port, for devices wired to the sysCONFIG SPI pins
//   - Dev: a Linux /dev/i2c-N character device driven with I2C_RDWR
//   - OpenFTDII2C / OpenFTDISPI: an FT232H/FT2232H USB adapter
//   - FromDriver: a TinyGo drivers.I2C peripheral
//
// Wrap a bus in Shared when several programmers in one process use it;
// isp.Open then waits for exclusive use.
package transport
