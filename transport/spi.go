package transport

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"tinygo.org/x/drivers"
)

// DefaultSPIFrequency is the clock used when OpenSPI is given zero.
const DefaultSPIFrequency = 10 * physic.MegaHertz

// spiConn is the full-duplex transfer shared by periph.io's spi.Conn and
// TinyGo's drivers.SPI.
type spiConn interface {
	Tx(w, r []byte) error
}

// SPI carries sysCONFIG frames over SPI. Every frame is one chip-select
// cycle; responses are clocked in after the command bytes. The bus address
// is ignored.
type SPI struct {
	conn spiConn
	port spi.PortCloser
}

// OpenSPI opens the SPI port registered as name, such as "/dev/spidev0.0",
// in mode 0 with 8-bit words.
func OpenSPI(name string, freq physic.Frequency) (*SPI, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", name, err)
	}
	return connectSPI(port, freq)
}

func connectSPI(port spi.PortCloser, freq physic.Frequency) (*SPI, error) {
	if freq == 0 {
		freq = DefaultSPIFrequency
	}
	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect spi port: %w", err)
	}
	return &SPI{conn: conn, port: port}, nil
}

// FromDriverSPI adapts a configured TinyGo SPI peripheral. The caller
// drives chip select around each transaction.
func FromDriverSPI(d drivers.SPI) *SPI {
	return &SPI{conn: d}
}

// Tx implements isp.Bus.
func (s *SPI) Tx(_ uint16, w, r []byte) error {
	if len(r) == 0 {
		return s.conn.Tx(w, nil)
	}

	tx := make([]byte, len(w)+len(r))
	copy(tx, w)
	rx := make([]byte, len(tx))
	if err := s.conn.Tx(tx, rx); err != nil {
		return err
	}
	copy(r, rx[len(w):])
	return nil
}

// Close releases the port when it was opened by OpenSPI.
func (s *SPI) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
