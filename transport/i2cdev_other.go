//go:build !linux

package transport

import (
	"errors"
	"fmt"
)

// Dev is a Linux I²C character device. It is unavailable on this platform.
type Dev struct{}

// OpenDev always fails outside Linux.
func OpenDev(path string) (*Dev, error) {
	return nil, fmt.Errorf("open %s: %w", path, errors.ErrUnsupported)
}

// Tx implements isp.Bus.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	return errors.ErrUnsupported
}

// Close does nothing.
func (d *Dev) Close() error {
	return nil
}
