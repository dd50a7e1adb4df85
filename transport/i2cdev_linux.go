//go:build linux

package transport

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// /dev/i2c-N ioctl request and message flag, from linux/i2c-dev.h and
// linux/i2c.h.
const (
	i2cRdwr = 0x0707 // combined R/W transfer, one STOP only
	i2cMRd  = 0x0001 // read data, from slave to master
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   unsafe.Pointer
}

// i2cRdwrData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrData struct {
	msgs  unsafe.Pointer
	nmsgs uint32
}

// Dev is a Linux I²C character device. A write followed by a read is issued
// as one I2C_RDWR transfer, so the read starts with a repeated start.
type Dev struct {
	path string
	fd   int
}

// OpenDev opens an I²C character device such as "/dev/i2c-1".
func OpenDev(path string) (*Dev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Dev{path: path, fd: fd}, nil
}

// Tx implements isp.Bus.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: addr, len: uint16(len(w)), buf: unsafe.Pointer(&w[0])}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: addr, flags: i2cMRd, len: uint16(len(r)), buf: unsafe.Pointer(&r[0])}
		n++
	}
	if n == 0 {
		return nil
	}

	data := i2cRdwrData{msgs: unsafe.Pointer(&msgs[0]), nmsgs: uint32(n)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), i2cRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if errno != 0 {
		return fmt.Errorf("%s: transfer to 0x%02X: %w", d.path, addr, errno)
	}
	return nil
}

// Close closes the device.
func (d *Dev) Close() error {
	return unix.Close(d.fd)
}

func (d *Dev) String() string {
	return d.path
}
