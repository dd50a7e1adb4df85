package isp

// Bus is a two-wire bus able to address the configuration port.
//
// Tx writes w to the device at addr. When r is non-empty it then reads len(r)
// bytes into r as part of the same transaction, with a repeated start and no
// stop condition in between. When r is empty the write ends with a stop.
//
// periph.io's i2c.Bus and TinyGo's drivers.I2C satisfy Bus as is.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Locker is implemented by buses shared between several users. Open holds
// the lock for the lifetime of the Programmer.
type Locker interface {
	// TryLock attempts to take exclusive use of the bus without blocking
	TryLock() bool

	// Unlock releases exclusive use
	Unlock()
}
