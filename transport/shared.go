package transport

import (
	"io"
	"sync"

	"github.com/moffa90/go-machxo/isp"
)

// Shared guards a bus used by several programmers. It implements isp.Bus
// and isp.Locker; isp.Open holds the lock until the Programmer is closed.
type Shared struct {
	bus isp.Bus
	mu  sync.Mutex
}

// NewShared wraps bus.
func NewShared(bus isp.Bus) *Shared {
	if bus == nil {
		panic("bus cannot be nil")
	}
	return &Shared{bus: bus}
}

// Tx forwards to the wrapped bus. The caller must hold the lock.
func (s *Shared) Tx(addr uint16, w, r []byte) error {
	return s.bus.Tx(addr, w, r)
}

// TryLock takes exclusive use of the bus if it is free.
func (s *Shared) TryLock() bool {
	return s.mu.TryLock()
}

// Unlock releases exclusive use.
func (s *Shared) Unlock() {
	s.mu.Unlock()
}

// Close closes the wrapped bus if it can be closed.
func (s *Shared) Close() error {
	if c, ok := s.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
