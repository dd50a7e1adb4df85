package isp

import (
	"time"

	"github.com/moffa90/go-machxo/protocol"
)

// Config holds the programmer configuration.
type Config struct {
	// Address is the 7-bit bus address of the configuration port
	Address uint16

	// ProgressCallback is called during loads to report progress (optional)
	ProgressCallback ProgressCallback

	// DecodeErrorCallback is called for every malformed line or block (optional)
	DecodeErrorCallback DecodeErrorCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// PollMin and PollMax bound the sleep between busy and lock polls.
	// The sleep doubles from PollMin up to PollMax.
	PollMin time.Duration
	PollMax time.Duration

	// BusyTimeout bounds each WaitBusy call. Zero waits until the context ends.
	BusyTimeout time.Duration

	// BusyRetries bounds the number of busy polls per WaitBusy call. Zero
	// means unlimited.
	BusyRetries int

	// LockTimeout bounds bus acquisition in Open. Zero waits until the
	// context ends.
	LockTimeout time.Duration

	// CommandDelay is slept after every transaction
	CommandDelay time.Duration

	// StrictDecoding makes the first malformed line or block abort a load
	StrictDecoding bool

	// Transparent selects transparent instead of offline configuration mode in Program
	Transparent bool

	// EraseMask is the set of regions Program erases
	EraseMask protocol.EraseMask

	// Refresh makes Program finish with a refresh
	Refresh bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Address:   protocol.DefaultAddress,
		PollMin:   50 * time.Microsecond,
		PollMax:   10 * time.Millisecond,
		EraseMask: protocol.EraseConfigFlash,
		Refresh:   true,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithAddress sets the bus address of the device. Default is 0x40.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus, isp.WithAddress(0x41))
func WithAddress(addr uint16) Option {
	return func(c *Config) {
		c.Address = addr
	}
}

// WithProgressCallback sets a callback function to track programming progress.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus,
//	    isp.WithProgressCallback(func(p isp.Progress) {
//	        fmt.Printf("[%s] %d pages\n", p.Phase, p.PagesWritten)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithDecodeErrorCallback sets a callback receiving every malformed line or
// block encountered during a load.
func WithDecodeErrorCallback(callback DecodeErrorCallback) Option {
	return func(c *Config) {
		c.DecodeErrorCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus, isp.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithPollInterval sets the minimum and maximum sleep between polls.
// Non-positive values keep the defaults.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus, isp.WithPollInterval(time.Millisecond, 50*time.Millisecond))
func WithPollInterval(min, max time.Duration) Option {
	return func(c *Config) {
		if min > 0 {
			c.PollMin = min
		}
		if max > 0 {
			c.PollMax = max
		}
		if c.PollMax < c.PollMin {
			c.PollMax = c.PollMin
		}
	}
}

// WithBusyTimeout bounds every WaitBusy call. Zero disables the bound so
// only the context ends the wait, which is the default.
func WithBusyTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.BusyTimeout = timeout
		}
	}
}

// WithBusyRetries bounds the number of busy polls per WaitBusy call. Zero
// means unlimited.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus, isp.WithBusyRetries(1000))
func WithBusyRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.BusyRetries = retries
		}
	}
}

// WithLockTimeout bounds bus acquisition in Open. Zero disables the bound so
// only the context ends the wait, which is the default.
func WithLockTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.LockTimeout = timeout
		}
	}
}

// WithCommandDelay sets a delay slept after every transaction.
func WithCommandDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.CommandDelay = delay
		}
	}
}

// WithStrictDecoding makes malformed lines and blocks abort a load instead
// of being skipped. Default is false.
func WithStrictDecoding(strict bool) Option {
	return func(c *Config) {
		c.StrictDecoding = strict
	}
}

// WithTransparentMode makes Program enter transparent configuration mode,
// keeping user logic running. Default is offline mode.
func WithTransparentMode(transparent bool) Option {
	return func(c *Config) {
		c.Transparent = transparent
	}
}

// WithEraseMask sets the regions Program erases. Default is the
// configuration flash.
//
// Example:
//
//	prog, err := isp.Open(ctx, bus, isp.WithEraseMask(protocol.EraseConfigFlash|protocol.EraseUFM))
func WithEraseMask(mask protocol.EraseMask) Option {
	return func(c *Config) {
		c.EraseMask = mask
	}
}

// WithRefresh enables or disables the refresh at the end of Program.
// Default is true.
func WithRefresh(refresh bool) Option {
	return func(c *Config) {
		c.Refresh = refresh
	}
}
