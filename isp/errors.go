package isp

import (
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-machxo/protocol"
)

var (
	// ErrBusUnavailable is returned by Open when the bus lock could not be taken
	ErrBusUnavailable = errors.New("bus unavailable")

	// ErrClosed is returned by every operation on a closed Programmer
	ErrClosed = errors.New("programmer is closed")

	// ErrInvalidPageSize matches every PageSizeError
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrDeviceUnresponsive matches every DeviceUnresponsiveError
	ErrDeviceUnresponsive = errors.New("device unresponsive")
)

// TransactionError indicates that the bus transport failed a transaction.
// It ends the session: the device state is unknown afterwards.
type TransactionError struct {
	Op    string
	Frame []byte
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction [%s] failed: %v", e.Op, protocol.FormatBytes(e.Frame), e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// PageSizeError indicates a page payload that is not exactly 16 bytes.
// No transaction was issued.
type PageSizeError struct {
	Size int
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("%v: page must be exactly %d bytes, got %d", ErrInvalidPageSize, protocol.PageSize, e.Size)
}

func (e *PageSizeError) Is(target error) bool { return target == ErrInvalidPageSize }

// DeviceUnresponsiveError indicates that the device stayed busy past the
// configured poll bound or the context deadline.
type DeviceUnresponsiveError struct {
	Op      string
	Polls   int
	Elapsed time.Duration

	// Err is the context error when the context ended the wait
	Err error
}

func (e *DeviceUnresponsiveError) Error() string {
	msg := fmt.Sprintf("%s: %v after %d polls in %s", e.Op, ErrDeviceUnresponsive, e.Polls, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceUnresponsiveError) Is(target error) bool { return target == ErrDeviceUnresponsive }

func (e *DeviceUnresponsiveError) Unwrap() error { return e.Err }

// IsTransactionError returns true if err is or wraps a TransactionError.
func IsTransactionError(err error) bool {
	var te *TransactionError
	return errors.As(err, &te)
}
