package isp

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/moffa90/go-machxo/protocol"
)

// CheckBusy reads the busy flag once.
func (p *Programmer) CheckBusy(ctx context.Context) (bool, error) {
	resp, err := p.read(ctx, "check busy", protocol.BuildCheckBusyCmd(), protocol.BusyResponseSize)
	if err != nil {
		return false, err
	}
	return protocol.ParseBusyResponse(resp)
}

// WaitBusy polls CheckBusy until the device reports not busy and returns
// the number of polls issued. It sleeps between polls, doubling the sleep
// from the minimum to the maximum poll interval.
//
// The wait is bounded by ctx, the busy timeout and the busy retry count.
// When a bound is hit it returns a *DeviceUnresponsiveError. With none of
// them set it waits for as long as the device stays busy.
func (p *Programmer) WaitBusy(ctx context.Context) (int, error) {
	if p.config.BusyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.BusyTimeout)
		defer cancel()
	}

	start := time.Now()
	b := p.newBackoff()
	polls := 0
	for {
		if err := ctx.Err(); err != nil {
			return polls, p.unresponsive(polls, start, err)
		}

		busy, err := p.CheckBusy(ctx)
		if err != nil {
			return polls, err
		}
		polls++
		if !busy {
			p.logDebug("device ready", "polls", polls, "elapsed", time.Since(start))
			return polls, nil
		}

		if p.config.BusyRetries > 0 && polls >= p.config.BusyRetries {
			return polls, p.unresponsive(polls, start, nil)
		}
		if err := sleep(ctx, b.Duration()); err != nil {
			return polls, p.unresponsive(polls, start, err)
		}
	}
}

func (p *Programmer) unresponsive(polls int, start time.Time, err error) error {
	e := &DeviceUnresponsiveError{
		Op:      "wait busy",
		Polls:   polls,
		Elapsed: time.Since(start),
		Err:     err,
	}
	p.logError("device unresponsive", "polls", polls, "elapsed", e.Elapsed)
	return e
}

// acquire polls l.TryLock until it succeeds or the wait is cut short.
func (p *Programmer) acquire(ctx context.Context, l Locker) error {
	if p.config.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.LockTimeout)
		defer cancel()
	}

	b := p.newBackoff()
	for attempts := 1; ; attempts++ {
		if l.TryLock() {
			if attempts > 1 {
				p.logDebug("bus acquired", "attempts", attempts)
			}
			return nil
		}
		if err := sleep(ctx, b.Duration()); err != nil {
			return fmt.Errorf("%w after %d attempts: %w", ErrBusUnavailable, attempts, err)
		}
	}
}

func (p *Programmer) newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    p.config.PollMin,
		Max:    p.config.PollMax,
		Factor: 2,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
