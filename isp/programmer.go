package isp

import (
	"context"
	"fmt"

	"github.com/moffa90/go-machxo/protocol"
)

// Programmer drives the sysCONFIG port of one MachXO2/MachXO3 device.
// It owns the bus from Open until Close.
//
// The device follows the sequence
//
//	Normal -> EnableConfig* -> Erase -> WaitBusy -> ResetConfigAddress ->
//	ProgramPage x N -> ProgramDone -> Refresh -> Normal
//
// Programmer does not enforce it: every operation may be issued in any
// order, as the device itself accepts.
//
// Programmer is not safe for concurrent use.
type Programmer struct {
	bus    Bus
	locker Locker
	config Config
	closed bool
}

// Open creates a Programmer for the device on bus.
//
// If bus implements Locker, Open polls TryLock until the lock is taken,
// sleeping between attempts. It fails with ErrBusUnavailable only when ctx
// ends or the lock timeout passes first. Pass context.Background() to wait
// forever.
//
// Example:
//
//	bus, _ := transport.OpenI2C("/dev/i2c-1")
//	prog, err := isp.Open(ctx, bus,
//	    isp.WithProgressCallback(progressFunc),
//	    isp.WithBusyTimeout(30*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer prog.Close()
func Open(ctx context.Context, bus Bus, opts ...Option) (*Programmer, error) {
	if bus == nil {
		panic("bus cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Programmer{
		bus:    bus,
		config: cfg,
	}

	if l, ok := bus.(Locker); ok {
		if err := p.acquire(ctx, l); err != nil {
			return nil, err
		}
		p.locker = l
	}

	p.logDebug("opened", "address", fmt.Sprintf("0x%02X", cfg.Address))
	return p, nil
}

// Close releases the bus. Every later call, including a second Close,
// returns ErrClosed.
func (p *Programmer) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	if p.locker != nil {
		p.locker.Unlock()
	}
	return nil
}

// Address returns the bus address of the device.
func (p *Programmer) Address() uint16 {
	return p.config.Address
}

// ReadDeviceID reads the 32-bit JTAG IDCODE.
func (p *Programmer) ReadDeviceID(ctx context.Context) (protocol.DeviceID, error) {
	resp, err := p.read(ctx, "read device id", protocol.BuildReadDeviceIDCmd(), protocol.DeviceIDResponseSize)
	if err != nil {
		return 0, err
	}
	return protocol.ParseDeviceIDResponse(resp)
}

// ReadUserCode reads the 32-bit USERCODE.
func (p *Programmer) ReadUserCode(ctx context.Context) (uint32, error) {
	resp, err := p.read(ctx, "read user code", protocol.BuildReadUserCodeCmd(), protocol.UserCodeResponseSize)
	if err != nil {
		return 0, err
	}
	return protocol.ParseUserCodeResponse(resp)
}

// ReadStatus reads the 32-bit status register.
func (p *Programmer) ReadStatus(ctx context.Context) (protocol.Status, error) {
	resp, err := p.read(ctx, "read status", protocol.BuildReadStatusCmd(), protocol.StatusResponseSize)
	if err != nil {
		return 0, err
	}
	return protocol.ParseStatusResponse(resp)
}

// ReadFeatureRow reads the 8-byte feature row.
func (p *Programmer) ReadFeatureRow(ctx context.Context) ([protocol.FeatureRowResponseSize]byte, error) {
	resp, err := p.read(ctx, "read feature row", protocol.BuildReadFeatureRowCmd(), protocol.FeatureRowResponseSize)
	if err != nil {
		return [protocol.FeatureRowResponseSize]byte{}, err
	}
	return protocol.ParseFeatureRowResponse(resp)
}

// ReadFeatureBits reads the 16 feature bits.
func (p *Programmer) ReadFeatureBits(ctx context.Context) (uint16, error) {
	resp, err := p.read(ctx, "read feature bits", protocol.BuildReadFeatureBitsCmd(), protocol.FeatureBitsResponseSize)
	if err != nil {
		return 0, err
	}
	return protocol.ParseFeatureBitsResponse(resp)
}

// ReadOTPFuses reads the one-time-programmable fuse byte.
func (p *Programmer) ReadOTPFuses(ctx context.Context) (byte, error) {
	resp, err := p.read(ctx, "read otp fuses", protocol.BuildReadOTPFusesCmd(), protocol.OTPFusesResponseSize)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

// ReadFlashPage reads the configuration flash page at the current address.
// The device advances the address afterwards.
func (p *Programmer) ReadFlashPage(ctx context.Context) (protocol.Page, error) {
	resp, err := p.read(ctx, "read flash page", protocol.BuildReadFlashPageCmd(), protocol.PageResponseSize)
	if err != nil {
		return protocol.Page{}, err
	}
	return protocol.ParsePageResponse(resp)
}

// ReadUFMPage reads the UFM page at the current address.
// The device advances the address afterwards.
func (p *Programmer) ReadUFMPage(ctx context.Context) (protocol.Page, error) {
	resp, err := p.read(ctx, "read ufm page", protocol.BuildReadUFMPageCmd(), protocol.PageResponseSize)
	if err != nil {
		return protocol.Page{}, err
	}
	return protocol.ParsePageResponse(resp)
}

// Erase starts erasing the regions in mask. It does not wait: call WaitBusy
// before the next command.
func (p *Programmer) Erase(ctx context.Context, mask protocol.EraseMask) error {
	p.logDebug("erase", "regions", mask.String())
	return p.write(ctx, "erase", protocol.BuildEraseCmd(mask))
}

// EraseUFM starts erasing the user flash memory. It does not wait.
func (p *Programmer) EraseUFM(ctx context.Context) error {
	return p.write(ctx, "erase ufm", protocol.BuildEraseUFMCmd())
}

// EnableConfigTransparent enters configuration mode while user logic keeps
// running.
func (p *Programmer) EnableConfigTransparent(ctx context.Context) error {
	return p.write(ctx, "enable config transparent", protocol.BuildEnableConfigTransparentCmd())
}

// EnableConfigOffline enters configuration mode with user logic halted.
func (p *Programmer) EnableConfigOffline(ctx context.Context) error {
	return p.write(ctx, "enable config offline", protocol.BuildEnableConfigOfflineCmd())
}

// ResetConfigAddress moves the configuration flash address to page 0.
func (p *Programmer) ResetConfigAddress(ctx context.Context) error {
	return p.resetAddress(ctx, "reset config address", protocol.SectorConfig)
}

// ResetUFMAddress moves the UFM address to page 0.
func (p *Programmer) ResetUFMAddress(ctx context.Context) error {
	return p.resetAddress(ctx, "reset ufm address", protocol.SectorUFM)
}

func (p *Programmer) resetAddress(ctx context.Context, op string, sector protocol.Sector) error {
	frame, err := protocol.BuildResetAddressCmd(sector)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return p.write(ctx, op, frame)
}

// SetConfigAddress moves the configuration flash address to page.
func (p *Programmer) SetConfigAddress(ctx context.Context, page uint16) error {
	return p.setAddress(ctx, "set config address", protocol.SectorConfig, page)
}

// SetUFMAddress moves the UFM address to page.
func (p *Programmer) SetUFMAddress(ctx context.Context, page uint16) error {
	return p.setAddress(ctx, "set ufm address", protocol.SectorUFM, page)
}

func (p *Programmer) setAddress(ctx context.Context, op string, sector protocol.Sector, page uint16) error {
	frame, err := protocol.BuildSetAddressCmd(sector, page)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return p.write(ctx, op, frame)
}

// ProgramPage writes one 16-byte page at the current configuration address.
// The device advances the address afterwards.
//
// A payload of any other size returns a *PageSizeError and issues no
// transaction.
func (p *Programmer) ProgramPage(ctx context.Context, data []byte) error {
	frame, err := protocol.BuildProgramPageCmd(data)
	if err != nil {
		p.logError("wrong page size", "size", len(data))
		return &PageSizeError{Size: len(data)}
	}
	return p.write(ctx, "program page", frame)
}

// ProgramDone sets the DONE bit after the last page.
func (p *Programmer) ProgramDone(ctx context.Context) error {
	return p.write(ctx, "program done", protocol.BuildProgramDoneCmd())
}

// Refresh reloads the configuration from flash, as after a power cycle.
func (p *Programmer) Refresh(ctx context.Context) error {
	return p.write(ctx, "refresh", protocol.BuildRefreshCmd())
}

// Wakeup sends the no-op frame that wakes the configuration port.
func (p *Programmer) Wakeup(ctx context.Context) error {
	return p.write(ctx, "wakeup", protocol.BuildWakeupCmd())
}

// write sends a command frame with no response.
func (p *Programmer) write(ctx context.Context, op string, frame []byte) error {
	return p.tx(ctx, op, frame, nil)
}

// read sends a command frame and reads size response bytes in the same
// transaction.
func (p *Programmer) read(ctx context.Context, op string, frame []byte, size int) ([]byte, error) {
	resp := make([]byte, size)
	if err := p.tx(ctx, op, frame, resp); err != nil {
		return nil, err
	}
	p.logDebug(op, "response", protocol.FormatBytes(resp))
	return resp, nil
}

func (p *Programmer) tx(ctx context.Context, op string, frame, resp []byte) error {
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.bus.Tx(p.config.Address, frame, resp); err != nil {
		p.logError("transaction failed",
			"op", op,
			"frame", protocol.FormatBytes(frame),
			"error", err,
		)
		return &TransactionError{Op: op, Frame: frame, Err: err}
	}

	if p.config.CommandDelay > 0 {
		if err := sleep(ctx, p.config.CommandDelay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (p *Programmer) logError(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Error(msg, keysAndValues...)
	}
}
