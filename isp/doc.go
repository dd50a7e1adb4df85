// Package isp programs Lattice MachXO2/MachXO3 FPGAs over their I²C
// sysCONFIG port.
//
// # Overview
//
// A Programmer owns the bus for one device and exposes every sysCONFIG
// operation used for in-system programming:
//   - Identification: device ID, user code, status, feature row and bits
//   - Configuration mode: transparent and offline entry, refresh, wakeup
//   - Erase and busy polling
//   - Address control and 16-byte page writes
//   - Streaming a JED or HEX bitstream into configuration flash
//
// # Basic Usage
//
// Program a device from a file:
//
//	bus, err := transport.OpenI2C("/dev/i2c-1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bus.Close()
//
//	prog, err := isp.Open(ctx, bus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer prog.Close()
//
//	res, err := prog.ProgramFile(ctx, "impl1/design.jed")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %d pages, status %s\n", res.Pages, res.Status)
//
// Program runs the whole sequence. For custom sequences drive the steps
// yourself:
//
//	prog.EnableConfigOffline(ctx)
//	prog.Erase(ctx, protocol.EraseConfigFlash|protocol.EraseUFM)
//	prog.WaitBusy(ctx)
//	prog.LoadHEX(ctx, f)
//	prog.ProgramDone(ctx)
//	prog.Refresh(ctx)
//
// # Bounded Waits
//
// WaitBusy and bus acquisition sleep between polls. They end when ctx ends
// or when a configured bound is reached:
//
//	prog, err := isp.Open(ctx, bus,
//	    isp.WithPollInterval(100*time.Microsecond, 20*time.Millisecond),
//	    isp.WithBusyTimeout(30*time.Second),
//	    isp.WithBusyRetries(5000),
//	)
//
// A wait cut short returns a *DeviceUnresponsiveError.
//
// # Malformed Input
//
// Malformed HEX lines and JED blocks are skipped and counted in LoadResult.
// Observe them with WithDecodeErrorCallback, or abort on the first one with
// WithStrictDecoding(true).
//
// # Error Handling
//
// The package provides structured error types:
//   - TransactionError: the transport failed; the session should be abandoned
//   - PageSizeError: a page payload was not 16 bytes; nothing was sent
//   - DeviceUnresponsiveError: busy never cleared within the bounds
//   - ErrBusUnavailable: Open could not take the bus lock
//   - ErrClosed: the Programmer was closed
//
// # Hardware Independence
//
// Any type with a Tx(addr, w, r) method can carry the traffic. periph.io
// and TinyGo buses work directly; package transport adds Linux i2c-dev,
// SPI and shared-bus wrappers, and package isptest simulates a device.
package isp
