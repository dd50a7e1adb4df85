package isp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moffa90/go-machxo/isp/isptest"
	"github.com/moffa90/go-machxo/protocol"
)

// Mock logger for testing
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}

// lockedBus is a Bus with a Locker that refuses the first busyTries attempts.
type lockedBus struct {
	Bus
	mu        sync.Mutex
	busyTries int
	tries     int
	held      bool
	unlocks   int
}

func (b *lockedBus) TryLock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tries++
	if b.held || b.tries <= b.busyTries {
		return false
	}
	b.held = true
	return true
}

func (b *lockedBus) Unlock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = false
	b.unlocks++
}

func fastPolling() Option {
	return WithPollInterval(time.Microsecond, 10*time.Microsecond)
}

func openTest(t *testing.T, bus Bus, opts ...Option) *Programmer {
	t.Helper()
	prog, err := Open(context.Background(), bus, append([]Option{fastPolling()}, opts...)...)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { prog.Close() })
	return prog
}

func TestOpen(t *testing.T) {
	dev := isptest.NewDevice()

	tests := []struct {
		name    string
		options []Option
		want    uint16
	}{
		{
			name:    "with no options",
			options: nil,
			want:    protocol.DefaultAddress,
		},
		{
			name: "with all options",
			options: []Option{
				WithAddress(0x41),
				WithProgressCallback(func(p Progress) {}),
				WithDecodeErrorCallback(func(error) {}),
				WithLogger(&MockLogger{}),
				WithPollInterval(time.Millisecond, 5*time.Millisecond),
				WithBusyTimeout(time.Second),
				WithBusyRetries(10),
				WithLockTimeout(time.Second),
				WithCommandDelay(0),
				WithStrictDecoding(true),
				WithTransparentMode(true),
				WithEraseMask(protocol.EraseUFM),
				WithRefresh(false),
			},
			want: 0x41,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Open(context.Background(), dev, tt.options...)
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer prog.Close()
			if prog.Address() != tt.want {
				t.Errorf("Address() = 0x%02X, want 0x%02X", prog.Address(), tt.want)
			}
		})
	}
}

func TestOpenNilBusPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Open(nil) did not panic")
		}
	}()
	Open(context.Background(), nil)
}

func TestOpenWaitsForLock(t *testing.T) {
	bus := &lockedBus{Bus: isptest.NewDevice(), busyTries: 5}

	prog, err := Open(context.Background(), bus, fastPolling())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if bus.tries != 6 {
		t.Errorf("TryLock called %d times, want 6", bus.tries)
	}

	if err := prog.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if bus.unlocks != 1 {
		t.Errorf("Unlock called %d times, want 1", bus.unlocks)
	}
}

func TestOpenBusUnavailable(t *testing.T) {
	bus := &lockedBus{Bus: isptest.NewDevice(), held: true}

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		_, err := Open(ctx, bus, fastPolling())
		if !errors.Is(err, ErrBusUnavailable) {
			t.Fatalf("error = %v, want ErrBusUnavailable", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want to wrap context.DeadlineExceeded", err)
		}
	})

	t.Run("lock timeout", func(t *testing.T) {
		_, err := Open(context.Background(), bus, fastPolling(), WithLockTimeout(5*time.Millisecond))
		if !errors.Is(err, ErrBusUnavailable) {
			t.Fatalf("error = %v, want ErrBusUnavailable", err)
		}
	})

	if bus.unlocks != 0 {
		t.Errorf("Unlock called %d times on failed Open", bus.unlocks)
	}
}

func TestClose(t *testing.T) {
	dev := isptest.NewDevice()
	prog, err := Open(context.Background(), dev)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if err := prog.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := prog.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() = %v, want ErrClosed", err)
	}
	if _, err := prog.ReadStatus(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadStatus() after Close = %v, want ErrClosed", err)
	}
	if len(dev.Transactions()) != 0 {
		t.Errorf("closed programmer issued %d transactions", len(dev.Transactions()))
	}
}

func TestReads(t *testing.T) {
	row := [protocol.FeatureRowResponseSize]byte{1, 2, 3, 4, 5, 6, 7, 8}
	dev := isptest.NewDevice(
		isptest.WithDeviceID(0x012B9043),
		isptest.WithUserCode(0xCAFEF00D),
		isptest.WithFeatureRow(row, 0x0460),
	)
	prog := openTest(t, dev)
	ctx := context.Background()

	id, err := prog.ReadDeviceID(ctx)
	if err != nil || id != 0x012B9043 {
		t.Errorf("ReadDeviceID() = %s, %v", id, err)
	}

	code, err := prog.ReadUserCode(ctx)
	if err != nil || code != 0xCAFEF00D {
		t.Errorf("ReadUserCode() = 0x%08X, %v", code, err)
	}

	got, err := prog.ReadFeatureRow(ctx)
	if err != nil || got != row {
		t.Errorf("ReadFeatureRow() = %v, %v", got, err)
	}

	bits, err := prog.ReadFeatureBits(ctx)
	if err != nil || bits != 0x0460 {
		t.Errorf("ReadFeatureBits() = 0x%04X, %v", bits, err)
	}

	if _, err := prog.ReadOTPFuses(ctx); err != nil {
		t.Errorf("ReadOTPFuses() error: %v", err)
	}

	st, err := prog.ReadStatus(ctx)
	if err != nil {
		t.Fatalf("ReadStatus() error: %v", err)
	}
	if st.ConfigEnabled() || st.Done() || st.Busy() {
		t.Errorf("fresh device status = %s", st)
	}

	// The feature row read above happened outside configuration mode.
	want := []byte{
		protocol.OpReadDeviceID,
		protocol.OpReadUserCode,
		protocol.OpReadFeatureRow,
		protocol.OpReadFeatureBits,
		protocol.OpReadOTPFuses,
		protocol.OpReadStatus,
	}
	if !bytes.Equal(dev.Opcodes(), want) {
		t.Errorf("opcodes = %s, want %s", protocol.FormatBytes(dev.Opcodes()), protocol.FormatBytes(want))
	}
}

func TestReadLengths(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev)
	ctx := context.Background()

	prog.ReadDeviceID(ctx)
	prog.ReadStatus(ctx)
	prog.ReadFeatureRow(ctx)
	prog.ReadFeatureBits(ctx)
	prog.ReadOTPFuses(ctx)
	prog.ReadFlashPage(ctx)
	prog.ReadUFMPage(ctx)
	prog.CheckBusy(ctx)

	want := []int{4, 4, 8, 2, 1, 16, 16, 1}
	txs := dev.Transactions()
	if len(txs) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(want))
	}
	for i, tx := range txs {
		if tx.ReadLen != want[i] {
			t.Errorf("transaction %d (0x%02X): read %d bytes, want %d", i, tx.Opcode(), tx.ReadLen, want[i])
		}
		if tx.Addr != protocol.DefaultAddress {
			t.Errorf("transaction %d addressed 0x%02X", i, tx.Addr)
		}
	}
}

func TestWriteFrames(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev)
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
		want []byte
	}{
		{"enable transparent", func() error { return prog.EnableConfigTransparent(ctx) }, []byte{0x74, 0x08, 0x00}},
		{"enable offline", func() error { return prog.EnableConfigOffline(ctx) }, []byte{0xC6, 0x08, 0x00}},
		{"erase", func() error { return prog.Erase(ctx, protocol.EraseConfigFlash|protocol.EraseUFM) }, []byte{0x0E, 0x0C, 0x00, 0x00}},
		{"erase ufm", func() error { return prog.EraseUFM(ctx) }, []byte{0xCB, 0x00, 0x00, 0x00}},
		{"reset config", func() error { return prog.ResetConfigAddress(ctx) }, []byte{0x46, 0x00, 0x00, 0x00}},
		{"reset ufm", func() error { return prog.ResetUFMAddress(ctx) }, []byte{0x47, 0x00, 0x00, 0x00}},
		{"set config", func() error { return prog.SetConfigAddress(ctx, 0x0102) }, []byte{0xB4, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02}},
		{"set ufm", func() error { return prog.SetUFMAddress(ctx, 7) }, []byte{0xB4, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x07}},
		{"program done", func() error { return prog.ProgramDone(ctx) }, []byte{0x5E, 0x00, 0x00, 0x00}},
		{"refresh", func() error { return prog.Refresh(ctx) }, []byte{0x79, 0x00, 0x00}},
		{"wakeup", func() error { return prog.Wakeup(ctx) }, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			dev.ClearLog()
			if err := step.run(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			txs := dev.Transactions()
			if len(txs) != 1 {
				t.Fatalf("got %d transactions, want 1", len(txs))
			}
			if !bytes.Equal(txs[0].Write, step.want) {
				t.Errorf("frame = %s, want %s", protocol.FormatBytes(txs[0].Write), protocol.FormatBytes(step.want))
			}
			if txs[0].ReadLen != 0 {
				t.Errorf("write-only command read %d bytes", txs[0].ReadLen)
			}
		})
	}
}

func TestProgramPage(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev)
	ctx := context.Background()

	data := []byte("0123456789abcdef")
	if err := prog.ProgramPage(ctx, data); err != nil {
		t.Fatalf("ProgramPage() error: %v", err)
	}

	txs := dev.Transactions()
	want := append([]byte{0x70, 0x00, 0x00, 0x01}, data...)
	if len(txs) != 1 || !bytes.Equal(txs[0].Write, want) {
		t.Fatalf("transactions = %v, want one frame %s", txs, protocol.FormatBytes(want))
	}
	if dev.ConfigAddress() != 1 {
		t.Errorf("config address = %d, want 1", dev.ConfigAddress())
	}
}

func TestProgramPageInvalidSize(t *testing.T) {
	for _, size := range []int{0, 1, 15, 17, 32} {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			dev := isptest.NewDevice()
			prog := openTest(t, dev)

			err := prog.ProgramPage(context.Background(), make([]byte, size))
			if !errors.Is(err, ErrInvalidPageSize) {
				t.Fatalf("error = %v, want ErrInvalidPageSize", err)
			}
			var pse *PageSizeError
			if !errors.As(err, &pse) || pse.Size != size {
				t.Errorf("error = %#v, want PageSizeError{Size: %d}", err, size)
			}
			if n := len(dev.Transactions()); n != 0 {
				t.Errorf("issued %d transactions, want 0", n)
			}

			// The session continues.
			if err := prog.ProgramPage(context.Background(), make([]byte, protocol.PageSize)); err != nil {
				t.Errorf("ProgramPage() after size error: %v", err)
			}
		})
	}
}

func TestReadBackPages(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev)
	ctx := context.Background()

	pages := [][]byte{bytes.Repeat([]byte{0xA5}, 16), bytes.Repeat([]byte{0x5A}, 16)}
	prog.ResetConfigAddress(ctx)
	for _, p := range pages {
		if err := prog.ProgramPage(ctx, p); err != nil {
			t.Fatalf("ProgramPage() error: %v", err)
		}
	}

	if err := prog.SetConfigAddress(ctx, 1); err != nil {
		t.Fatalf("SetConfigAddress() error: %v", err)
	}
	got, err := prog.ReadFlashPage(ctx)
	if err != nil {
		t.Fatalf("ReadFlashPage() error: %v", err)
	}
	if !bytes.Equal(got[:], pages[1]) {
		t.Errorf("ReadFlashPage() = %s, want %x", got, pages[1])
	}

	var ufm protocol.Page
	ufm[0] = 0x42
	dev.SetUFMPage(3, ufm)
	if err := prog.SetUFMAddress(ctx, 3); err != nil {
		t.Fatalf("SetUFMAddress() error: %v", err)
	}
	got, err = prog.ReadUFMPage(ctx)
	if err != nil || got != ufm {
		t.Errorf("ReadUFMPage() = %s, %v; want %s", got, err, ufm)
	}
	if dev.UFMAddress() != 4 {
		t.Errorf("UFM address = %d, want 4", dev.UFMAddress())
	}
}

func TestTransactionError(t *testing.T) {
	dev := isptest.NewDevice()
	nack := errors.New("nack")
	dev.FailOn(protocol.OpReadDeviceID, nack)
	logger := &MockLogger{}
	prog := openTest(t, dev, WithLogger(logger))

	_, err := prog.ReadDeviceID(context.Background())
	if !IsTransactionError(err) {
		t.Fatalf("error = %v, want TransactionError", err)
	}
	if !errors.Is(err, nack) {
		t.Errorf("error = %v, want to wrap transport error", err)
	}
	var te *TransactionError
	errors.As(err, &te)
	if te.Op != "read device id" || !bytes.Equal(te.Frame, protocol.BuildReadDeviceIDCmd()) {
		t.Errorf("TransactionError = %+v", te)
	}
	if len(logger.errorMsgs) == 0 {
		t.Error("transaction failure was not logged")
	}
}

func TestWrongAddress(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev, WithAddress(0x41))

	_, err := prog.ReadStatus(context.Background())
	if !errors.Is(err, isptest.ErrNoAck) {
		t.Fatalf("error = %v, want ErrNoAck", err)
	}
}

func TestCommandDelayHonoursContext(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev, WithCommandDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := prog.Refresh(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Refresh() = %v, want context.DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "refresh") {
		t.Errorf("error = %q, want operation name", err.Error())
	}
	if elapsed := time.Since(start); elapsed > time.Minute {
		t.Errorf("Refresh() slept %s despite the context deadline", elapsed)
	}
	if dev.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", dev.Refreshes())
	}
}

func TestCancelledContext(t *testing.T) {
	dev := isptest.NewDevice()
	prog := openTest(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := prog.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() with cancelled context = %v", err)
	}
	if len(dev.Transactions()) != 0 {
		t.Error("cancelled context issued a transaction")
	}
}
