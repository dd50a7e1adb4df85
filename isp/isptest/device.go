// Package isptest provides a simulated MachXO2/MachXO3 configuration port
// for tests and examples.
package isptest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/moffa90/go-machxo/protocol"
)

// ErrNoAck is returned for transactions addressed to another device.
var ErrNoAck = errors.New("isptest: no acknowledge")

// DefaultDeviceID is the IDCODE of a MachXO2-7000HC.
const DefaultDeviceID protocol.DeviceID = 0x012BD043

// Tx records one bus transaction.
type Tx struct {
	Addr    uint16
	Write   []byte
	ReadLen int
}

// Opcode returns the first byte of the written frame, or 0 for an empty write.
func (t Tx) Opcode() byte {
	if len(t.Write) == 0 {
		return 0
	}
	return t.Write[0]
}

// Device simulates the sysCONFIG port of one device. It implements the
// Tx method of isp.Bus.
//
// Device keeps a configuration flash and a UFM page store, each with its
// own auto-incrementing page address, a feature row, the status register
// and a busy countdown. Every transaction is logged.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	addr        uint16
	id          protocol.DeviceID
	userCode    uint32
	featureRow  [protocol.FeatureRowResponseSize]byte
	featureBits uint16
	otpFuses    byte

	status     protocol.Status
	configAddr uint16
	ufmAddr    uint16
	flash      map[uint16]protocol.Page
	ufm        map[uint16]protocol.Page
	written    []protocol.Page

	eraseBusy int
	busy      int
	refreshes int

	failOn map[byte]error
	log    []Tx
}

// Option configures a Device.
type Option func(*Device)

// WithAddress sets the bus address the device answers on.
func WithAddress(addr uint16) Option {
	return func(d *Device) {
		d.addr = addr
	}
}

// WithDeviceID sets the IDCODE.
func WithDeviceID(id protocol.DeviceID) Option {
	return func(d *Device) {
		d.id = id
	}
}

// WithUserCode sets the USERCODE.
func WithUserCode(code uint32) Option {
	return func(d *Device) {
		d.userCode = code
	}
}

// WithFeatureRow sets the feature row and feature bits.
func WithFeatureRow(row [protocol.FeatureRowResponseSize]byte, bits uint16) Option {
	return func(d *Device) {
		d.featureRow = row
		d.featureBits = bits
	}
}

// WithEraseBusy makes the device report busy for n polls after every erase.
func WithEraseBusy(n int) Option {
	return func(d *Device) {
		d.eraseBusy = n
	}
}

// NewDevice creates a Device at protocol.DefaultAddress.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		addr:   protocol.DefaultAddress,
		id:     DefaultDeviceID,
		flash:  make(map[uint16]protocol.Page),
		ufm:    make(map[uint16]protocol.Page),
		failOn: make(map[byte]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetBusy makes the next n busy polls report busy.
func (d *Device) SetBusy(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = n
}

// FailOn makes every transaction starting with opcode fail with err.
// A nil err clears the failure.
func (d *Device) FailOn(opcode byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failOn, opcode)
		return
	}
	d.failOn[opcode] = err
}

// SetStatusError sets the error code field of the status register.
func (d *Device) SetStatusError(code protocol.StatusError) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status &^= 0x7 << 23
	d.status |= protocol.Status(code&0x7) << 23
}

// Tx handles one transaction. It implements isp.Bus.
func (d *Device) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log = append(d.log, Tx{Addr: addr, Write: append([]byte(nil), w...), ReadLen: len(r)})

	if addr != d.addr {
		return ErrNoAck
	}
	if len(w) == 0 {
		return errors.New("isptest: empty write")
	}
	if err, ok := d.failOn[w[0]]; ok {
		return err
	}

	resp, err := d.execute(w)
	if err != nil {
		return err
	}
	if len(r) != len(resp) {
		return fmt.Errorf("isptest: opcode 0x%02X: read of %d bytes, want %d", w[0], len(r), len(resp))
	}
	copy(r, resp)
	return nil
}

// execute applies a command frame and returns the response bytes.
func (d *Device) execute(w []byte) ([]byte, error) {
	op := w[0]
	switch op {
	case protocol.OpReadDeviceID:
		return be32(uint32(d.id)), nil
	case protocol.OpReadUserCode:
		return be32(d.userCode), nil
	case protocol.OpReadStatus:
		st := d.status
		if d.busy > 0 {
			st |= protocol.StatusBusy
		}
		return be32(uint32(st)), nil
	case protocol.OpReadFeatureRow:
		return append([]byte(nil), d.featureRow[:]...), nil
	case protocol.OpReadFeatureBits:
		return []byte{byte(d.featureBits >> 8), byte(d.featureBits)}, nil
	case protocol.OpReadOTPFuses:
		return []byte{d.otpFuses}, nil
	case protocol.OpReadFlash:
		page := d.flash[d.configAddr]
		d.configAddr++
		return page[:], nil
	case protocol.OpReadUFM:
		page := d.ufm[d.ufmAddr]
		d.ufmAddr++
		return page[:], nil
	case protocol.OpCheckBusy:
		if d.busy > 0 {
			d.busy--
			return []byte{protocol.BusyFlag}, nil
		}
		return []byte{0x00}, nil
	case protocol.OpErase:
		if len(w) != protocol.CommandSize {
			return nil, frameError(w, protocol.CommandSize)
		}
		d.erase(protocol.EraseMask(w[1])<<16 | protocol.EraseMask(w[2])<<8 | protocol.EraseMask(w[3]))
		return nil, nil
	case protocol.OpEraseUFM:
		d.erase(protocol.EraseUFM)
		return nil, nil
	case protocol.OpEnableConfigTransparent, protocol.OpEnableConfigOffline:
		if len(w) != protocol.ShortCommandSize {
			return nil, frameError(w, protocol.ShortCommandSize)
		}
		d.status |= protocol.StatusConfigEnabled
		return nil, nil
	case protocol.OpResetConfigAddress:
		d.configAddr = 0
		return nil, nil
	case protocol.OpResetUFMAddress:
		d.ufmAddr = 0
		return nil, nil
	case protocol.OpSetAddress:
		if len(w) != protocol.AddressCommandSize {
			return nil, frameError(w, protocol.AddressCommandSize)
		}
		page := binary.BigEndian.Uint16(w[6:8])
		if w[4] == protocol.UFMSectorFlag {
			d.ufmAddr = page
		} else {
			d.configAddr = page
		}
		return nil, nil
	case protocol.OpProgramPage:
		if len(w) != protocol.ProgramPageCommandSize {
			return nil, frameError(w, protocol.ProgramPageCommandSize)
		}
		var page protocol.Page
		copy(page[:], w[protocol.CommandSize:])
		d.flash[d.configAddr] = page
		d.configAddr++
		d.written = append(d.written, page)
		return nil, nil
	case protocol.OpProgramDone:
		d.status |= protocol.StatusDone
		return nil, nil
	case protocol.OpRefresh:
		d.status &^= protocol.StatusConfigEnabled
		d.refreshes++
		return nil, nil
	case protocol.OpNoop:
		return nil, nil
	default:
		return nil, fmt.Errorf("isptest: unknown opcode 0x%02X", op)
	}
}

func (d *Device) erase(mask protocol.EraseMask) {
	if mask&protocol.EraseConfigFlash != 0 {
		d.flash = make(map[uint16]protocol.Page)
		d.status &^= protocol.StatusDone
	}
	if mask&protocol.EraseUFM != 0 {
		d.ufm = make(map[uint16]protocol.Page)
	}
	if mask&protocol.EraseFeatureRow != 0 {
		d.featureRow = [protocol.FeatureRowResponseSize]byte{}
		d.featureBits = 0
	}
	d.busy = d.eraseBusy
}

// Transactions returns a copy of the transaction log.
func (d *Device) Transactions() []Tx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Tx(nil), d.log...)
}

// Opcodes returns the opcode of every logged transaction in order.
func (d *Device) Opcodes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]byte, len(d.log))
	for i, tx := range d.log {
		ops[i] = tx.Opcode()
	}
	return ops
}

// Count returns the number of logged transactions starting with opcode.
func (d *Device) Count(opcode byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, tx := range d.log {
		if tx.Opcode() == opcode {
			n++
		}
	}
	return n
}

// WrittenPages returns every page written by ProgramPage, in order.
func (d *Device) WrittenPages() []protocol.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Page(nil), d.written...)
}

// FlashPage returns the configuration flash page at index and whether it
// was written since the last erase.
func (d *Device) FlashPage(index uint16) (protocol.Page, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, ok := d.flash[index]
	return page, ok
}

// SetUFMPage stores page in the UFM at index.
func (d *Device) SetUFMPage(index uint16, page protocol.Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ufm[index] = page
}

// ConfigAddress returns the current configuration flash page address.
func (d *Device) ConfigAddress() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configAddr
}

// UFMAddress returns the current UFM page address.
func (d *Device) UFMAddress() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ufmAddr
}

// Status returns the status register.
func (d *Device) Status() protocol.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Refreshes returns the number of refresh commands received.
func (d *Device) Refreshes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshes
}

// ClearLog empties the transaction log and the written page list.
func (d *Device) ClearLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = nil
	d.written = nil
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func frameError(w []byte, want int) error {
	return fmt.Errorf("isptest: opcode 0x%02X: frame of %d bytes, want %d", w[0], len(w), want)
}
