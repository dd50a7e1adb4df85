package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Page is one 16-byte programming granule.
type Page [PageSize]byte

// String returns the page as 32 lower-case hex digits, the HEX file encoding.
func (p Page) String() string {
	return hex.EncodeToString(p[:])
}

// Bits returns the page as 128 '0'/'1' characters, most significant bit of
// byte 0 first, the JED file encoding.
func (p Page) Bits() string {
	var sb strings.Builder
	sb.Grow(PageSize * 8)
	for _, b := range p {
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String()
}

// Sector selects one of the two independently addressed memory regions.
type Sector byte

const (
	// SectorConfig is the configuration flash sector
	SectorConfig Sector = 0x00

	// SectorUFM is the user flash memory sector
	SectorUFM Sector = UFMSectorFlag
)

func (s Sector) String() string {
	switch s {
	case SectorConfig:
		return "config"
	case SectorUFM:
		return "ufm"
	default:
		return fmt.Sprintf("sector(0x%02X)", byte(s))
	}
}

// EraseMask selects the regions cleared by an erase command.
// Flags may be combined with |.
type EraseMask uint32

// Erase region flags.
const (
	EraseSRAM        EraseMask = 1 << 16
	EraseFeatureRow  EraseMask = 1 << 17
	EraseConfigFlash EraseMask = 1 << 18
	EraseUFM         EraseMask = 1 << 19
)

var eraseNames = []struct {
	flag EraseMask
	name string
}{
	{EraseSRAM, "sram"},
	{EraseFeatureRow, "feature-row"},
	{EraseConfigFlash, "config-flash"},
	{EraseUFM, "ufm"},
}

// String lists the selected regions joined by "|".
func (m EraseMask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	rest := m
	for _, e := range eraseNames {
		if m&e.flag != 0 {
			names = append(names, e.name)
			rest &^= e.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%06X", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// ParseEraseRegion returns the flag for a region name as printed by EraseMask.String.
func ParseEraseRegion(name string) (EraseMask, error) {
	for _, e := range eraseNames {
		if strings.EqualFold(name, e.name) {
			return e.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown erase region %q", name)
}

// DeviceID is the 32-bit JTAG IDCODE reported by the device.
type DeviceID uint32

func (id DeviceID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// Status is the 32-bit configuration status register.
type Status uint32

// Status register bits.
const (
	StatusDone          Status = 1 << 8
	StatusConfigEnabled Status = 1 << 9
	StatusBusy          Status = 1 << 12
	StatusFail          Status = 1 << 13

	statusErrorShift = 23
	statusErrorMask  = 0x7
)

// Done reports whether the DONE bit is set.
func (s Status) Done() bool { return s&StatusDone != 0 }

// ConfigEnabled reports whether the configuration port is enabled.
func (s Status) ConfigEnabled() bool { return s&StatusConfigEnabled != 0 }

// Busy reports whether an internal operation is in progress.
func (s Status) Busy() bool { return s&StatusBusy != 0 }

// Fail reports whether the last operation failed.
func (s Status) Fail() bool { return s&StatusFail != 0 }

// ErrorCode returns the 3-bit configuration error code field.
func (s Status) ErrorCode() StatusError {
	return StatusError((uint32(s) >> statusErrorShift) & statusErrorMask)
}

func (s Status) String() string {
	return fmt.Sprintf("0x%08X done=%t config=%t busy=%t fail=%t err=%s",
		uint32(s), s.Done(), s.ConfigEnabled(), s.Busy(), s.Fail(), s.ErrorCode())
}

// StatusError is the error code field of the status register.
type StatusError byte

func (e StatusError) String() string {
	switch e {
	case 0:
		return "none"
	case 1:
		return "id"
	case 2:
		return "illegal command"
	case 3:
		return "crc"
	case 4:
		return "preamble"
	case 5:
		return "abort"
	case 6:
		return "overflow"
	case 7:
		return "sdm eof"
	default:
		return fmt.Sprintf("code %d", byte(e))
	}
}

// decodeUint32 decodes a big-endian 32-bit response.
func decodeUint32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}
