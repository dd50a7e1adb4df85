package protocol

import (
	"encoding/binary"
	"fmt"
)

// opcodeFrame returns the standard 4-byte frame [OP][P0][P1][P2].
func opcodeFrame(op, p0, p1, p2 byte) []byte {
	return []byte{op, p0, p1, p2}
}

// BuildReadDeviceIDCmd constructs the Read Device ID frame.
//
//	[0xE0][00][00][00]  -> 4 byte response
func BuildReadDeviceIDCmd() []byte {
	return opcodeFrame(OpReadDeviceID, 0, 0, 0)
}

// BuildReadUserCodeCmd constructs the Read USERCODE frame.
//
//	[0xC0][00][00][00]  -> 4 byte response
func BuildReadUserCodeCmd() []byte {
	return opcodeFrame(OpReadUserCode, 0, 0, 0)
}

// BuildReadStatusCmd constructs the Read Status Register frame.
//
//	[0x3C][00][00][00]  -> 4 byte response
func BuildReadStatusCmd() []byte {
	return opcodeFrame(OpReadStatus, 0, 0, 0)
}

// BuildReadFeatureRowCmd constructs the Read Feature Row frame.
//
//	[0xE7][00][00][00]  -> 8 byte response
func BuildReadFeatureRowCmd() []byte {
	return opcodeFrame(OpReadFeatureRow, 0, 0, 0)
}

// BuildReadFeatureBitsCmd constructs the Read FEABITS frame.
//
//	[0xFB][00][00][00]  -> 2 byte response
func BuildReadFeatureBitsCmd() []byte {
	return opcodeFrame(OpReadFeatureBits, 0, 0, 0)
}

// BuildReadOTPFusesCmd constructs the Read OTP Fuses frame.
//
//	[0xFA][00][00][00]  -> 1 byte response
func BuildReadOTPFusesCmd() []byte {
	return opcodeFrame(OpReadOTPFuses, 0, 0, 0)
}

// BuildReadFlashPageCmd constructs a frame reading one page from the
// configuration flash at the current address.
//
//	[0x73][00][00][01]  -> 16 byte response
func BuildReadFlashPageCmd() []byte {
	return opcodeFrame(OpReadFlash, 0, 0, SinglePage)
}

// BuildReadUFMPageCmd constructs a frame reading one page from the UFM at
// the current address.
//
//	[0xCA][00][00][01]  -> 16 byte response
func BuildReadUFMPageCmd() []byte {
	return opcodeFrame(OpReadUFM, 0, 0, SinglePage)
}

// BuildEraseUFMCmd constructs the UFM-only erase frame.
func BuildEraseUFMCmd() []byte {
	return opcodeFrame(OpEraseUFM, 0, 0, 0)
}

// BuildEraseCmd constructs an erase frame for the regions in mask.
// The low 24 bits of the mask are encoded big-endian after the opcode:
//
//	[0x0E][MASK 23:16][MASK 15:8][MASK 7:0]
func BuildEraseCmd(mask EraseMask) []byte {
	m := uint32(mask)
	return opcodeFrame(OpErase, byte(m>>16), byte(m>>8), byte(m))
}

// BuildEnableConfigTransparentCmd constructs the transparent configuration
// mode frame. User logic keeps running.
//
//	[0x74][08][00]
func BuildEnableConfigTransparentCmd() []byte {
	return []byte{OpEnableConfigTransparent, ConfigModeParam, 0}
}

// BuildEnableConfigOfflineCmd constructs the offline configuration mode
// frame. User logic is suspended.
//
//	[0xC6][08][00]
func BuildEnableConfigOfflineCmd() []byte {
	return []byte{OpEnableConfigOffline, ConfigModeParam, 0}
}

// BuildCheckBusyCmd constructs the busy flag frame.
//
//	[0xF0][00][00][00]  -> 1 byte response, bit 7 set while busy
func BuildCheckBusyCmd() []byte {
	return opcodeFrame(OpCheckBusy, 0, 0, 0)
}

// BuildResetAddressCmd constructs the frame resetting the page address
// counter of a sector to its first page.
func BuildResetAddressCmd(sector Sector) ([]byte, error) {
	switch sector {
	case SectorConfig:
		return opcodeFrame(OpResetConfigAddress, 0, 0, 0), nil
	case SectorUFM:
		return opcodeFrame(OpResetUFMAddress, 0, 0, 0), nil
	default:
		return nil, fmt.Errorf("invalid sector %s", sector)
	}
}

// BuildSetAddressCmd constructs the frame moving the page address counter
// of a sector to page.
//
//	[0xB4][00][00][00][SECTOR][00][PAGE_H][PAGE_L]
func BuildSetAddressCmd(sector Sector, page uint16) ([]byte, error) {
	if sector != SectorConfig && sector != SectorUFM {
		return nil, fmt.Errorf("invalid sector %s", sector)
	}

	frame := make([]byte, AddressCommandSize)
	frame[0] = OpSetAddress
	frame[4] = byte(sector)
	binary.BigEndian.PutUint16(frame[6:8], page)

	return frame, nil
}

// BuildProgramPageCmd constructs the page-write frame. The data length must
// be exactly PageSize bytes.
//
//	[0x70][00][00][01][DATA(16)]
func BuildProgramPageCmd(data []byte) ([]byte, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	frame := make([]byte, 0, ProgramPageCommandSize)
	frame = append(frame, OpProgramPage, 0, 0, SinglePage)
	frame = append(frame, data...)

	return frame, nil
}

// BuildProgramDoneCmd constructs the frame that ends a programming sequence.
func BuildProgramDoneCmd() []byte {
	return opcodeFrame(OpProgramDone, 0, 0, 0)
}

// BuildRefreshCmd constructs the frame that reloads the configuration and
// leaves programming mode.
//
//	[0x79][00][00]
func BuildRefreshCmd() []byte {
	return []byte{OpRefresh, 0, 0}
}

// BuildWakeupCmd constructs the no-op wakeup frame.
//
//	[0xFF][FF][FF][FF]
func BuildWakeupCmd() []byte {
	return opcodeFrame(OpNoop, 0xFF, 0xFF, 0xFF)
}
