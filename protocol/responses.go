package protocol

import (
	"encoding/binary"
	"fmt"
)

// checkLen validates the size of a response buffer.
func checkLen(what string, data []byte, want int) error {
	if len(data) != want {
		return &ResponseError{Operation: what, Got: len(data), Want: want}
	}
	return nil
}

// ParseDeviceIDResponse decodes the 4-byte device ID, most significant byte first.
func ParseDeviceIDResponse(data []byte) (DeviceID, error) {
	if err := checkLen("read device id", data, DeviceIDResponseSize); err != nil {
		return 0, err
	}
	return DeviceID(decodeUint32(data)), nil
}

// ParseUserCodeResponse decodes the 4-byte USERCODE.
func ParseUserCodeResponse(data []byte) (uint32, error) {
	if err := checkLen("read user code", data, UserCodeResponseSize); err != nil {
		return 0, err
	}
	return decodeUint32(data), nil
}

// ParseStatusResponse decodes the 4-byte status register.
func ParseStatusResponse(data []byte) (Status, error) {
	if err := checkLen("read status", data, StatusResponseSize); err != nil {
		return 0, err
	}
	return Status(decodeUint32(data)), nil
}

// ParseFeatureRowResponse copies the 8-byte feature row.
func ParseFeatureRowResponse(data []byte) ([FeatureRowResponseSize]byte, error) {
	var row [FeatureRowResponseSize]byte
	if err := checkLen("read feature row", data, FeatureRowResponseSize); err != nil {
		return row, err
	}
	copy(row[:], data)
	return row, nil
}

// ParseFeatureBitsResponse decodes the 2-byte FEABITS.
func ParseFeatureBitsResponse(data []byte) (uint16, error) {
	if err := checkLen("read feature bits", data, FeatureBitsResponseSize); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

// ParsePageResponse copies a 16-byte flash or UFM page.
func ParsePageResponse(data []byte) (Page, error) {
	var p Page
	if err := checkLen("read page", data, PageResponseSize); err != nil {
		return p, err
	}
	copy(p[:], data)
	return p, nil
}

// ParseBusyResponse reports whether bit 7 of the busy byte is set.
// All other bits are ignored.
func ParseBusyResponse(data []byte) (bool, error) {
	if err := checkLen("check busy", data, BusyResponseSize); err != nil {
		return false, err
	}
	return data[0]&BusyFlag != 0, nil
}

// FormatBytes renders a response buffer as space separated hex bytes.
func FormatBytes(data []byte) string {
	s := make([]byte, 0, len(data)*3)
	for i, b := range data {
		if i > 0 {
			s = append(s, ' ')
		}
		s = append(s, fmt.Sprintf("%02X", b)...)
	}
	return string(s)
}
