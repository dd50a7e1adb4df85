package bitstream

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a bitstream file format.
type Format int

const (
	// FormatUnknown is the zero Format
	FormatUnknown Format = iota

	// FormatJED is the JEDEC fuse file produced by Diamond
	FormatJED

	// FormatHEX is one page per line, 32 hex digits
	FormatHEX
)

func (f Format) String() string {
	switch f {
	case FormatJED:
		return "jed"
	case FormatHEX:
		return "hex"
	default:
		return "unknown"
	}
}

// ParseFormat returns the Format for a name such as "jed" or "HEX".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "jed":
		return FormatJED, nil
	case "hex":
		return FormatHEX, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown bitstream format %q", name)
	}
}

// DetectFormat returns the Format implied by a file's extension.
func DetectFormat(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("cannot detect bitstream format of %q: no extension", path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot detect bitstream format of %q: %w", path, err)
	}
	return f, nil
}
