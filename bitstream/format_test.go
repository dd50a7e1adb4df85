package bitstream

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "impl1/xo3starter.jed", want: FormatJED},
		{path: "tiny256.HEX", want: FormatHEX},
		{path: "/tmp/a.b/design.Jed", want: FormatJED},
		{path: "design.bit", wantErr: true},
		{path: "design", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				if !strings.Contains(err.Error(), tt.path) {
					t.Errorf("error = %v, want path context", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"jed": FormatJED, "HEX": FormatHEX, ".hex": FormatHEX} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %s, %v; want %s", name, got, err, want)
		}
	}
	if _, err := ParseFormat("bit"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatUnknown.String() != "unknown" {
		t.Errorf("FormatUnknown.String() = %q", FormatUnknown.String())
	}
}

func TestErrorMessages(t *testing.T) {
	le := &LineError{Format: FormatHEX, Line: 4, Length: 10, Err: ErrLineLength}
	if got := le.Error(); got != "hex line 4: invalid line length (length 10)" {
		t.Errorf("LineError.Error() = %q", got)
	}
	if !errors.Is(le, ErrLineLength) {
		t.Error("LineError does not unwrap to its cause")
	}

	be := &BlockError{Line: 12, Pages: 2, Terminator: strings.Repeat("1", 40)}
	msg := be.Error()
	if !strings.Contains(msg, "line 12") || !strings.Contains(msg, "after 2 pages") || !strings.Contains(msg, "...") {
		t.Errorf("BlockError.Error() = %q", msg)
	}

	if IsDecodeError(errors.New("other")) {
		t.Error("plain error reported as decode error")
	}
}
