package bitstream

import (
	"errors"
	"fmt"
)

// Causes carried by LineError.
var (
	// ErrLineLength indicates a data line of the wrong length
	ErrLineLength = errors.New("invalid line length")

	// ErrInvalidCharacter indicates a character outside the line's alphabet
	ErrInvalidCharacter = errors.New("invalid character")

	// ErrInvalidOffset indicates an L record whose offset is not an unsigned decimal
	ErrInvalidOffset = errors.New("invalid L record offset")

	// ErrUnsupportedOffset indicates an L record with a non-zero offset
	ErrUnsupportedOffset = errors.New("unsupported L record offset")
)

// ErrBlockTerminator matches every BlockError.
var ErrBlockTerminator = errors.New("malformed block terminator")

// LineError reports one malformed line. Its recovery policy is line-level:
// the line contributes no page and the decoder continues with the next line.
type LineError struct {
	// Format is the file format being decoded
	Format Format

	// Line is the 1-based line number
	Line int

	// Length is the length of the line after trailing whitespace is removed
	Length int

	// Err is the cause: ErrLineLength, ErrInvalidCharacter (HEX only),
	// ErrInvalidOffset or ErrUnsupportedOffset
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s line %d: %v (length %d)", e.Format, e.Line, e.Err, e.Length)
}

func (e *LineError) Unwrap() error { return e.Err }

// BlockError reports a JED page block that did not close with '*', or that
// held a page line with invalid characters. Its
// recovery policy is block-level: pages already returned for the block stand,
// the terminator line is consumed and scanning resumes for the next L record.
type BlockError struct {
	// Line is the 1-based line number of the terminator, or of the last line
	// read when input ended inside the block
	Line int

	// Pages is the number of pages returned for the block
	Pages int

	// Terminator is the offending line; empty when input ended inside the block
	Terminator string

	// EOF is true when input ended inside the block
	EOF bool

	// Err is ErrInvalidCharacter when Terminator is a 128-character line
	// that is not all '0'/'1', nil otherwise
	Err error
}

func (e *BlockError) Error() string {
	if e.EOF {
		return fmt.Sprintf("jed line %d: %v: unexpected end of input after %d pages", e.Line, ErrBlockTerminator, e.Pages)
	}
	if e.Err != nil {
		return fmt.Sprintf("jed line %d: %v: %v after %d pages", e.Line, ErrBlockTerminator, e.Err, e.Pages)
	}
	return fmt.Sprintf("jed line %d: %v: got %q after %d pages", e.Line, ErrBlockTerminator, truncate(e.Terminator, 16), e.Pages)
}

func (e *BlockError) Is(target error) bool { return target == ErrBlockTerminator }

func (e *BlockError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is a recoverable LineError or BlockError.
// Any other error from a decoder is fatal.
func IsDecodeError(err error) bool {
	var le *LineError
	var be *BlockError
	return errors.As(err, &le) || errors.As(err, &be)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
