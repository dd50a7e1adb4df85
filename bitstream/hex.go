package bitstream

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"
	"unicode"

	"github.com/moffa90/go-machxo/protocol"
)

// Constants for HEX and JED line parsing.
const (
	// HEXLineLength is the length of a HEX data line in characters
	HEXLineLength = 2 * protocol.PageSize

	// JEDLineLength is the length of a JED page line in characters
	JEDLineLength = 8 * protocol.PageSize

	// maxLineLength bounds the part of a line kept in memory. Longer lines
	// are still read to their end and reported with their full length.
	maxLineLength = 64 * 1024
)

// lineReader yields lines with trailing whitespace removed.
type lineReader struct {
	r *bufio.Reader

	// line is the 1-based number of the last line read
	line int

	// length is the full length of the last line, which exceeds the
	// returned text when the line was longer than maxLineLength
	length int

	readErr error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns the next line. ok is false at end of input or on a read
// failure, which err then reports.
func (lr *lineReader) next() (line string, ok bool) {
	if lr.readErr != nil {
		return "", false
	}

	var buf []byte
	var last []byte
	n := 0
	read := false
	for {
		frag, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			lr.readErr = err
			if !read {
				return "", false
			}
			break
		}
		read = true
		n += len(frag)
		if room := maxLineLength - len(buf); room > 0 {
			buf = append(buf, frag[:min(len(frag), room)]...)
		}
		last = frag
		if !isPrefix {
			break
		}
	}

	lr.line++
	line = strings.TrimRightFunc(string(buf), unicode.IsSpace)
	if n > len(buf) {
		lr.length = n - (len(last) - len(strings.TrimRightFunc(string(last), unicode.IsSpace)))
	} else {
		lr.length = len(line)
	}
	return line, true
}

func (lr *lineReader) err() error {
	if lr.readErr == io.EOF {
		return nil
	}
	return lr.readErr
}

// HEXDecoder reads pages from a HEX file: one page per non-empty line, each
// line exactly 32 hexadecimal digits, two digits per byte, first byte first.
//
// Malformed lines are returned as *LineError and skipped; call Next again to
// continue with the following line.
type HEXDecoder struct {
	lr    *lineReader
	pages int
	done  bool
}

// NewHEXDecoder returns a decoder reading from r.
//
// Example:
//
//	dec := bitstream.NewHEXDecoder(f)
//	for {
//	    page, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if bitstream.IsDecodeError(err) {
//	        log.Println(err)
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    program(page)
//	}
func NewHEXDecoder(r io.Reader) *HEXDecoder {
	return &HEXDecoder{lr: newLineReader(r)}
}

// Next returns the next page. It returns io.EOF at end of input, a
// *LineError for a malformed line, and any read error unchanged.
func (d *HEXDecoder) Next() (protocol.Page, error) {
	var page protocol.Page
	if d.done {
		return page, io.EOF
	}

	for {
		line, ok := d.lr.next()
		if !ok {
			d.done = true
			if err := d.lr.err(); err != nil {
				return page, err
			}
			return page, io.EOF
		}

		// Skip empty lines
		if line == "" {
			continue
		}

		if d.lr.length != HEXLineLength {
			return page, &LineError{Format: FormatHEX, Line: d.lr.line, Length: d.lr.length, Err: ErrLineLength}
		}

		if _, err := hex.Decode(page[:], []byte(line)); err != nil {
			return protocol.Page{}, &LineError{Format: FormatHEX, Line: d.lr.line, Length: d.lr.length, Err: ErrInvalidCharacter}
		}

		d.pages++
		return page, nil
	}
}

// Line returns the number of the last line read.
func (d *HEXDecoder) Line() int { return d.lr.line }

// Pages returns the number of pages decoded so far.
func (d *HEXDecoder) Pages() int { return d.pages }
