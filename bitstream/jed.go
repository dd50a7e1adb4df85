package bitstream

import (
	"io"
	"strconv"
	"strings"

	"github.com/moffa90/go-machxo/protocol"
)

// RecordKind identifies what a JED Record carries.
type RecordKind int

const (
	// RecordBlockStart is an L0 record opening a configuration page block.
	// The configuration address must be reset before the block's pages.
	RecordBlockStart RecordKind = iota + 1

	// RecordPage is one 16-byte page of the current block
	RecordPage

	// RecordBlockEnd is the '*' line closing a well-formed block
	RecordBlockEnd
)

func (k RecordKind) String() string {
	switch k {
	case RecordBlockStart:
		return "block-start"
	case RecordPage:
		return "page"
	case RecordBlockEnd:
		return "block-end"
	default:
		return "unknown"
	}
}

// Record is one element of a decoded JED file.
type Record struct {
	// Kind identifies the record
	Kind RecordKind

	// Page is the page data (RecordPage only)
	Page protocol.Page

	// Pages is the number of pages in the block (RecordBlockEnd only)
	Pages int

	// Line is the 1-based line number the record was read from
	Line int
}

// JEDDecoder reads configuration pages from a JEDEC fuse file.
//
// Only lines starting with 'L' are examined outside a block. "L0" (any
// number of zeros) opens a block; each following line of exactly 128 '0'/'1'
// characters is one page, eight characters per byte, first byte first. The
// first line of any other length ends the block: a line starting with '*'
// closes it normally, anything else is reported as a *BlockError. A page line
// with a character other than '0' or '1' also abandons its block, as a
// *BlockError wrapping ErrInvalidCharacter.
//
// L records with a non-zero offset are reported as *LineError wrapping
// ErrUnsupportedOffset; the lines that follow them are not decoded.
type JEDDecoder struct {
	lr         *lineReader
	inBlock    bool
	blockPages int
	pages      int
	blocks     int
	done       bool
}

// NewJEDDecoder returns a decoder reading from r.
func NewJEDDecoder(r io.Reader) *JEDDecoder {
	return &JEDDecoder{lr: newLineReader(r)}
}

// Next returns the next record. It returns io.EOF at end of input, a
// *LineError or *BlockError for malformed input (call Next again to
// continue), and any read error unchanged.
func (d *JEDDecoder) Next() (Record, error) {
	if d.done {
		return Record{}, io.EOF
	}
	if d.inBlock {
		return d.nextInBlock()
	}

	for {
		line, ok := d.lr.next()
		if !ok {
			return Record{}, d.finish()
		}

		if line == "" || line[0] != 'L' {
			continue
		}

		offset, err := strconv.ParseUint(strings.TrimSpace(line[1:]), 10, 32)
		if err != nil {
			return Record{}, &LineError{Format: FormatJED, Line: d.lr.line, Length: d.lr.length, Err: ErrInvalidOffset}
		}
		if offset != 0 {
			return Record{}, &LineError{Format: FormatJED, Line: d.lr.line, Length: d.lr.length, Err: ErrUnsupportedOffset}
		}

		d.inBlock = true
		d.blockPages = 0
		return Record{Kind: RecordBlockStart, Line: d.lr.line}, nil
	}
}

func (d *JEDDecoder) nextInBlock() (Record, error) {
	line, ok := d.lr.next()
	if !ok {
		d.inBlock = false
		if err := d.finish(); err != io.EOF {
			return Record{}, err
		}
		return Record{}, &BlockError{Line: d.lr.line, Pages: d.blockPages, EOF: true}
	}

	if d.lr.length != JEDLineLength {
		d.inBlock = false
		if strings.HasPrefix(line, "*") {
			d.blocks++
			return Record{Kind: RecordBlockEnd, Pages: d.blockPages, Line: d.lr.line}, nil
		}
		return Record{}, &BlockError{Line: d.lr.line, Pages: d.blockPages, Terminator: line}
	}

	page, ok := decodeBits(line)
	if !ok {
		// A page that cannot be decoded would shift every later page of the
		// block, so the rest of the block is abandoned.
		d.inBlock = false
		return Record{}, &BlockError{Line: d.lr.line, Pages: d.blockPages, Terminator: line, Err: ErrInvalidCharacter}
	}

	d.blockPages++
	d.pages++
	return Record{Kind: RecordPage, Page: page, Line: d.lr.line}, nil
}

// finish marks the decoder exhausted and returns the read error, or io.EOF.
func (d *JEDDecoder) finish() error {
	d.done = true
	if err := d.lr.err(); err != nil {
		return err
	}
	return io.EOF
}

// Line returns the number of the last line read.
func (d *JEDDecoder) Line() int { return d.lr.line }

// Pages returns the number of pages decoded so far across all blocks.
func (d *JEDDecoder) Pages() int { return d.pages }

// Blocks returns the number of blocks closed with '*' so far.
func (d *JEDDecoder) Blocks() int { return d.blocks }

// decodeBits converts 128 '0'/'1' characters into a page, most significant
// bit first.
func decodeBits(line string) (protocol.Page, bool) {
	var page protocol.Page
	for i := 0; i < len(line); i++ {
		var bit byte
		switch line[i] {
		case '0':
		case '1':
			bit = 1
		default:
			return protocol.Page{}, false
		}
		page[i/8] = page[i/8]<<1 | bit
	}
	return page, true
}
