// Package bitstream decodes MachXO2/MachXO3 configuration files into 16-byte pages.
//
// # HEX Format
//
// One page per line, exactly 32 hexadecimal digits, no separators:
//
//	00112233445566778899AABBCCDDEEFF
//	FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF
//
// # JED Format
//
// A JEDEC fuse file. The configuration pages follow an L0 record, one page
// per 128-character binary line, and the block closes with a '*' line:
//
//	QF343936*
//	F0*
//	L000000
//	11111111111111111111111111111111...  (128 characters)
//	...
//	*
//
// # Usage
//
// Both decoders are lazy and forward only; nothing is buffered beyond the
// current line.
//
//	dec := bitstream.NewJEDDecoder(f)
//	for {
//	    rec, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// # Error Handling
//
// The two formats recover from malformed input differently:
//   - LineError: one line is skipped (HEX length or character errors, JED
//     L record errors). Decoding continues at the next line.
//   - BlockError: a JED block that does not close with '*', or one holding
//     a page line with characters other than '0' and '1'. The block is
//     abandoned and scanning resumes for the next L record.
//
// Both are reported by IsDecodeError. Read errors are returned unchanged
// and end decoding.
package bitstream
