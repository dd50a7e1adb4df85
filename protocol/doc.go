// Package protocol implements the Lattice MachXO2/MachXO3 sysCONFIG command set.
//
// This package builds the fixed-layout command frames sent to the
// configuration port and decodes the responses. It performs no I/O.
//
// # Frame Overview
//
// Every interaction is one frame written to the device, optionally followed
// by a read in the same bus transaction (no stop condition in between):
//
//	Standard: [OPCODE][P0][P1][P2]
//	Short:    [OPCODE][P0][P1]                      (enable config, refresh)
//	Address:  [0xB4][00][00][00][SECTOR][00][PAGE_H][PAGE_L]
//	Program:  [0x70][00][00][01][DATA(16)]
//
// # Command Builders
//
// Use the Build* functions to create frames:
//
//	frame := protocol.BuildReadDeviceIDCmd()
//	frame := protocol.BuildEraseCmd(protocol.EraseConfigFlash | protocol.EraseUFM)
//	frame, err := protocol.BuildProgramPageCmd(page[:])
//
// # Response Parsers
//
// Read commands return a response of a fixed, opcode-specific size. Use the
// Parse* functions to decode it:
//
//	id, err := protocol.ParseDeviceIDResponse(buf)
//	busy, err := protocol.ParseBusyResponse(buf)
//	status, err := protocol.ParseStatusResponse(buf)
//
// # Erase Regions
//
// EraseMask flags select independently erasable regions and combine with |:
//
//	mask := protocol.EraseConfigFlash | protocol.EraseUFM // 0x0C0000
//
// # Reference
//
// Lattice TN1204, MachXO2 Programming and Configuration Usage Guide.
package protocol
