package protocol

// DefaultAddress is the factory I²C address of the MachXO2/3 configuration port.
const DefaultAddress = 0x40

// PageSize is the size of one configuration or UFM page in bytes.
const PageSize = 16

// Command opcodes of the sysCONFIG interface.
const (
	// OpReadDeviceID reads the 32-bit device ID (IDCODE_PUB)
	OpReadDeviceID = 0xE0

	// OpReadUserCode reads the 32-bit USERCODE
	OpReadUserCode = 0xC0

	// OpReadStatus reads the 32-bit status register (LSC_READ_STATUS)
	OpReadStatus = 0x3C

	// OpReadFeatureRow reads the 8-byte feature row
	OpReadFeatureRow = 0xE7

	// OpReadFeatureBits reads the 2-byte FEABITS
	OpReadFeatureBits = 0xFB

	// OpReadFlash reads pages from the configuration flash
	OpReadFlash = 0x73

	// OpReadUFM reads pages from the user flash memory
	OpReadUFM = 0xCA

	// OpReadOTPFuses reads the one-time-programmable fuse byte
	OpReadOTPFuses = 0xFA

	// OpEraseUFM erases the UFM sector only
	OpEraseUFM = 0xCB

	// OpErase erases the regions selected by an erase mask (ISC_ERASE)
	OpErase = 0x0E

	// OpEnableConfigTransparent enters configuration mode without halting user logic
	OpEnableConfigTransparent = 0x74

	// OpEnableConfigOffline enters configuration mode with user logic suspended
	OpEnableConfigOffline = 0xC6

	// OpCheckBusy reads the busy flag byte
	OpCheckBusy = 0xF0

	// OpResetConfigAddress resets the page address to the start of the configuration sector
	OpResetConfigAddress = 0x46

	// OpResetUFMAddress resets the page address to the start of the UFM sector
	OpResetUFMAddress = 0x47

	// OpSetAddress sets the page address in the configuration or UFM sector
	OpSetAddress = 0xB4

	// OpProgramPage programs one page at the current address
	OpProgramPage = 0x70

	// OpProgramDone sets the DONE bit (ISC_PROGRAM_DONE)
	OpProgramDone = 0x5E

	// OpRefresh reloads the configuration from flash (LSC_REFRESH)
	OpRefresh = 0x79

	// OpNoop wakes the port up, no addressing semantics
	OpNoop = 0xFF
)

// Response sizes in bytes for the read commands.
const (
	DeviceIDResponseSize    = 4
	UserCodeResponseSize    = 4
	StatusResponseSize      = 4
	FeatureRowResponseSize  = 8
	FeatureBitsResponseSize = 2
	PageResponseSize        = PageSize
	OTPFusesResponseSize    = 1
	BusyResponseSize        = 1
)

// Frame sizes in bytes.
const (
	// CommandSize is the size of the standard opcode frame
	CommandSize = 4

	// ShortCommandSize is the size of the mode-switch and refresh frames
	ShortCommandSize = 3

	// AddressCommandSize is the size of the set-address frame
	AddressCommandSize = 8

	// ProgramPageCommandSize is the page-write frame: opcode frame plus one page
	ProgramPageCommandSize = CommandSize + PageSize
)

// Flags encoded in the command frames.
const (
	// BusyFlag is the busy indicator in the check-busy response byte
	BusyFlag = 0x80

	// ConfigModeParam is the first parameter byte of the enable-config commands
	ConfigModeParam = 0x08

	// SinglePage is the page-count parameter of read and program frames
	SinglePage = 0x01

	// UFMSectorFlag selects the UFM sector in the set-address frame
	UFMSectorFlag = 0x40
)
