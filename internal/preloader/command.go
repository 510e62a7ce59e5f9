// Package preloader implements the BROM/Preloader command protocol: the
// handshake and the fixed, single-byte-opcode-echoed command set used to
// identify the chip and bring up a Download Agent.
package preloader

// Command is a preloader opcode, echoed verbatim by the device before any
// command-specific fields.
type Command byte

const (
	GetHwSwVer      Command = 0xFC
	GetHwCode       Command = 0xFD
	GetPlVer        Command = 0xFE
	GetBrVer        Command = 0xFF
	LegacyWrite     Command = 0xA1
	LegacyRead      Command = 0xA2
	I2cInit         Command = 0xB0
	I2cDeinit       Command = 0xB1
	I2cWrite8       Command = 0xB2
	I2cRead8        Command = 0xB3
	I2cSetSpeed     Command = 0xB4
	PwrInit         Command = 0xC4
	PwrDeinit       Command = 0xC5
	PwrRead16       Command = 0xC6
	PwrWrite16      Command = 0xC7
	Read16          Command = 0xD0
	Read32          Command = 0xD1
	Write16         Command = 0xD2
	Write16NoEcho   Command = 0xD3
	Write32         Command = 0xD4
	JumpDa          Command = 0xD5
	JumpBl          Command = 0xD6
	SendDa          Command = 0xD7
	GetTargetConfig Command = 0xD8
	Uart1LogEn      Command = 0xDB
	SendCert        Command = 0xE0
	GetMeId         Command = 0xE1
	SendAuth        Command = 0xE2
	SlaChallenge    Command = 0xE3
	GetSocId        Command = 0xE7
	Zeroization     Command = 0xF0
	GetPlCap        Command = 0xF1
)
