package xflash

// Cmd identifies a post-boot XFlash command. Only SyncSignal's wire value is
// pinned by the observed protocol (it doubles as the DA2 boot acknowledgement
// word); the rest are internally consistent command codes for a surface the
// driver itself defines end to end.
type Cmd uint32

const (
	CmdBootTo                 Cmd = 0x00010000
	CmdSyncSignal              Cmd = 0x434E5953 // "SYNC" read little-endian
	CmdSetupEnvironment       Cmd = 0x00010002
	CmdSetupHwInitParams      Cmd = 0x00010003
	CmdDeviceCtrl             Cmd = 0x00010004
	CmdReadData               Cmd = 0x00010005
	CmdWriteData              Cmd = 0x00010006
	CmdDeviceCtrlReadRegister Cmd = 0x00010007
	CmdSetRegisterValue       Cmd = 0x00010008
	CmdExtReadRegister        Cmd = 0x00010009
	CmdExtWriteRegister       Cmd = 0x0001000A
	CmdExtAck                 Cmd = 0x0001000B
)

// bringupSyncByte is what the device sends to acknowledge DA1 has reached
// its command loop.
const bringupSyncByte byte = 0xC0

// extAckMagic is the little-endian magic an ExtAck response must begin with.
const extAckMagic uint32 = 0xA1A2A3A4
