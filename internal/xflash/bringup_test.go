package xflash

import (
	"context"
	"encoding/binary"
	"testing"

	"mtkflash/internal/port"
	"mtkflash/internal/preloader"

	"github.com/stretchr/testify/assert"
)

func beU16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func beU32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }
func leU16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func leU32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }

// TestBringUpHappyPath drives the full DA1 state machine: SendDa + JumpDa
// over the preloader connection, the sync byte, and the setup-ack frame,
// asserting the driver ends in Ready.
func TestBringUpHappyPath(t *testing.T) {
	da1 := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	addr := uint32(0x200000)

	var script []byte
	// SendDa: echo opcode, addr, len, sigLen (all big-endian), then status,
	// raw data is written (not read back), then checksum + final status.
	script = append(script, byte(preloader.SendDa))
	script = append(script, beU32(addr)...)
	script = append(script, beU32(uint32(len(da1)))...)
	script = append(script, beU32(0)...)
	script = append(script, beU16(0)...)  // status
	script = append(script, beU16(0xABCD)...) // checksum (ignored)
	script = append(script, beU16(0)...) // final status

	// JumpDa: echo opcode, addr (little-endian), then status.
	script = append(script, byte(preloader.JumpDa))
	script = append(script, leU32(addr)...)
	script = append(script, leU16(0)...)

	// Bring-up: sync byte, then the setup-ack frame.
	script = append(script, bringupSyncByte)
	ackFrame := EncodeFrameHeader(DataTypeProtocolFlow, 4)
	ackFrame = append(ackFrame, leU32(uint32(CmdSyncSignal))...)
	script = append(script, ackFrame...)

	fake := port.NewFake(script)
	conn := preloader.New(fake)
	driver := NewDriver(fake)

	err := driver.BringUp(context.Background(), conn, da1, addr, 0)
	assert.NoError(t, err)
	assert.Equal(t, Ready, driver.State())
}

func TestBringUpFailsOnWrongSyncByte(t *testing.T) {
	da1 := []byte{0x01}
	addr := uint32(0x200000)

	var script []byte
	script = append(script, byte(preloader.SendDa))
	script = append(script, beU32(addr)...)
	script = append(script, beU32(uint32(len(da1)))...)
	script = append(script, beU32(0)...)
	script = append(script, beU16(0)...)
	script = append(script, beU16(0)...)
	script = append(script, beU16(0)...)
	script = append(script, byte(preloader.JumpDa))
	script = append(script, leU32(addr)...)
	script = append(script, leU16(0)...)
	script = append(script, 0x00) // wrong sync byte

	fake := port.NewFake(script)
	conn := preloader.New(fake)
	driver := NewDriver(fake)

	err := driver.BringUp(context.Background(), conn, da1, addr, 0)
	assert.Error(t, err)
	assert.Equal(t, Failed, driver.State())
}
