package xflash

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
)

// Read32 and Write32 implement the sej.IO capability by routing register
// access through devctrl. When DA extensions are active, the extension
// opcodes are used instead, each carrying its address (and value) as a
// second framed payload.
func (d *Driver) Read32(ctx context.Context, addr uint32) (uint32, error) {
	addrBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(addrBytes, addr)

	cmd := CmdDeviceCtrlReadRegister
	if d.usingExts {
		cmd = CmdExtReadRegister
	}

	resp, err := d.devCtrlWithAddr(ctx, cmd, addrBytes)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, mtkerr.New(mtkerr.Protocol, "xflash: read32 short response")
	}
	return binary.LittleEndian.Uint32(resp), nil
}

func (d *Driver) Write32(ctx context.Context, addr uint32, val uint32) error {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	binary.LittleEndian.PutUint32(payload[4:8], val)

	cmd := CmdSetRegisterValue
	if d.usingExts {
		cmd = CmdExtWriteRegister
	}

	_, err := d.devCtrlWithAddr(ctx, cmd, payload)
	return err
}

// devCtrlWithAddr runs devctrl's mode-select/command pair, then pushes the
// address (and value) payload and pulls back whatever the device replies
// with. Write32 discards the reply; Read32 decodes it.
func (d *Driver) devCtrlWithAddr(ctx context.Context, cmd Cmd, addrPayload []byte) ([]byte, error) {
	status, err := d.SendCmd(ctx, CmdDeviceCtrl)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, mtkerr.ProtocolStatus("xflash: devctrl mode select rejected", status)
	}

	status, err = d.SendCmd(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, mtkerr.ProtocolStatus("xflash: devctrl command rejected", status)
	}

	if err := d.SendData(ctx, addrPayload); err != nil {
		return nil, err
	}
	return d.ReadData(ctx)
}
