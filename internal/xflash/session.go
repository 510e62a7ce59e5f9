package xflash

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
)

const sendDataSubChunk = 64

// Send writes {magic, dataType, 4} followed by value encoded little-endian.
func (d *Driver) Send(ctx context.Context, value uint32, dataType uint32) error {
	return d.rawSend(ctx, value, dataType)
}

// SendCmd sends a command word as a protocol-flow frame and returns the
// status the device replies with.
func (d *Driver) SendCmd(ctx context.Context, cmd Cmd) (uint32, error) {
	if err := d.rawSend(ctx, uint32(cmd), DataTypeProtocolFlow); err != nil {
		return 0, err
	}
	return d.GetStatus(ctx)
}

// SendData writes {magic, 1, len(data)} then data itself in 64-byte
// sub-chunks, and fails unless the device replies with status 0.
func (d *Driver) SendData(ctx context.Context, data []byte) error {
	hdr := EncodeFrameHeader(DataTypeProtocolFlow, uint32(len(data)))
	if err := d.Port.Write(ctx, hdr); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "write send_data header", err)
	}
	for off := 0; off < len(data); off += sendDataSubChunk {
		end := off + sendDataSubChunk
		if end > len(data) {
			end = len(data)
		}
		if err := d.Port.Write(ctx, data[off:end]); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "write send_data chunk", err)
		}
	}
	status, err := d.GetStatus(ctx)
	if err != nil {
		return err
	}
	if status != 0 {
		return mtkerr.ProtocolStatus("xflash: send_data rejected", status)
	}
	return nil
}

// GetStatus reads a 12-byte header plus payload and interprets the payload
// as u8/u16/u32 according to its length.
func (d *Driver) GetStatus(ctx context.Context) (uint32, error) {
	frame, err := readFrame(ctx, d.Port)
	if err != nil {
		return 0, err
	}
	switch len(frame.Payload) {
	case 1:
		return uint32(frame.Payload[0]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(frame.Payload)), nil
	case 4:
		return binary.LittleEndian.Uint32(frame.Payload), nil
	case 0:
		return 0, nil
	default:
		return 0, mtkerr.New(mtkerr.Protocol, "xflash: unexpected status payload length")
	}
}

// ReadData reads a 12-byte header and returns its payload verbatim.
func (d *Driver) ReadData(ctx context.Context) ([]byte, error) {
	frame, err := readFrame(ctx, d.Port)
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// DevCtrl runs the devctrl(cmd, param) sub-protocol: select DeviceCtrl mode,
// issue cmd, then either push param (no reply payload expected) or pull the
// reply payload back.
func (d *Driver) DevCtrl(ctx context.Context, cmd Cmd, param []byte) ([]byte, error) {
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

	if param != nil {
		if err := d.SendData(ctx, param); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return d.ReadData(ctx)
}
