// Package xflash implements the DA v5 framed wire protocol used once DA1 is
// running: the bring-up state machine, the DA2 boot-to sequence, and the
// post-boot command surface (flash read/write, register access).
package xflash

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"
)

// FrameMagic is the XFlash frame-start sentinel.
const FrameMagic uint32 = 0xFEEEEEFE

const frameHeaderSize = 12

// DataType values seen in the frame header's data_type field.
const (
	DataTypeProtocolFlow uint32 = 1
)

// Frame is the 12-byte header {magic, data_type, length}, little-endian,
// followed by exactly length bytes of payload.
type Frame struct {
	DataType uint32
	Length   uint32
	Payload  []byte
}

// EncodeFrameHeader serialises a frame header (not its payload).
func EncodeFrameHeader(dataType, length uint32) []byte {
	buf := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], FrameMagic)
	binary.LittleEndian.PutUint32(buf[4:8], dataType)
	binary.LittleEndian.PutUint32(buf[8:12], length)
	return buf
}

// DecodeFrameHeader parses a 12-byte header, failing if the magic doesn't
// match.
func DecodeFrameHeader(buf []byte) (dataType, length uint32, err error) {
	if len(buf) != frameHeaderSize {
		return 0, 0, mtkerr.New(mtkerr.Framing, "frame header must be 12 bytes")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != FrameMagic {
		return 0, 0, mtkerr.New(mtkerr.Framing, "frame magic mismatch")
	}
	dataType = binary.LittleEndian.Uint32(buf[4:8])
	length = binary.LittleEndian.Uint32(buf[8:12])
	return dataType, length, nil
}

// writeFrame writes a complete frame — header then payload — as a single
// atomic unit with respect to other protocol operations: nothing may
// interleave between the header and its payload.
func writeFrame(ctx context.Context, p port.Port, dataType uint32, payload []byte) error {
	hdr := EncodeFrameHeader(dataType, uint32(len(payload)))
	if err := p.Write(ctx, hdr); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "write frame header", err)
	}
	if len(payload) > 0 {
		if err := p.Write(ctx, payload); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "write frame payload", err)
		}
	}
	return nil
}

// readFrame reads a complete frame atomically.
func readFrame(ctx context.Context, p port.Port) (Frame, error) {
	hdr := make([]byte, frameHeaderSize)
	if err := p.ReadExact(ctx, hdr); err != nil {
		return Frame{}, mtkerr.Wrap(mtkerr.Io, "read frame header", err)
	}
	dataType, length, err := DecodeFrameHeader(hdr)
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if err := p.ReadExact(ctx, payload); err != nil {
			return Frame{}, mtkerr.Wrap(mtkerr.Io, "read frame payload", err)
		}
	}
	return Frame{DataType: dataType, Length: length, Payload: payload}, nil
}
