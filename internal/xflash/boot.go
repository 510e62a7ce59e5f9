package xflash

import (
	"context"
	"encoding/binary"
	"time"

	"mtkflash/internal/mtkerr"
)

const (
	da2ChunkSize  = 1024
	da2AckTimeout = 500 * time.Millisecond
)

// BootTo runs the DA2 boot sequence: issue Cmd::BootTo, send the 16-byte
// parameter frame, stream the image in <=1024-byte chunks under a single
// frame header, then wait for the two post-write status words.
func (d *Driver) BootTo(ctx context.Context, addr uint32, image []byte) error {
	status, err := d.SendCmd(ctx, CmdBootTo)
	if err != nil {
		return err
	}
	if status != 0 {
		return mtkerr.ProtocolStatus("xflash: boot_to rejected", status)
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], addr)
	binary.LittleEndian.PutUint32(params[8:12], uint32(len(image)))
	if err := d.SendData(ctx, params); err != nil {
		return err
	}

	hdr := EncodeFrameHeader(DataTypeProtocolFlow, uint32(len(image)))
	if err := d.Port.Write(ctx, hdr); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "write boot_to image header", err)
	}
	for off := 0; off < len(image); off += da2ChunkSize {
		end := off + da2ChunkSize
		if end > len(image) {
			end = len(image)
		}
		if err := d.Port.Write(ctx, image[off:end]); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "write boot_to image chunk", err)
		}
	}

	ackCtx, cancel := context.WithTimeout(ctx, da2AckTimeout)
	defer cancel()

	first, err := d.GetStatus(ackCtx)
	if err != nil {
		return mtkerr.Wrap(mtkerr.TimedOut, "xflash: DA2 boot ack timed out", err)
	}
	if first != 0 {
		return mtkerr.ProtocolStatus("xflash: DA2 boot first status non-zero", first)
	}

	second, err := d.GetStatus(ackCtx)
	if err != nil {
		return mtkerr.Wrap(mtkerr.TimedOut, "xflash: DA2 boot second ack timed out", err)
	}
	if second != uint32(CmdSyncSignal) && second != 0 {
		return mtkerr.ProtocolStatus("xflash: DA2 boot second status unexpected", second)
	}

	return nil
}
