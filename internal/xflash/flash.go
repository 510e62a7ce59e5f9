package xflash

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
)

const flashChunkSize = 0x2000

// ProgressFunc is invoked with (bytes_done, bytes_total) after each chunk.
type ProgressFunc func(done, total uint64)

// flashParams builds the little-endian parameter structure shared by
// ReadPartition and WritePartition: storage_type, part_type, addr, size,
// followed by 8 zero u32 words (nand_ext), 56 bytes in all.
func flashParams(storageType, partType uint32, addr, size uint64) []byte {
	buf := make([]byte, 24+32)
	binary.LittleEndian.PutUint32(buf[0:4], storageType)
	binary.LittleEndian.PutUint32(buf[4:8], partType)
	binary.LittleEndian.PutUint64(buf[8:16], addr)
	binary.LittleEndian.PutUint64(buf[16:24], size)
	return buf
}

// ReadPartition reads size bytes starting at addr, acknowledging each chunk
// with a 4-byte zero frame per the MediaTek chunk-ack cadence.
func (d *Driver) ReadPartition(ctx context.Context, storageType, partType uint32, addr, size uint64, progress ProgressFunc) ([]byte, error) {
	status, err := d.SendCmd(ctx, CmdReadData)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, mtkerr.ProtocolStatus("xflash: read_data command rejected", status)
	}

	if err := d.SendData(ctx, flashParams(storageType, partType, addr, size)); err != nil {
		return nil, err
	}

	var out []byte
	for uint64(len(out)) < size {
		chunk, err := d.ReadData(ctx)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)

		ackPayload := make([]byte, 4)
		if err := writeFrame(ctx, d.Port, DataTypeProtocolFlow, ackPayload); err != nil {
			return nil, err
		}

		if progress != nil {
			progress(uint64(len(out)), size)
		}

		st, err := d.GetStatus(ctx)
		if err != nil {
			return nil, err
		}
		if st != 0 || uint64(len(out)) >= size {
			break
		}
	}

	return out, nil
}

// normalizeToSize zero-pads or truncates data to exactly size bytes.
func normalizeToSize(data []byte, size uint64) []byte {
	if uint64(len(data)) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

// additiveChecksum is the MediaTek-specific checksum law: the sum of all
// bytes, truncated to 16 bits. Not a CRC, not an XOR.
func additiveChecksum(data []byte) uint16 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum & 0xFFFF)
}

// WritePartition normalises data to exactly size bytes, then streams it in
// 0x2000-byte chunks, each preceded by the incoherence zero frame and a
// checksum frame.
func (d *Driver) WritePartition(ctx context.Context, storageType, partType uint32, addr, size uint64, data []byte, progress ProgressFunc) error {
	payload := normalizeToSize(data, size)

	status, err := d.SendCmd(ctx, CmdWriteData)
	if err != nil {
		return err
	}
	if status != 0 {
		return mtkerr.ProtocolStatus("xflash: write_data command rejected", status)
	}

	if err := d.SendData(ctx, flashParams(storageType, partType, addr, size)); err != nil {
		return err
	}

	for off := 0; off < len(payload); off += flashChunkSize {
		end := off + flashChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[off:end]
		checksum := additiveChecksum(chunk)

		if err := d.Send(ctx, 0, DataTypeProtocolFlow); err != nil {
			return err
		}
		if err := d.Send(ctx, uint32(checksum), DataTypeProtocolFlow); err != nil {
			return err
		}
		if err := d.SendData(ctx, chunk); err != nil {
			return err
		}

		if progress != nil {
			progress(uint64(end), uint64(len(payload)))
		}
	}

	final, err := d.GetStatus(ctx)
	if err != nil {
		return err
	}
	if final != 0 {
		return mtkerr.ProtocolStatus("xflash: write_data final status non-zero", final)
	}
	return nil
}
