// Package da parses the Download Agent container format: a multi-SoC binary
// describing, per chip, the loadable stages (DA1 brings the chip up, DA2
// does the flash work) and their SRAM load addresses.
package da

import (
	"bytes"
	"encoding/binary"
	"strings"

	"mtkflash/internal/mtkerr"
)

// Type distinguishes the three DA container generations.
type Type int

const (
	Legacy Type = iota
	V5
	V6
)

const (
	headerSize        = 0x6C
	legacyEntrySize   = 0xD8
	modernEntrySize   = 0xDC
	regionRecordSize  = 20
	regionTableOffset = 0x14
)

// Region describes one loadable region inside a DA stage.
type Region struct {
	Offset uint32 // file offset
	Length uint32 // includes signature
	Addr   uint32 // load address in device SRAM
	SigLen uint32
	Data   []byte
}

// Entry is one supported SoC inside a DA file. By convention Regions[1] is
// DA1 and Regions[2] is DA2.
type Entry struct {
	Magic      uint16
	HwCode     uint16
	HwSubCode  uint16
	HwVersion  uint16
	Regions    []Region
}

// DA1 returns the bring-up stage, or false if this entry has fewer than 3
// regions.
func (e Entry) DA1() (Region, bool) {
	if len(e.Regions) >= 3 {
		return e.Regions[1], true
	}
	return Region{}, false
}

// DA2 returns the flash-protocol stage, or false if this entry has fewer
// than 3 regions.
func (e Entry) DA2() (Region, bool) {
	if len(e.Regions) >= 3 {
		return e.Regions[2], true
	}
	return Region{}, false
}

// File is a parsed DA container: its kind, the raw bytes it was parsed
// from, and the per-SoC entries.
type File struct {
	Kind    Type
	Raw     []byte
	ID      string
	Version uint32
	Entries []Entry
}

// Parse decodes a DA container. Type is chosen by inspecting the first
// 0x6C bytes: a 0xDA 0xDA prefix means Legacy, the ASCII string
// "MTK_DA_v6" anywhere in the header means V6, otherwise V5.
func Parse(raw []byte) (*File, error) {
	if len(raw) < headerSize {
		return nil, mtkerr.New(mtkerr.Parse, "DA file shorter than header")
	}
	hdr := raw[:headerSize]

	kind := V5
	if bytes.HasPrefix(hdr, []byte{0xDA, 0xDA}) {
		kind = Legacy
	} else if bytes.Contains(hdr, []byte("MTK_DA_v6")) {
		kind = V6
	}

	id := strings.TrimRight(string(hdr[0x20:0x60]), "\x00")
	version := binary.LittleEndian.Uint32(hdr[0x60:0x64])
	numSocs := binary.LittleEndian.Uint32(hdr[0x68:0x6C])

	entrySize := modernEntrySize
	if kind == Legacy {
		entrySize = legacyEntrySize
	}

	entries := make([]Entry, 0, numSocs)
	for i := uint32(0); i < numSocs; i++ {
		start := headerSize + int(i)*entrySize
		end := start + entrySize
		if end > len(raw) {
			return nil, mtkerr.New(mtkerr.Parse, "DA file truncated in SoC entry table")
		}
		entryData := raw[start:end]

		entry := Entry{
			Magic:     binary.LittleEndian.Uint16(entryData[0x00:0x02]),
			HwCode:    binary.LittleEndian.Uint16(entryData[0x02:0x04]),
			HwSubCode: binary.LittleEndian.Uint16(entryData[0x04:0x06]),
			HwVersion: binary.LittleEndian.Uint16(entryData[0x06:0x08]),
		}
		regionCount := binary.LittleEndian.Uint16(entryData[0x12:0x14])

		regionOffset := regionTableOffset
		for r := uint16(0); r < regionCount; r++ {
			recEnd := regionOffset + regionRecordSize
			if recEnd > len(entryData) {
				return nil, mtkerr.New(mtkerr.Parse, "DA file truncated in region table")
			}
			rec := entryData[regionOffset:recEnd]
			offset := binary.LittleEndian.Uint32(rec[0x00:0x04])
			length := binary.LittleEndian.Uint32(rec[0x04:0x08])
			addr := binary.LittleEndian.Uint32(rec[0x08:0x0C])
			sigLen := binary.LittleEndian.Uint32(rec[0x10:0x14])

			if int(offset)+int(length) > len(raw) {
				return nil, mtkerr.New(mtkerr.Parse, "DA region extends past end of file")
			}
			data := make([]byte, length)
			copy(data, raw[offset:offset+length])

			entry.Regions = append(entry.Regions, Region{
				Offset: offset,
				Length: length,
				Addr:   addr,
				SigLen: sigLen,
				Data:   data,
			})
			regionOffset = recEnd
		}

		entries = append(entries, entry)
	}

	return &File{
		Kind:    kind,
		Raw:     raw,
		ID:      id,
		Version: version,
		Entries: entries,
	}, nil
}

// ByHwCode looks up the unique entry matching both hw_code and
// hw_sub_code, or returns ok=false.
func (f *File) ByHwCode(hwCode, hwSubCode uint16) (Entry, bool) {
	for _, e := range f.Entries {
		if e.HwCode == hwCode && e.HwSubCode == hwSubCode {
			return e, true
		}
	}
	return Entry{}, false
}
