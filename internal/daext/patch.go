package daext

import (
	"bytes"
	"encoding/binary"
)

var sentinels = map[Symbol]uint32{
	RegisterDevCtrl:    0x11111111,
	MmcGetCard:         0x22222222,
	MmcSetPartConfig:   0x33333333,
	MmcRpmbSendCommand: 0x44444444,
	GUfsHba:            0x55555555,
	UfshcdGetFreeTag:   0x66666666,
	UfshcdQueueCommand: 0x77777777,
}

// Resolve locates every symbol inside da2 and computes the address to write
// into the extension blob's sentinel word: offset+da2Addr (with the Thumb
// bit set for Thumb routines), or a literal pointer already present in the
// image for g_ufs_hba. Unresolved symbols map to 0.
func Resolve(da2 []byte, da2Addr uint32) map[Symbol]uint32 {
	resolved := make(map[Symbol]uint32, len(signatures))

	for _, sig := range signatures {
		if sig.requires != "" && resolved[sig.requires] == 0 {
			resolved[sig.symbol] = 0
			continue
		}

		off := findSignature(da2, sig)
		if off < 0 {
			resolved[sig.symbol] = 0
			continue
		}

		if sig.pointerOffset != 0 {
			resolved[sig.symbol] = readPointerWithFallbacks(da2, off, sig.pointerOffset)
			continue
		}

		addr := uint32(off) + da2Addr
		if sig.thumb {
			addr |= 1
		}
		resolved[sig.symbol] = addr
	}

	return resolved
}

func readPointerWithFallbacks(da2 []byte, matchOffset, primaryReadOffset int) uint32 {
	offsets := append([]int{primaryReadOffset}, gUfsHbaFallbackOffsets...)
	for _, readOff := range offsets {
		pos := matchOffset + readOff
		if pos < 0 || pos+4 > len(da2) {
			continue
		}
		val := binary.LittleEndian.Uint32(da2[pos : pos+4])
		if val != 0 {
			return val
		}
	}
	return 0
}

// PatchBlob writes each resolved address over its sentinel word in extBlob,
// returning a new buffer. A sentinel that doesn't appear in the blob is left
// untouched — the blob simply doesn't reference that symbol.
func PatchBlob(extBlob []byte, resolved map[Symbol]uint32) []byte {
	out := append([]byte(nil), extBlob...)

	for symbol, sentinel := range sentinels {
		needle := make([]byte, 4)
		binary.LittleEndian.PutUint32(needle, sentinel)
		idx := bytes.Index(out, needle)
		if idx < 0 {
			continue
		}
		binary.LittleEndian.PutUint32(out[idx:idx+4], resolved[symbol])
	}

	return out
}
