// Package daext patches DA2 with the optional extension blob: a set of ARM
// routine addresses located by byte-signature scanning, written into the
// blob's sentinel words, then booted and acknowledged.
package daext

import "bytes"

// Symbol names the ARM routines the patcher resolves inside DA2.
type Symbol string

const (
	RegisterDevCtrl    Symbol = "register_devctrl"
	MmcGetCard         Symbol = "mmc_get_card"
	MmcSetPartConfig   Symbol = "mmc_set_part_config"
	MmcRpmbSendCommand Symbol = "mmc_rpmb_send_command"
	GUfsHba            Symbol = "g_ufs_hba"
	UfshcdGetFreeTag   Symbol = "ufshcd_get_free_tag"
	UfshcdQueueCommand Symbol = "ufshcd_queuecommand"
)

// signature describes how to locate one symbol inside DA2.
type signature struct {
	symbol Symbol

	primary  []byte
	fallback []byte

	// verifyOffset/verifyBytes require a second byte match at a fixed
	// offset from the primary match before it is accepted (mmc_set_part_config).
	verifyOffset int
	verifyBytes  []byte

	// pointerOffset, when non-zero, means the symbol's value is a literal
	// u32 read from this offset past the match, rather than the match
	// offset itself rebased into device memory (g_ufs_hba).
	pointerOffset int

	// requires names a symbol that must already have resolved before this
	// one is attempted (the two UFS routines require g_ufs_hba).
	requires Symbol

	thumb bool
}

var signatures = []signature{
	{
		symbol:  RegisterDevCtrl,
		primary: []byte{0x38, 0xB5, 0x05, 0x46, 0x0C, 0x20},
		thumb:   true,
	},
	{
		symbol:   MmcGetCard,
		primary:  []byte{0x4B, 0x4F, 0xF4, 0x3C, 0x72},
		fallback: []byte{0xA3, 0xEB, 0x00, 0x13, 0x18, 0x1A, 0x02, 0xEB, 0x00, 0x10},
		thumb:    true,
	},
	{
		symbol:       MmcSetPartConfig,
		primary:      []byte{0xC3, 0x69, 0x0A, 0x46, 0x10, 0xB5},
		verifyOffset: 20,
		verifyBytes:  []byte{0xB3, 0x21},
		fallback:     []byte{0xC3, 0x69, 0x13, 0xF0, 0x01, 0x03},
		thumb:        true,
	},
	{
		symbol:   MmcRpmbSendCommand,
		primary:  []byte{0xF8, 0xB5, 0x06, 0x46, 0x9D, 0xF8, 0x18, 0x50},
		fallback: []byte{0x2D, 0xE9, 0xF0, 0x41, 0x4F, 0xF6, 0xFD, 0x74},
		thumb:    true,
	},
	{
		symbol:        GUfsHba,
		primary:       []byte{0x20, 0x46, 0x0B, 0xB0, 0xBD, 0xE8, 0xF0, 0x83, 0x00, 0xBF},
		pointerOffset: 10,
		// Two further fallback read-offsets for the same primary pattern
		// live in gUfsHbaFallbackOffsets and are tried by
		// readPointerWithFallbacks.
	},
	{
		symbol:   UfshcdGetFreeTag,
		primary:  []byte{0xB5, 0x2E, 0xB1, 0x90, 0xF8},
		requires: GUfsHba,
		thumb:    true,
	},
	{
		symbol:   UfshcdQueueCommand,
		primary:  []byte{0x2D, 0xE9, 0xF8, 0x43, 0x01, 0x27},
		requires: GUfsHba,
		thumb:    true,
	},
}

// gUfsHbaFallbackOffsets are the two further read-offsets tried against the
// same g_ufs_hba primary pattern when +10 doesn't look like a plausible
// pointer (i.e. is zero).
var gUfsHbaFallbackOffsets = []int{8, 18}

// findSignature returns the byte offset of sig's primary or fallback match
// inside da2, or -1 if neither is found.
func findSignature(da2 []byte, sig signature) int {
	if off := bytes.Index(da2, sig.primary); off >= 0 {
		if sig.verifyOffset == 0 || matchesAt(da2, off+sig.verifyOffset, sig.verifyBytes) {
			return off
		}
	}
	if len(sig.fallback) > 0 {
		if off := bytes.Index(da2, sig.fallback); off >= 0 {
			return off
		}
	}
	return -1
}

func matchesAt(data []byte, offset int, want []byte) bool {
	if offset < 0 || offset+len(want) > len(data) {
		return false
	}
	return bytes.Equal(data[offset:offset+len(want)], want)
}
