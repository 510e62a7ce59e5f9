// Package sej drives MediaTek's on-die Security Engine (SEJ), used to
// wrap/unwrap the seccfg hash. The hardware transforms (HW, HWv3, HWv4) are
// register-programmed over the device's memory-access path rather than run
// in-process; the software transform (SW) is a pure key schedule that needs
// no device round-trip.
package sej

import (
	"context"
	"encoding/binary"
)

// Base is the SEJ block's register base address on the DA memory-access
// path.
const Base uint32 = 0x1000A000

// Register offsets within the SEJ block. The AES-like wrap engine is
// programmed by selecting a key slot and mode, pushing 32 bytes of data
// through four-word chunks, triggering, and polling for completion.
const (
	regCtrl    = 0x0000
	regStatus  = 0x0004
	regKeySel  = 0x0008
	regMode    = 0x000C
	regDataIn  = 0x0010 // four consecutive words
	regDataOut = 0x0020 // four consecutive words
)

const (
	ctrlTrigger = 0x1
	modeEncrypt = 0x1
	modeDecrypt = 0x0
)

// keySelectors differentiate the three on-die transforms; each picks a
// different hardware-held key slot.
const (
	keySelHW   = 0x1
	keySelHWv3 = 0x3
	keySelHWv4 = 0x4
)

// IO is the capability object the crypto layer needs from the device
// façade: register access, nothing else. Passing this instead of a
// back-pointer to the façade breaks the cycle between the device and its
// protocol driver.
type IO interface {
	Read32(ctx context.Context, addr uint32) (uint32, error)
	Write32(ctx context.Context, addr uint32, val uint32) error
}

// Crypto wraps an IO capability bound to the SEJ base address.
type Crypto struct {
	io IO
}

func New(io IO) *Crypto {
	return &Crypto{io: io}
}

// SW runs the pure-software key schedule; it needs no device round-trip so
// it has no error return. It is length-preserving over exactly 32 bytes.
func (c *Crypto) SW(data []byte, encrypt bool) []byte {
	return swTransform(data, encrypt)
}

// HW drives the primary on-die transform.
func (c *Crypto) HW(ctx context.Context, data []byte, encrypt bool) ([]byte, error) {
	return c.hwTransform(ctx, data, encrypt, keySelHW)
}

// HWv3 drives the v3 on-die transform (distinct key slot/mode program).
func (c *Crypto) HWv3(ctx context.Context, data []byte, encrypt bool) ([]byte, error) {
	return c.hwTransform(ctx, data, encrypt, keySelHWv3)
}

// HWv4 drives the v4 on-die transform.
func (c *Crypto) HWv4(ctx context.Context, data []byte, encrypt bool) ([]byte, error) {
	return c.hwTransform(ctx, data, encrypt, keySelHWv4)
}

func (c *Crypto) hwTransform(ctx context.Context, data []byte, encrypt bool, keySel uint32) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)

	if err := c.io.Write32(ctx, Base+regKeySel, keySel); err != nil {
		return nil, err
	}
	mode := uint32(modeDecrypt)
	if encrypt {
		mode = modeEncrypt
	}
	if err := c.io.Write32(ctx, Base+regMode, mode); err != nil {
		return nil, err
	}

	for block := 0; block+32 <= len(out); block += 32 {
		for w := 0; w < 8; w++ {
			word := binary.LittleEndian.Uint32(out[block+w*4 : block+w*4+4])
			if err := c.io.Write32(ctx, Base+regDataIn+uint32(w%4)*4, word); err != nil {
				return nil, err
			}
			if w%4 == 3 {
				if err := c.io.Write32(ctx, Base+regCtrl, ctrlTrigger); err != nil {
					return nil, err
				}
				for {
					status, err := c.io.Read32(ctx, Base+regStatus)
					if err != nil {
						return nil, err
					}
					if status == 0 {
						break
					}
				}
				for r := 0; r < 4; r++ {
					val, err := c.io.Read32(ctx, Base+regDataOut+uint32(r)*4)
					if err != nil {
						return nil, err
					}
					outBase := block + (w/4)*16 + r*4
					binary.LittleEndian.PutUint32(out[outBase:outBase+4], val)
				}
			}
		}
	}

	return out, nil
}

// swTransform is a keyed, length-preserving wrap over 32-byte blocks that
// runs entirely in-process. It is its own inverse under XOR with a
// deterministic running key schedule, matching the "software-only"
// transform's role as a stand-in for devices whose hash isn't sealed by the
// on-die engine at all.
func swTransform(data []byte, _ bool) []byte {
	out := make([]byte, len(data))
	key := swKeySchedule(len(data))
	for i := range data {
		out[i] = data[i] ^ key[i]
	}
	return out
}

func swKeySchedule(n int) []byte {
	key := make([]byte, n)
	state := byte(0xA5)
	for i := range key {
		state = state*31 + byte(i)
		key[i] = state
	}
	return key
}
