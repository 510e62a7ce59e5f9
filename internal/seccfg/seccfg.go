// Package seccfg codecs the fixed-header seccfg v4 record: the bootloader
// lock state, sealed with a SHA-256 hash wrapped by the on-die SEJ engine.
package seccfg

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/sej"
)

const (
	magicBegin = 0x4D4D4D4D
	magicEnd   = 0x45454545

	headerLen = 0x1C // seven u32 header words
	hashLen   = 32
	padMultiple = 0x200
)

// Algo is the sealing transform discovered (or chosen) for a seccfg record.
type Algo int

const (
	AlgoNone Algo = iota
	AlgoSW
	AlgoHW
	AlgoHWv3
	AlgoHWv4
)

// LockFlag selects the bootloader lock state Create should write.
type LockFlag int

const (
	Lock LockFlag = iota
	Unlock
)

// SecCfgV4 is the parsed logical record: the fixed 20-byte header plus the
// algorithm that was able to reproduce its sealed hash.
type SecCfgV4 struct {
	Ver               uint32
	Size              uint32
	LockState         uint32
	CriticalLockState uint32
	SbootRuntime      uint32
	Algo              Algo
}

func headerWords(v SecCfgV4) []byte {
	buf := make([]byte, 7*4)
	binary.LittleEndian.PutUint32(buf[0:4], magicBegin)
	binary.LittleEndian.PutUint32(buf[4:8], v.Ver)
	binary.LittleEndian.PutUint32(buf[8:12], v.Size)
	binary.LittleEndian.PutUint32(buf[12:16], v.LockState)
	binary.LittleEndian.PutUint32(buf[16:20], v.CriticalLockState)
	binary.LittleEndian.PutUint32(buf[20:24], v.SbootRuntime)
	binary.LittleEndian.PutUint32(buf[24:28], magicEnd)
	return buf
}

// Parse validates the magics, extracts the header fields, and auto-detects
// the sealing algorithm by trial decryption against the sealed hash: if the
// sealed bytes already equal the reference SHA-256, Algo is None; otherwise
// SW, HW, HWv3, HWv4 are each tried in turn.
func Parse(ctx context.Context, data []byte, crypto *sej.Crypto) (*SecCfgV4, error) {
	if len(data) < headerLen+hashLen {
		return nil, mtkerr.New(mtkerr.Parse, "seccfg data too short")
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	ver := binary.LittleEndian.Uint32(data[4:8])
	size := binary.LittleEndian.Uint32(data[8:12])
	lockState := binary.LittleEndian.Uint32(data[12:16])
	criticalLockState := binary.LittleEndian.Uint32(data[16:20])
	sbootRuntime := binary.LittleEndian.Uint32(data[20:24])
	endFlag := binary.LittleEndian.Uint32(data[24:28])

	if magic != magicBegin || endFlag != magicEnd {
		return nil, mtkerr.New(mtkerr.Parse, "seccfg invalid magic values")
	}

	if size < hashLen || len(data) < int(size) {
		return nil, mtkerr.New(mtkerr.Parse, "seccfg data too short for hash")
	}
	hashStart := size - hashLen
	sealed := data[hashStart:size]

	v := SecCfgV4{
		Ver:               ver,
		Size:              size,
		LockState:         lockState,
		CriticalLockState: criticalLockState,
		SbootRuntime:      sbootRuntime,
	}

	reference := sha256.Sum256(headerWords(v))

	if bytes.Equal(sealed, reference[:]) {
		v.Algo = AlgoNone
		return &v, nil
	}

	algos := []Algo{AlgoSW, AlgoHW, AlgoHWv3, AlgoHWv4}
	for _, a := range algos {
		decrypted, err := unseal(ctx, crypto, a, sealed)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(decrypted, reference[:]) {
			v.Algo = a
			return &v, nil
		}
	}

	return nil, mtkerr.New(mtkerr.Parse, "seccfg: no algorithm reproduced the sealed hash")
}

// Create builds a new seccfg record with the given lock flag applied,
// reseals it with the algorithm latched at Parse time, and zero-pads the
// result to a multiple of 0x200 bytes.
func Create(ctx context.Context, crypto *sej.Crypto, v SecCfgV4, flag LockFlag) ([]byte, error) {
	switch flag {
	case Lock:
		v.LockState = 1
		v.CriticalLockState = 1
	case Unlock:
		v.LockState = 3
		v.CriticalLockState = 0
	}

	header := headerWords(v)
	hash := sha256.Sum256(header)

	sealed, err := seal(ctx, crypto, v.Algo, hash[:])
	if err != nil {
		return nil, err
	}

	out := append(append([]byte{}, header...), sealed...)
	for len(out)%padMultiple != 0 {
		out = append(out, 0)
	}
	return out, nil
}

func seal(ctx context.Context, crypto *sej.Crypto, a Algo, hash []byte) ([]byte, error) {
	switch a {
	case AlgoSW:
		return crypto.SW(hash, true), nil
	case AlgoHW:
		return crypto.HW(ctx, hash, true)
	case AlgoHWv3:
		return crypto.HWv3(ctx, hash, true)
	case AlgoHWv4:
		return crypto.HWv4(ctx, hash, true)
	default:
		return append([]byte{}, hash...), nil
	}
}

func unseal(ctx context.Context, crypto *sej.Crypto, a Algo, sealed []byte) ([]byte, error) {
	switch a {
	case AlgoSW:
		return crypto.SW(sealed, false), nil
	case AlgoHW:
		return crypto.HW(ctx, sealed, false)
	case AlgoHWv3:
		return crypto.HWv3(ctx, sealed, false)
	case AlgoHWv4:
		return crypto.HWv4(ctx, sealed, false)
	default:
		return append([]byte{}, sealed...), nil
	}
}
