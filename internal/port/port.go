// Package port implements the uniform byte-stream abstraction over a
// connected MTK device, behind two interchangeable transports: USB-CDC
// serial and raw bulk USB.
package port

import (
	"context"
	"time"
)

// ConnKind identifies which stage of the boot chain a port is currently
// talking to. The negotiated baud rate follows directly from it.
type ConnKind int

const (
	Brom ConnKind = iota
	Preloader
	Da
)

func (k ConnKind) String() string {
	switch k {
	case Brom:
		return "brom"
	case Preloader:
		return "preloader"
	case Da:
		return "da"
	default:
		return "unknown"
	}
}

// Baud returns the connection-type baud rate: 115200 for BROM, 921600
// otherwise.
func (k ConnKind) Baud() int {
	if k == Brom {
		return 115200
	}
	return 921600
}

// KnownVIDPIDs enumerates the USB VID/PID pairs an MTK port may present as,
// one per ConnKind (Brom, Preloader, Da in that order).
var KnownVIDPIDs = [3]struct{ VID, PID uint16 }{
	{0x0e8d, 0x0003},
	{0x0e8d, 0x2000},
	{0x0e8d, 0x2001},
}

// KindForVIDPID maps a VID/PID pair to its ConnKind, returning ok=false for
// an unrecognised pair.
func KindForVIDPID(vid, pid uint16) (ConnKind, bool) {
	for i, p := range KnownVIDPIDs {
		if p.VID == vid && p.PID == pid {
			return ConnKind(i), true
		}
	}
	return 0, false
}

// Port is the byte-stream contract every transport backend must satisfy.
// Exclusive ownership is structural: whichever protocol driver holds a Port
// is the only thing that touches it, so the interface carries no locking.
type Port interface {
	// Write sends buf in full or returns an error.
	Write(ctx context.Context, buf []byte) error
	// ReadExact blocks until len(buf) bytes have been read, or ctx is done.
	// A zero-byte read from the underlying transport is retried rather than
	// treated as EOF.
	ReadExact(ctx context.Context, buf []byte) error
	// Close releases the underlying transport (USB interface claim, serial
	// handle, ...). Idempotent.
	Close() error

	Kind() ConnKind
	Baud() int
	Name() string
}

// DefaultReadTimeout is the 5s bulk-read deadline from the external
// interfaces contract; a stuck device manifests as this timeout.
const DefaultReadTimeout = 5 * time.Second

// HandshakeReadTimeout is a shorter 1s deadline for polling the preloader's
// initial 0x5F handshake byte. Nothing in this module applies it:
// preloader.Handshake reads under the caller's context and the port's own
// read timeout.
const HandshakeReadTimeout = 1 * time.Second
