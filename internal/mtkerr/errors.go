// Package mtkerr defines the error kinds the MTK communication stack must
// distinguish, per the protocol's error handling design.
package mtkerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure from the MTK protocol stack.
type Kind int

const (
	// Io is a transport-level read/write failure or short read.
	Io Kind = iota
	// TimedOut is surfaced when the DA1 sync byte or the DA2 boot
	// acknowledgements do not arrive. Other bulk reads that run past the
	// port's read deadline are reported as Io, wrapping the transport's
	// timeout error.
	TimedOut
	// Protocol means the device returned a non-zero status word.
	Protocol
	// Framing means a magic word mismatch or inconsistent header length.
	Framing
	// Parse means a malformed DA file, seccfg header, or GPT.
	Parse
	// NotFound means an unknown hw_code, unknown partition, or missing
	// DA1/DA2 region.
	NotFound
	// Unsupported means a non-V5 DA type, non-128-byte GPT entry, or an
	// unimplemented storage type.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case TimedOut:
		return "timed_out"
	case Protocol:
		return "protocol"
	case Framing:
		return "framing"
	case Parse:
		return "parse"
	case NotFound:
		return "not_found"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can errors.Is /
// errors.As against a specific failure category.
type Error struct {
	Kind    Kind
	Msg     string
	Status  uint32 // populated for Kind == Protocol
	Wrapped error
}

func (e *Error) Error() string {
	if e.Kind == Protocol {
		return fmt.Sprintf("mtk: %s: %s (status=0x%04X)", e.Kind, e.Msg, e.Status)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("mtk: %s: %s: %v", e.Kind, e.Msg, e.Wrapped)
	}
	return fmt.Sprintf("mtk: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an Error of the given kind with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind, preserving the original cause.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Wrapped: cause}
}

// ProtocolStatus builds a Protocol error carrying the device's literal
// non-zero status word.
func ProtocolStatus(msg string, status uint32) error {
	return &Error{Kind: Protocol, Msg: msg, Status: status}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
