package port

import (
	"bytes"
	"context"
	"fmt"
)

// Fake is an in-memory Port used by the other packages' tests to drive the
// protocol state machines without a real device. Script is the bytes the
// "device" will hand back in order; Sent accumulates everything written to
// it so assertions can inspect the exact wire bytes.
type Fake struct {
	Script []byte
	Sent   bytes.Buffer
	kind   ConnKind
}

// NewFake builds a Fake preloaded with the bytes the simulated device will
// reply with, in order.
func NewFake(script []byte) *Fake {
	return &Fake{Script: append([]byte(nil), script...)}
}

func (f *Fake) Write(_ context.Context, buf []byte) error {
	f.Sent.Write(buf)
	return nil
}

func (f *Fake) ReadExact(_ context.Context, buf []byte) error {
	if len(f.Script) < len(buf) {
		return fmt.Errorf("fake port: short script, want %d bytes, have %d", len(buf), len(f.Script))
	}
	copy(buf, f.Script[:len(buf)])
	f.Script = f.Script[len(buf):]
	return nil
}

func (f *Fake) Close() error    { return nil }
func (f *Fake) Kind() ConnKind  { return f.kind }
func (f *Fake) Baud() int       { return f.kind.Baud() }
func (f *Fake) Name() string    { return "fake" }
func (f *Fake) SetKind(k ConnKind) { f.kind = k }
