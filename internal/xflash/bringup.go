package xflash

import (
	"context"
	"encoding/binary"
	"time"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"
	"mtkflash/internal/preloader"
)

// State is a DA1 bring-up state. Bring-up is written as an explicit state
// machine rather than a straight-line script so each transition is testable
// in isolation against a scripted port.
type State int

const (
	Idle State = iota
	AwaitSyncByte
	SendSync
	SendEnv
	AwaitSetupAck
	Ready
	Failed
)

// syncByteTimeout bounds how long bring-up waits for DA1's 0xC0 sync byte
// before declaring the attempt failed; a timeout here is surfaced distinctly
// so the UI can prompt a re-plug.
const syncByteTimeout = 3 * time.Second

// Driver is the post-handshake XFlash session: everything from DA1 bring-up
// onward runs through it.
type Driver struct {
	Port port.Port

	state     State
	usingExts bool
}

// NewDriver wraps an already-open port in Idle state.
func NewDriver(p port.Port) *Driver {
	return &Driver{Port: p, state: Idle}
}

// State reports the current bring-up state.
func (d *Driver) State() State { return d.state }

// SetUsingExtensions latches whether memory access should route through the
// DA-extensions opcodes. Called by the daext patcher once its ExtAck
// validates.
func (d *Driver) SetUsingExtensions(v bool) { d.usingExts = v }

// UsingExtensions reports whether DA extensions are active.
func (d *Driver) UsingExtensions() bool { return d.usingExts }

// BringUp runs the DA1 state machine: send DA1 over the preloader
// connection, jump to it, then wait for the sync byte and run the
// setup-environment handshake.
func (d *Driver) BringUp(ctx context.Context, conn *preloader.Connection, da1 []byte, addr uint32, sigLen uint32) error {
	d.state = Idle

	if err := conn.SendDa(ctx, da1, addr, sigLen); err != nil {
		d.state = Failed
		return err
	}
	if err := conn.JumpDa(ctx, addr); err != nil {
		d.state = Failed
		return err
	}
	d.state = AwaitSyncByte

	syncCtx, cancel := context.WithTimeout(ctx, syncByteTimeout)
	defer cancel()
	b := make([]byte, 1)
	if err := d.Port.ReadExact(syncCtx, b); err != nil {
		d.state = Failed
		return mtkerr.Wrap(mtkerr.TimedOut, "xflash: timed out waiting for DA1 sync byte", err)
	}
	if b[0] != bringupSyncByte {
		d.state = Failed
		return mtkerr.New(mtkerr.Protocol, "xflash: unexpected DA1 sync byte")
	}
	d.state = SendSync

	if err := d.rawSend(ctx, uint32(CmdSyncSignal), DataTypeProtocolFlow); err != nil {
		d.state = Failed
		return err
	}
	d.state = SendEnv

	envParams := make([]byte, 20)
	binary.LittleEndian.PutUint32(envParams[0:4], 2) // log_level
	binary.LittleEndian.PutUint32(envParams[4:8], 1) // log_channel
	binary.LittleEndian.PutUint32(envParams[8:12], 1) // system_os
	binary.LittleEndian.PutUint32(envParams[12:16], 0) // ufs_provision
	binary.LittleEndian.PutUint32(envParams[16:20], 0)
	if err := d.sendCmdFrame(ctx, CmdSetupEnvironment, envParams); err != nil {
		d.state = Failed
		return err
	}

	hwInitParams := make([]byte, 4)
	if err := d.sendCmdFrame(ctx, CmdSetupHwInitParams, hwInitParams); err != nil {
		d.state = Failed
		return err
	}
	d.state = AwaitSetupAck

	frame, err := readFrame(ctx, d.Port)
	if err != nil {
		d.state = Failed
		return err
	}
	if frame.DataType != DataTypeProtocolFlow || frame.Length != 4 {
		d.state = Failed
		return mtkerr.New(mtkerr.Protocol, "xflash: malformed setup-ack frame")
	}
	ack := binary.LittleEndian.Uint32(frame.Payload)
	if ack != uint32(CmdSyncSignal) {
		d.state = Failed
		return mtkerr.New(mtkerr.Protocol, "xflash: setup-ack did not echo sync signal")
	}

	d.state = Ready
	return nil
}

// rawSend implements the primitive send(value, data_type): a frame whose
// 4-byte payload is value encoded little-endian.
func (d *Driver) rawSend(ctx context.Context, value uint32, dataType uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, value)
	return writeFrame(ctx, d.Port, dataType, payload)
}

// sendCmdFrame writes a single protocol-flow frame whose payload is the
// command word followed by params, used by the two composite bring-up
// frames (SetupEnvironment, SetupHwInitParams).
func (d *Driver) sendCmdFrame(ctx context.Context, cmd Cmd, params []byte) error {
	payload := make([]byte, 4+len(params))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(cmd))
	copy(payload[4:], params)
	return writeFrame(ctx, d.Port, DataTypeProtocolFlow, payload)
}
