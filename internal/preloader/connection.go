package preloader

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"
)

// Connection drives the preloader command protocol over an already-opened
// Port. It owns the port exclusively for as long as the preloader stage is
// active.
type Connection struct {
	Port port.Port
}

// New wraps an opened port for preloader-protocol use.
func New(p port.Port) *Connection {
	return &Connection{Port: p}
}

// echo writes data, reads back len(data) bytes, and fails unless the device
// echoed it verbatim. This is the wire-level invariant underlying every
// preloader command: "write X, read X".
func (c *Connection) echo(ctx context.Context, data []byte) error {
	if err := c.Port.Write(ctx, data); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "preloader echo write", err)
	}
	buf := make([]byte, len(data))
	if err := c.Port.ReadExact(ctx, buf); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "preloader echo read", err)
	}
	for i := range buf {
		if buf[i] != data[i] {
			return mtkerr.New(mtkerr.Protocol, "preloader echo mismatch")
		}
	}
	return nil
}

func (c *Connection) readU16LE(ctx context.Context) (uint16, error) {
	buf := make([]byte, 2)
	if err := c.Port.ReadExact(ctx, buf); err != nil {
		return 0, mtkerr.Wrap(mtkerr.Io, "read u16", err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (c *Connection) readU16BE(ctx context.Context) (uint16, error) {
	buf := make([]byte, 2)
	if err := c.Port.ReadExact(ctx, buf); err != nil {
		return 0, mtkerr.Wrap(mtkerr.Io, "read u16", err)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// Handshake performs the initial bring-up: write 0xA0 in a loop until the
// device answers 0x5F, then write 0x0A/0x50/0x05 expecting 0xF5/0xAF/0xFA
// respectively. A mismatch on one of the trailing three bytes re-sends that
// byte; together with the loop-until-0x5F step these are the only
// retry-in-place points in the protocol. A read error on a trailing byte is
// returned, not retried.
func (c *Connection) Handshake(ctx context.Context) error {
	for {
		if err := c.Port.Write(ctx, []byte{0xA0}); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "handshake write 0xA0", err)
		}
		resp := make([]byte, 1)
		if err := c.Port.ReadExact(ctx, resp); err != nil {
			continue
		}
		if resp[0] == 0x5F {
			break
		}
	}

	seq := []struct {
		send byte
		want byte
	}{
		{0x0A, 0xF5},
		{0x50, 0xAF},
		{0x05, 0xFA},
	}
	for i := 0; i < len(seq); {
		step := seq[i]
		if err := c.Port.Write(ctx, []byte{step.send}); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "handshake write", err)
		}
		resp := make([]byte, 1)
		if err := c.Port.ReadExact(ctx, resp); err != nil {
			return mtkerr.Wrap(mtkerr.Io, "handshake read", err)
		}
		if resp[0] == step.want {
			i++
		}
	}
	return nil
}

// GetHwCode reads the 16-bit hardware code used to select a DA entry.
func (c *Connection) GetHwCode(ctx context.Context) (uint16, error) {
	if err := c.echo(ctx, []byte{byte(GetHwCode)}); err != nil {
		return 0, err
	}
	hwCode, err := c.readU16LE(ctx)
	if err != nil {
		return 0, err
	}
	status, err := c.readU16LE(ctx)
	if err != nil {
		return 0, err
	}
	if status != 0 {
		return 0, mtkerr.ProtocolStatus("GetHwCode failed", uint32(status))
	}
	return hwCode, nil
}

// HwSwVer is the response to GetHwSwVer.
type HwSwVer struct {
	HwSubCode uint16
	HwVer     uint16
	SwVer     uint16
}

func (c *Connection) GetHwSwVer(ctx context.Context) (HwSwVer, error) {
	if err := c.echo(ctx, []byte{byte(GetHwSwVer)}); err != nil {
		return HwSwVer{}, err
	}
	var v HwSwVer
	var err error
	if v.HwSubCode, err = c.readU16LE(ctx); err != nil {
		return HwSwVer{}, err
	}
	if v.HwVer, err = c.readU16LE(ctx); err != nil {
		return HwSwVer{}, err
	}
	if v.SwVer, err = c.readU16LE(ctx); err != nil {
		return HwSwVer{}, err
	}
	status, err := c.readU16LE(ctx)
	if err != nil {
		return HwSwVer{}, err
	}
	if status != 0 {
		return HwSwVer{}, mtkerr.ProtocolStatus("GetHwSwVer failed", uint32(status))
	}
	return v, nil
}

func (c *Connection) getLengthPrefixed(ctx context.Context, cmd Command) ([]byte, error) {
	if err := c.echo(ctx, []byte{byte(cmd)}); err != nil {
		return nil, err
	}
	lenBuf := make([]byte, 4)
	if err := c.Port.ReadExact(ctx, lenBuf); err != nil {
		return nil, mtkerr.Wrap(mtkerr.Io, "read length", err)
	}
	length := binary.BigEndian.Uint32(lenBuf)
	data := make([]byte, length)
	if length > 0 {
		if err := c.Port.ReadExact(ctx, data); err != nil {
			return nil, mtkerr.Wrap(mtkerr.Io, "read payload", err)
		}
	}
	status, err := c.readU16LE(ctx)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, mtkerr.ProtocolStatus("command failed", uint32(status))
	}
	return data, nil
}

// GetSocId reads the device's unique SoC identifier.
func (c *Connection) GetSocId(ctx context.Context) ([]byte, error) {
	return c.getLengthPrefixed(ctx, GetSocId)
}

// GetMeId reads the device's unique modem/chip identifier.
func (c *Connection) GetMeId(ctx context.Context) ([]byte, error) {
	return c.getLengthPrefixed(ctx, GetMeId)
}

// SendDa uploads a DA stage to the given SRAM address. Fields are
// big-endian here, unlike JumpDa — the endianness choice is not uniform
// across the preloader and must be preserved bit-exact.
func (c *Connection) SendDa(ctx context.Context, data []byte, address, sigLen uint32) error {
	if err := c.echo(ctx, []byte{byte(SendDa)}); err != nil {
		return err
	}
	addrBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(addrBuf, address)
	if err := c.echo(ctx, addrBuf); err != nil {
		return err
	}
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if err := c.echo(ctx, lenBuf); err != nil {
		return err
	}
	sigBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(sigBuf, sigLen)
	if err := c.echo(ctx, sigBuf); err != nil {
		return err
	}

	status, err := c.readU16BE(ctx)
	if err != nil {
		return err
	}
	if status != 0 {
		return mtkerr.ProtocolStatus("SendDa command failed", uint32(status))
	}

	if err := c.Port.Write(ctx, data); err != nil {
		return mtkerr.Wrap(mtkerr.Io, "SendDa data write", err)
	}

	// Device-computed checksum; the core only needs to consume it, not
	// validate it against anything on this side.
	if _, err := c.readU16BE(ctx); err != nil {
		return err
	}

	finalStatus, err := c.readU16BE(ctx)
	if err != nil {
		return err
	}
	if finalStatus != 0 {
		return mtkerr.ProtocolStatus("SendDa data transfer failed", uint32(finalStatus))
	}
	return nil
}

// JumpDa transfers execution to a previously uploaded DA stage. The address
// is little-endian here, unlike SendDa.
func (c *Connection) JumpDa(ctx context.Context, address uint32) error {
	if err := c.echo(ctx, []byte{byte(JumpDa)}); err != nil {
		return err
	}
	addrBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(addrBuf, address)
	if err := c.echo(ctx, addrBuf); err != nil {
		return err
	}
	status, err := c.readU16LE(ctx)
	if err != nil {
		return err
	}
	if status != 0 {
		return mtkerr.ProtocolStatus("JumpDa failed", uint32(status))
	}
	return nil
}
