package daext

import (
	"context"
	"encoding/binary"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/xflash"
)

// extBootAddr is where the patched extension blob is booted to.
const extBootAddr = 0x68000000

// Driver is the subset of xflash.Driver the patcher needs: boot the blob
// and run the ack devctrl call.
type Driver interface {
	BootTo(ctx context.Context, addr uint32, image []byte) error
	DevCtrl(ctx context.Context, cmd xflash.Cmd, param []byte) ([]byte, error)
}

// Apply resolves every symbol against da2, patches extBlob's sentinels,
// boots the patched blob, and validates the ExtAck response. On success the
// caller should latch using_exts on its xflash.Driver.
func Apply(ctx context.Context, driver Driver, da2 []byte, da2Addr uint32, extBlob []byte) error {
	resolved := Resolve(da2, da2Addr)
	patched := PatchBlob(extBlob, resolved)

	if err := driver.BootTo(ctx, extBootAddr, patched); err != nil {
		return err
	}

	resp, err := driver.DevCtrl(ctx, xflash.CmdExtAck, nil)
	if err != nil {
		return err
	}
	if len(resp) < 4 {
		return mtkerr.New(mtkerr.Protocol, "daext: ExtAck response too short")
	}
	if binary.LittleEndian.Uint32(resp[:4]) != extAckMagic {
		return mtkerr.New(mtkerr.Protocol, "daext: ExtAck magic mismatch")
	}
	return nil
}

const extAckMagic uint32 = 0xA1A2A3A4
