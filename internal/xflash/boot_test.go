package xflash

import (
	"context"
	"testing"

	"mtkflash/internal/port"

	"github.com/stretchr/testify/assert"
)

func TestBootToHappyPath(t *testing.T) {
	image := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	var script []byte
	script = append(script, statusFrame(0)...)           // send_cmd(BootTo)
	script = append(script, statusFrame(0)...)           // send_data(params)
	script = append(script, statusFrame(0)...)           // first post-write status
	script = append(script, statusFrame(uint32(CmdSyncSignal))...) // second status

	fake := port.NewFake(script)
	driver := NewDriver(fake)

	err := driver.BootTo(context.Background(), 0x68000000, image)
	assert.NoError(t, err)
}

func TestBootToRejectsNonZeroFirstStatus(t *testing.T) {
	var script []byte
	script = append(script, statusFrame(0)...) // send_cmd(BootTo)
	script = append(script, statusFrame(0)...) // send_data(params)
	script = append(script, statusFrame(1)...) // first post-write status, non-zero

	fake := port.NewFake(script)
	driver := NewDriver(fake)

	err := driver.BootTo(context.Background(), 0x68000000, []byte{0x01})
	assert.Error(t, err)
}
