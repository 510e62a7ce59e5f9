package xflash

import (
	"context"
	"testing"

	"mtkflash/internal/port"

	"github.com/stretchr/testify/assert"
)

// TestReadPartitionScenarioS4 mirrors the literal XFlash ReadData scenario:
// addr=0, size=0x44, eMMC USER, a single chunk, then a status of 0; the loop
// ends because the full size has been read.
func TestReadPartitionScenarioS4(t *testing.T) {
	var script []byte

	// send_cmd(ReadData) status.
	script = append(script, statusFrame(0)...)
	// send_data(params) status.
	script = append(script, statusFrame(0)...)

	chunk := make([]byte, 0x44)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	script = append(script, EncodeFrameHeader(DataTypeProtocolFlow, uint32(len(chunk)))...)
	script = append(script, chunk...)
	// status after the ack.
	script = append(script, statusFrame(0)...)

	fake := port.NewFake(script)
	driver := NewDriver(fake)

	var lastDone, lastTotal uint64
	out, err := driver.ReadPartition(context.Background(), 1, 8, 0, 0x44, func(done, total uint64) {
		lastDone, lastTotal = done, total
	})
	assert.NoError(t, err)
	assert.Equal(t, chunk, out)
	assert.Equal(t, uint64(0x44), lastDone)
	assert.Equal(t, uint64(0x44), lastTotal)
	assert.NotEmpty(t, fake.Sent.Bytes())
}

func statusFrame(status uint32) []byte {
	return append(EncodeFrameHeader(DataTypeProtocolFlow, 4), leU32(status)...)
}

func TestWritePartitionUsesAdditiveChecksum(t *testing.T) {
	var script []byte
	script = append(script, statusFrame(0)...) // send_cmd(WriteData)
	script = append(script, statusFrame(0)...) // send_data(params)

	data := []byte{0x01, 0x02, 0x03}
	// one chunk: send(0), send(checksum), send_data(chunk) -> status 0
	script = append(script, statusFrame(0)...)
	script = append(script, statusFrame(0)...)

	fake := port.NewFake(script)
	driver := NewDriver(fake)

	err := driver.WritePartition(context.Background(), 1, 8, 0, uint64(len(data)), data, nil)
	assert.NoError(t, err)

	sent := fake.Sent.Bytes()
	assert.NotEmpty(t, sent)
	// After the WriteData command frame (16 bytes) and the params frame
	// (12+56 bytes), the chunk is preceded by send(0) and send(checksum),
	// where checksum = 0x01+0x02+0x03 = 6.
	assert.Equal(t, append(EncodeFrameHeader(DataTypeProtocolFlow, 4), leU32(0)...), sent[84:100])
	assert.Equal(t, append(EncodeFrameHeader(DataTypeProtocolFlow, 4), leU32(6)...), sent[100:116])
}
