package device

import (
	"context"
	"encoding/binary"
	"testing"

	"mtkflash/internal/port"
	"mtkflash/internal/preloader"
	"mtkflash/internal/seccfg"
	"mtkflash/internal/stats"
	"mtkflash/internal/storage"
	"mtkflash/internal/xflash"

	"github.com/stretchr/testify/assert"
)

func leU32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }

func statusFrame(status uint32) []byte {
	return append(xflash.EncodeFrameHeader(xflash.DataTypeProtocolFlow, 4), leU32(status)...)
}

func dataFrame(payload []byte) []byte {
	return append(xflash.EncodeFrameHeader(xflash.DataTypeProtocolFlow, uint32(len(payload))), payload...)
}

// TestSetSecCfgLockStateRoundTrip drives a full read-parse-reseal-write
// cycle for an AlgoNone seccfg record through the device façade, against a
// scripted port.
func TestSetSecCfgLockStateRoundTrip(t *testing.T) {
	ctx := context.Background()

	initial, err := seccfg.Create(ctx, nil, seccfg.SecCfgV4{Ver: 4, Size: 0x1C + 32, Algo: seccfg.AlgoNone}, seccfg.Lock)
	assert.NoError(t, err)

	var script []byte
	// ReadPartition("seccfg"): send_cmd(ReadData), send_data(params), one
	// chunk covering the whole partition, then a status of 0; the loop ends
	// because the whole partition has been read.
	script = append(script, statusFrame(0)...)
	script = append(script, statusFrame(0)...)
	script = append(script, dataFrame(initial)...)
	script = append(script, statusFrame(0)...)

	// WritePartition("seccfg"): send_cmd(WriteData), send_data(params), one
	// chunk, final status.
	script = append(script, statusFrame(0)...)
	script = append(script, statusFrame(0)...)
	script = append(script, statusFrame(0)...)
	script = append(script, statusFrame(0)...)

	fake := port.NewFake(script)
	d := &Device{
		Port:  fake,
		conn:  preloader.New(fake),
		Stats: &stats.SessionStats{},
	}
	d.driver = xflash.NewDriver(fake)
	d.storageType = storage.Emmc
	d.SetPartitions([]storage.Partition{{Name: "seccfg", Address: 0, Size: uint64(len(initial))}})

	out, err := d.SetSecCfgLockState(ctx, seccfg.Unlock)
	assert.NoError(t, err)
	assert.NotEmpty(t, out)

	parsed, err := seccfg.Parse(ctx, out, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), parsed.LockState)
	assert.Equal(t, uint32(0), parsed.CriticalLockState)
}

func TestWritePartitionRejectsOversizedData(t *testing.T) {
	fake := port.NewFake(nil)
	d := &Device{Port: fake, conn: preloader.New(fake), Stats: &stats.SessionStats{}}
	d.driver = xflash.NewDriver(fake)
	d.SetPartitions([]storage.Partition{{Name: "boot", Size: 4}})

	err := d.WritePartition(context.Background(), "boot", []byte{1, 2, 3, 4, 5}, nil)
	assert.Error(t, err)
}

func TestReadPartitionUnknownNameFails(t *testing.T) {
	fake := port.NewFake(nil)
	d := &Device{Port: fake, conn: preloader.New(fake), Stats: &stats.SessionStats{}}
	d.driver = xflash.NewDriver(fake)

	_, err := d.ReadPartition(context.Background(), "missing", nil)
	assert.Error(t, err)
}
