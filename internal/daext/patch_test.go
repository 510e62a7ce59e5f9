package daext

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchBlobWritesResolvedAddress(t *testing.T) {
	blob := make([]byte, 16)
	binary.LittleEndian.PutUint32(blob[4:8], 0x11111111)

	resolved := map[Symbol]uint32{RegisterDevCtrl: 0xDEADBEEF}
	out := PatchBlob(blob, resolved)

	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(out[4:8]))
	// Original blob left untouched.
	assert.Equal(t, uint32(0x11111111), binary.LittleEndian.Uint32(blob[4:8]))
}

func TestPatchBlobWritesZeroForUnresolvedSymbol(t *testing.T) {
	blob := make([]byte, 16)
	binary.LittleEndian.PutUint32(blob[4:8], 0x22222222)

	resolved := map[Symbol]uint32{MmcGetCard: 0}
	out := PatchBlob(blob, resolved)

	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[4:8]))
}

func TestPatchBlobLeavesAbsentSentinelAlone(t *testing.T) {
	blob := make([]byte, 16)
	resolved := map[Symbol]uint32{RegisterDevCtrl: 0xCAFEBABE}
	out := PatchBlob(blob, resolved)
	assert.Equal(t, blob, out)
}
