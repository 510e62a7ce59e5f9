package seccfg

import (
	"context"
	"crypto/sha256"
	"testing"

	"mtkflash/internal/sej"

	"github.com/stretchr/testify/assert"
)

// buildRecord assembles a seccfg v4 record whose sealed trailer already
// equals the reference hash of its own header, so Parse latches AlgoNone.
func buildRecord(t *testing.T, lockState, criticalLockState uint32) []byte {
	t.Helper()
	v := SecCfgV4{Ver: 4, Size: 0x1C + 32, LockState: lockState, CriticalLockState: criticalLockState}
	header := headerWords(v)
	hash := sha256.Sum256(header)
	return append(header, hash[:]...)
}

// TestParseScenarioS5 mirrors the literal seccfg parse scenario: a header
// with lock_state=1, critical_lock_state=1 whose sealed hash matches the
// reference (AlgoNone), since this test has no hardware SEJ to drive.
func TestParseScenarioS5(t *testing.T) {
	data := buildRecord(t, 1, 1)

	v, err := Parse(context.Background(), data, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), v.LockState)
	assert.Equal(t, uint32(1), v.CriticalLockState)
	assert.Equal(t, AlgoNone, v.Algo)
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := buildRecord(t, 1, 1)
	data[0] = 0x00
	_, err := Parse(context.Background(), data, nil)
	assert.Error(t, err)
}

func TestParseRejectsShortData(t *testing.T) {
	_, err := Parse(context.Background(), make([]byte, 10), nil)
	assert.Error(t, err)
}

// TestCreateLockSemantics is invariant #6: parse(create(_, Unlock)) yields
// (3, 0); parse(create(_, Lock)) yields (1, 1).
func TestCreateLockSemantics(t *testing.T) {
	base := SecCfgV4{Ver: 4, Size: 0x1C + 32, Algo: AlgoNone}

	lockBytes, err := Create(context.Background(), nil, base, Lock)
	assert.NoError(t, err)
	lockParsed, err := Parse(context.Background(), lockBytes, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), lockParsed.LockState)
	assert.Equal(t, uint32(1), lockParsed.CriticalLockState)

	unlockBytes, err := Create(context.Background(), nil, base, Unlock)
	assert.NoError(t, err)
	unlockParsed, err := Parse(context.Background(), unlockBytes, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), unlockParsed.LockState)
	assert.Equal(t, uint32(0), unlockParsed.CriticalLockState)
}

// TestCreatePadsToMultipleOf0x200 checks the zero-padding contract.
func TestCreatePadsToMultipleOf0x200(t *testing.T) {
	base := SecCfgV4{Ver: 4, Size: 0x1C + 32, Algo: AlgoNone}
	out, err := Create(context.Background(), nil, base, Lock)
	assert.NoError(t, err)
	assert.Zero(t, len(out)%0x200)
}

// TestRoundTripAlgoNone is invariant #5 for algo == None: create(parse(b),
// same lock flag) reproduces b[0..seccfg_size] exactly.
func TestRoundTripAlgoNone(t *testing.T) {
	data := buildRecord(t, 1, 1)

	parsed, err := Parse(context.Background(), data, nil)
	assert.NoError(t, err)

	out, err := Create(context.Background(), nil, *parsed, Lock)
	assert.NoError(t, err)
	assert.Equal(t, data, out[:len(data)])
}

// TestRoundTripAlgoSW exercises the software-only sealing path end to end,
// without any register IO at all.
func TestRoundTripAlgoSW(t *testing.T) {
	v := SecCfgV4{Ver: 4, Size: 0x1C + 32, LockState: 1, CriticalLockState: 1, Algo: AlgoSW}
	header := headerWords(v)
	hash := sha256.Sum256(header)
	crypto := sej.New(nil)
	sealed := crypto.SW(hash[:], true)
	data := append(header, sealed...)

	parsed, err := Parse(context.Background(), data, crypto)
	assert.NoError(t, err)
	assert.Equal(t, AlgoSW, parsed.Algo)
	assert.Equal(t, uint32(1), parsed.LockState)
}
