package daext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRegisterDevCtrl(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[10:], []byte{0x38, 0xB5, 0x05, 0x46, 0x0C, 0x20})

	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0x200000+10)|1, resolved[RegisterDevCtrl])
}

func TestResolveMmcGetCardFallback(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[20:], []byte{0xA3, 0xEB, 0x00, 0x13, 0x18, 0x1A, 0x02, 0xEB, 0x00, 0x10})

	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0x200000+20)|1, resolved[MmcGetCard])
}

func TestResolveMmcSetPartConfigRequiresVerifyByte(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[5:], []byte{0xC3, 0x69, 0x0A, 0x46, 0x10, 0xB5})
	// No B3 21 at +20 from the match and no fallback present: unresolved.
	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0), resolved[MmcSetPartConfig])
}

func TestResolveMmcSetPartConfigWithVerifyByte(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[5:], []byte{0xC3, 0x69, 0x0A, 0x46, 0x10, 0xB5})
	copy(da2[5+20:], []byte{0xB3, 0x21})

	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0x200000+5)|1, resolved[MmcSetPartConfig])
}

func TestResolveGUfsHbaIsLiteralPointerNotRebased(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[8:], []byte{0x20, 0x46, 0x0B, 0xB0, 0xBD, 0xE8, 0xF0, 0x83, 0x00, 0xBF})
	// Literal pointer at +10 from the match.
	da2[8+10] = 0x44
	da2[8+11] = 0x33
	da2[8+12] = 0x22
	da2[8+13] = 0x11

	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0x11223344), resolved[GUfsHba])
}

func TestResolveUfshcdRoutinesRequireGUfsHba(t *testing.T) {
	da2 := make([]byte, 64)
	copy(da2[0:], []byte{0xB5, 0x2E, 0xB1, 0x90, 0xF8})

	resolved := Resolve(da2, 0x200000)
	// g_ufs_hba was never found, so its dependents stay unresolved even
	// though their own signature matched.
	assert.Equal(t, uint32(0), resolved[UfshcdGetFreeTag])
}

func TestResolveUnmatchedSymbolsAreZero(t *testing.T) {
	da2 := make([]byte, 64)
	resolved := Resolve(da2, 0x200000)
	assert.Equal(t, uint32(0), resolved[RegisterDevCtrl])
}
