package preloader

import (
	"context"
	"testing"

	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"

	"github.com/stretchr/testify/assert"
)

// TestHandshakeScenario is scenario S1: A0->5F, 0A->F5, 50->AF, 05->FA.
func TestHandshakeScenario(t *testing.T) {
	fake := port.NewFake([]byte{0x5F, 0xF5, 0xAF, 0xFA})
	conn := New(fake)

	err := conn.Handshake(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0x0A, 0x50, 0x05}, fake.Sent.Bytes())
}

func TestHandshakeRetriesUntilSyncByte(t *testing.T) {
	fake := port.NewFake([]byte{0x00, 0x5F, 0xF5, 0xAF, 0xFA})
	conn := New(fake)

	err := conn.Handshake(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0xA0, 0x0A, 0x50, 0x05}, fake.Sent.Bytes())
}

// TestGetHwCodeScenario is scenario S2.
func TestGetHwCodeScenario(t *testing.T) {
	fake := port.NewFake([]byte{0xFD, 0x73, 0x06, 0x00, 0x00})
	conn := New(fake)

	hwCode, err := conn.GetHwCode(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0673), hwCode)
}

func TestGetHwCodeNonZeroStatus(t *testing.T) {
	fake := port.NewFake([]byte{0xFD, 0x00, 0x00, 0x01, 0x00})
	conn := New(fake)

	_, err := conn.GetHwCode(context.Background())
	assert.Error(t, err)
	assert.True(t, mtkerr.Is(err, mtkerr.Protocol))
}

// TestSendDaScenario is scenario S3.
func TestSendDaScenario(t *testing.T) {
	script := []byte{0xD7}
	script = append(script, 0x00, 0x20, 0x00, 0x00) // address echo
	script = append(script, 0x00, 0x00, 0x00, 0x04) // da_len echo
	script = append(script, 0x00, 0x00, 0x00, 0x00) // sig_len echo
	script = append(script, 0x00, 0x00)             // status
	script = append(script, 0xAB, 0xCD)             // checksum (device-computed)
	script = append(script, 0x00, 0x00)             // final status

	fake := port.NewFake(script)
	conn := New(fake)

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	err := conn.SendDa(context.Background(), data, 0x200000, 0)
	assert.NoError(t, err)

	want := []byte{0xD7}
	want = append(want, 0x00, 0x20, 0x00, 0x00)
	want = append(want, 0x00, 0x00, 0x00, 0x04)
	want = append(want, 0x00, 0x00, 0x00, 0x00)
	want = append(want, data...)
	assert.Equal(t, want, fake.Sent.Bytes())
}

func TestJumpDaLittleEndian(t *testing.T) {
	script := []byte{0xD5, 0x00, 0x00, 0x20, 0x00, 0x00, 0x00}
	fake := port.NewFake(script)
	conn := New(fake)

	err := conn.JumpDa(context.Background(), 0x200000)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xD5, 0x00, 0x00, 0x20, 0x00}, fake.Sent.Bytes())
}
