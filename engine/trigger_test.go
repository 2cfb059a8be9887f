package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort records writes. The embedded interface panics on anything the
// trigger code never calls.
type fakePort struct {
	serial.Port
	writes [][]byte
	fail   bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.fail {
		return 0, errors.New("port gone")
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *fakePort) Close() error { return nil }

func TestSerialTrigger_PulseFraming(t *testing.T) {
	port := &fakePort{}
	trig := &SerialTrigger{port: port}

	trig.Emit(42)

	// Zero before and after the tag gives the receiver a rising and a
	// falling edge.
	require.Len(t, port.writes, 3)
	assert.Equal(t, []byte{0}, port.writes[0])
	assert.Equal(t, []byte{42}, port.writes[1])
	assert.Equal(t, []byte{0}, port.writes[2])
}

func TestSerialTrigger_MinimumPulseWidth(t *testing.T) {
	trig := &SerialTrigger{port: &fakePort{}}

	start := time.Now()
	trig.Emit(1)
	assert.GreaterOrEqual(t, time.Since(start), pulseWidth)
}

func TestSerialTrigger_WriteFailureIsSwallowed(t *testing.T) {
	port := &fakePort{fail: true}
	trig := &SerialTrigger{port: port}

	assert.NotPanics(t, func() { trig.Emit(7) })
	assert.Empty(t, port.writes)
}

func TestTagLines(t *testing.T) {
	tests := []struct {
		tag  uint8
		want string
	}{
		{tag: 0, want: ""},
		{tag: 1, want: "1"},
		{tag: 0b00000101, want: "13"},
		{tag: 100, want: "367"}, // 100 = 0b01100100
		{tag: 0xFF, want: "12345678"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tagLines(tt.tag), "tag %d", tt.tag)
	}
}

func TestDLPIO8G_EmitSetsThenClearsLines(t *testing.T) {
	port := &fakePort{}
	dlp := &DLPIO8G{port: port}

	dlp.Emit(3) // bits 0 and 1: lines "12"

	require.Len(t, port.writes, 2)
	assert.Equal(t, []byte("12"), port.writes[0])
	assert.Equal(t, []byte("QW"), port.writes[1], "clear commands for lines 1 and 2")
}

func TestDLPIO8G_EmitZeroTagWritesNothing(t *testing.T) {
	port := &fakePort{}
	dlp := &DLPIO8G{port: port}

	dlp.Emit(0)
	assert.Empty(t, port.writes)
}
