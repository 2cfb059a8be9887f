package engine

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// pulseWidth is the hold time between raising a tag on the wire and clearing
// it again. The sleep is deliberate and stays visible at the call site: the
// acquisition hardware needs a minimum pulse width to register the rising and
// falling edge, so emission blocks for ~2ms per tag.
const pulseWidth = 2 * time.Millisecond

// SerialTrigger writes raw event bytes to an acquisition system's trigger
// port. Each tag is framed by zero bytes so the receiver sees a clean
// rising-then-falling edge.
type SerialTrigger struct {
	port serial.Port
}

// OpenSerialTrigger opens the trigger port and resets the line to zero so the
// first tag produces a clean edge.
func OpenSerialTrigger(device string, baudrate int) (*SerialTrigger, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open trigger port %s: %w", device, err)
	}

	t := &SerialTrigger{port: port}
	if _, err := port.Write([]byte{0}); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset trigger line: %w", err)
	}

	Log.Info().Str("device", device).Int("baud", baudrate).Msg("serial trigger ready")
	return t, nil
}

// Emit writes 0, the tag, then 0 after the pulse width. Write failures are
// logged and swallowed; the experiment must not stall on a dead trigger.
func (t *SerialTrigger) Emit(eventID uint8) {
	if _, err := t.port.Write([]byte{0}); err != nil {
		Log.Error().Err(err).Uint8("tag", eventID).Msg("trigger write failed")
		return
	}
	if _, err := t.port.Write([]byte{eventID}); err != nil {
		Log.Error().Err(err).Uint8("tag", eventID).Msg("trigger write failed")
		return
	}
	time.Sleep(pulseWidth)
	if _, err := t.port.Write([]byte{0}); err != nil {
		Log.Error().Err(err).Uint8("tag", eventID).Msg("trigger reset failed")
	}
}

// Close releases the port.
func (t *SerialTrigger) Close() {
	if t.port != nil {
		t.port.Close()
	}
}

// DLPIO8G drives a DLP-IO8-G digital I/O board as an event marker. Each of
// its eight output lines carries one bit of the tag: line 1 is bit 0 through
// line 8 for bit 7.
type DLPIO8G struct {
	port serial.Port
}

// OpenDLPIO8G opens and pings the board, then switches it to binary mode.
func OpenDLPIO8G(device string, baudrate int) (*DLPIO8G, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open DLP device %s: %w", device, err)
	}

	d := &DLPIO8G{port: port}

	// Ping
	if _, err := port.Write([]byte{0x27}); err != nil {
		port.Close()
		return nil, fmt.Errorf("ping DLP device: %w", err)
	}
	buf := make([]byte, 1)
	n, err := port.Read(buf)
	if err != nil || n != 1 || buf[0] != 'Q' {
		port.Close()
		return nil, fmt.Errorf("DLP device did not respond to ping")
	}

	// Binary mode
	if _, err := port.Write([]byte{0x5C}); err != nil {
		port.Close()
		return nil, fmt.Errorf("switch DLP device to binary mode: %w", err)
	}

	Log.Info().Str("device", device).Msg("DLP-IO8-G trigger ready")
	return d, nil
}

// Ping checks that the board still answers.
func (d *DLPIO8G) Ping() bool {
	if _, err := d.port.Write([]byte{0x27}); err != nil {
		return false
	}
	buf := make([]byte, 1)
	n, err := d.port.Read(buf)
	return err == nil && n == 1 && buf[0] == 'Q'
}

// Emit raises the lines for the tag's set bits, holds the pulse width, then
// clears them.
func (d *DLPIO8G) Emit(eventID uint8) {
	lines := tagLines(eventID)
	if lines == "" {
		return
	}
	d.set(lines)
	time.Sleep(pulseWidth)
	d.unset(lines)
}

// tagLines maps a tag's set bits to the board's line characters '1'..'8'.
func tagLines(tag uint8) string {
	var lines []byte
	for bit := 0; bit < 8; bit++ {
		if tag&(1<<bit) != 0 {
			lines = append(lines, byte('1'+bit))
		}
	}
	return string(lines)
}

func (d *DLPIO8G) set(lines string) {
	if _, err := d.port.Write([]byte(lines)); err != nil {
		Log.Error().Err(err).Str("lines", lines).Msg("DLP set failed")
	}
}

// unset translates each line digit to the board's clear command for that
// line ('1'->'Q', '2'->'W', ... per the DLP-IO8-G command set).
func (d *DLPIO8G) unset(lines string) {
	cmd := []byte(lines)
	for i := range cmd {
		switch cmd[i] {
		case '1':
			cmd[i] = 'Q'
		case '2':
			cmd[i] = 'W'
		case '3':
			cmd[i] = 'E'
		case '4':
			cmd[i] = 'R'
		case '5':
			cmd[i] = 'T'
		case '6':
			cmd[i] = 'Y'
		case '7':
			cmd[i] = 'U'
		case '8':
			cmd[i] = 'I'
		}
	}
	if _, err := d.port.Write(cmd); err != nil {
		Log.Error().Err(err).Str("lines", lines).Msg("DLP unset failed")
	}
}

// Close releases the port.
func (d *DLPIO8G) Close() {
	if d.port != nil {
		d.port.Close()
	}
}
