package port

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPort is the USB-CDC backend: it enumerates OS serial ports, filters
// to the known MTK VID/PID triples, and opens the matching device at the
// connection-type baud, 8N1.
type SerialPort struct {
	handle      serial.Port
	kind        ConnKind
	name        string
	readTimeout time.Duration
}

// FindMTKPorts lists attached serial ports whose USB VID/PID matches one of
// the known MTK triples.
func FindMTKPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var matches []*enumerator.PortDetails
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		vid, pid := parseHex16(p.VID), parseHex16(p.PID)
		if _, ok := KindForVIDPID(vid, pid); ok {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func parseHex16(s string) uint16 {
	var v uint16
	fmt.Sscanf(s, "%x", &v)
	return v
}

// OpenSerial opens a specific port name at the baud and framing the
// connection kind dictates.
func OpenSerial(portName string, kind ConnKind, readTimeout time.Duration) (*SerialPort, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	mode := &serial.Mode{
		BaudRate: kind.Baud(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	h, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := h.SetReadTimeout(readTimeout); err != nil {
		h.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &SerialPort{handle: h, kind: kind, name: portName, readTimeout: readTimeout}, nil
}

func (p *SerialPort) Write(ctx context.Context, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := p.handle.Write(buf[total:])
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		total += n
	}
	return nil
}

// ReadExact loops on reads until buf is full, retrying 0-byte reads. A
// per-call deadline derived from ctx is not available on the underlying
// library, so the port's configured read timeout bounds each individual
// read instead; the caller's context is checked between reads so a
// cancellation still unblocks promptly.
func (p *SerialPort) ReadExact(ctx context.Context, buf []byte) error {
	total := 0
	for total < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.handle.Read(buf[total:])
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue
		}
		total += n
	}
	return nil
}

func (p *SerialPort) Close() error {
	return p.handle.Close()
}

func (p *SerialPort) Kind() ConnKind { return p.kind }
func (p *SerialPort) Baud() int      { return p.kind.Baud() }
func (p *SerialPort) Name() string   { return p.name }
