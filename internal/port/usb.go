package port

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/gousb"
)

// USBPort is the raw bulk USB backend: it bypasses any CDC serial driver and
// talks to the device's bulk endpoints directly via gousb, exactly as the
// connection-type VID/PID pairs in KnownVIDPIDs dictate.
type USBPort struct {
	ctx      *gousb.Context
	device   *gousb.Device
	config   *gousb.Config
	intf     *gousb.Interface
	ctrlIntf *gousb.Interface
	epIn     *gousb.InEndpoint
	epOut    *gousb.OutEndpoint

	kind        ConnKind
	name        string
	readTimeout time.Duration
}

// OpenUSB enumerates attached devices for the known MTK VID/PID triples,
// opens the first match, detaches any kernel driver on interfaces 0 and 1,
// claims both, and discovers the first bulk IN/OUT endpoints.
func OpenUSB(readTimeout time.Duration) (*USBPort, error) {
	ctx := gousb.NewContext()

	var found *gousb.Device
	var kind ConnKind
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		k, ok := KindForVIDPID(uint16(desc.Vendor), uint16(desc.Product))
		if ok && found == nil {
			kind = k
			return true
		}
		return false
	})
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("enumerate USB devices: %w", err)
	}
	for _, d := range devices {
		if found == nil {
			found = d
		} else {
			d.Close()
		}
	}
	if found == nil {
		ctx.Close()
		return nil, fmt.Errorf("no MTK USB device found")
	}

	// Auto-detach lets the kernel driver be released on claim and
	// reattached on release, matching the non-Windows detach/claim sequence
	// of interfaces 0 and 1.
	found.SetAutoDetach(true)

	cfg, err := found.Config(1)
	if err != nil {
		found.Close()
		ctx.Close()
		return nil, fmt.Errorf("set USB config: %w", err)
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		found.Close()
		ctx.Close()
		return nil, fmt.Errorf("claim USB interface 0: %w", err)
	}

	inEP, outEP, err := findBulkEndpoints(intf)
	if err != nil {
		intf.Close()
		cfg.Close()
		found.Close()
		ctx.Close()
		return nil, err
	}

	// Interface 1 is the CDC-like control interface Windows hosts drive with
	// SET_LINE_CODING/SET_CONTROL_LINE_STATE; no bulk transfer touches it, but
	// the transport still claims it so the kernel doesn't keep it bound.
	ctrlIntf, err := cfg.Interface(1, 0)
	if err != nil {
		intf.Close()
		cfg.Close()
		found.Close()
		ctx.Close()
		return nil, fmt.Errorf("claim USB interface 1: %w", err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	p := &USBPort{
		ctx:         ctx,
		device:      found,
		config:      cfg,
		intf:        intf,
		ctrlIntf:    ctrlIntf,
		epIn:        inEP,
		epOut:       outEP,
		kind:        kind,
		name:        fmt.Sprintf("USB:%04x:%04x", found.Desc.Vendor, found.Desc.Product),
		readTimeout: readTimeout,
	}

	if runtime.GOOS == "windows" {
		_ = p.setupWindowsCDC(context.Background())
	}

	return p, nil
}

func findBulkEndpoints(intf *gousb.Interface) (*gousb.InEndpoint, *gousb.OutEndpoint, error) {
	var inAddr, outAddr gousb.EndpointAddress
	var haveIn, haveOut bool
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && !haveIn {
			inAddr = ep.Address
			haveIn = true
		}
		if ep.Direction == gousb.EndpointDirectionOut && !haveOut {
			outAddr = ep.Address
			haveOut = true
		}
	}
	if !haveIn || !haveOut {
		return nil, nil, fmt.Errorf("no bulk endpoints on active configuration")
	}
	in, err := intf.InEndpoint(int(inAddr.Number()))
	if err != nil {
		return nil, nil, fmt.Errorf("open bulk IN endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(int(outAddr.Number()))
	if err != nil {
		return nil, nil, fmt.Errorf("open bulk OUT endpoint: %w", err)
	}
	return in, out, nil
}

// setupWindowsCDC issues the CDC class requests a Windows host needs before
// the bulk endpoints will pass traffic. Best-effort: failures are not fatal,
// matching the tolerant bring-up on real devices where the class requests
// are sometimes rejected by a composite driver.
func (p *USBPort) setupWindowsCDC(ctx context.Context) error {
	const (
		cdcInterface        = 1
		setLineCoding        = 0x20
		setControlLineState  = 0x22
		controlLineStateBits = 0x0003
	)
	lineCoding := []byte{0x00, 0x00, 0x0E, 0x00, 0x00, 0x00, 0x08}

	_, _ = p.device.Control(
		gousb.ControlOut|gousb.ControlClass|gousb.ControlInterface,
		setLineCoding, 0, cdcInterface, lineCoding,
	)
	_, _ = p.device.Control(
		gousb.ControlOut|gousb.ControlClass|gousb.ControlInterface,
		setControlLineState, controlLineStateBits, cdcInterface, nil,
	)
	return nil
}

func (p *USBPort) Write(ctx context.Context, buf []byte) error {
	n, err := p.epOut.WriteContext(ctx, buf)
	if err != nil {
		return fmt.Errorf("usb bulk write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("usb bulk write: short write %d/%d", n, len(buf))
	}
	return nil
}

// ReadExact loops on bulk reads until buf is full. A 0-byte read is retried
// rather than treated as EOF, matching devices that occasionally answer a
// ZLP mid-transfer.
func (p *USBPort) ReadExact(ctx context.Context, buf []byte) error {
	total := 0
	for total < len(buf) {
		readCtx, cancel := context.WithTimeout(ctx, p.readTimeout)
		n, err := p.epIn.ReadContext(readCtx, buf[total:])
		cancel()
		if err != nil {
			if readCtx.Err() != nil {
				return fmt.Errorf("usb bulk read timed out: %w", err)
			}
			return fmt.Errorf("usb bulk read: %w", err)
		}
		if n == 0 {
			continue
		}
		total += n
	}
	return nil
}

func (p *USBPort) Close() error {
	if p.ctrlIntf != nil {
		p.ctrlIntf.Close()
	}
	if p.intf != nil {
		p.intf.Close()
	}
	if p.config != nil {
		p.config.Close()
	}
	if p.device != nil {
		p.device.Close()
	}
	if p.ctx != nil {
		p.ctx.Close()
	}
	return nil
}

func (p *USBPort) Kind() ConnKind { return p.kind }
func (p *USBPort) Baud() int      { return p.kind.Baud() }
func (p *USBPort) Name() string   { return p.name }
