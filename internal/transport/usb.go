package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// USBDevice is an opened printer with a claimed bulk OUT endpoint.
type USBDevice interface {
	io.WriteCloser
	Product() string
}

type USBOpener func(ctx context.Context, cfg model.USBConfig) (USBDevice, error)

// USBClient prints control streams on the single USB device the user granted.
type USBClient struct {
	cfg    model.USBConfig
	openFn USBOpener
	log    *slog.Logger
	m      *machine[USBDevice]
	jobMu  sync.Mutex
}

func NewUSBClient(cfg model.USBConfig, retry model.RetryConfig, log *slog.Logger, open USBOpener) *USBClient {
	if cfg.Configuration == 0 {
		cfg.Configuration = 1
	}
	if cfg.Endpoint == 0 {
		cfg.Endpoint = 1
	}
	if open == nil {
		open = OpenGoUSB
	}
	if log == nil {
		log = slog.Default()
	}
	u := &USBClient{cfg: cfg, openFn: open, log: log.With("transport", string(KindUSB))}
	u.m = newMachine[USBDevice](KindUSB, retry, log, u.open)
	return u
}

func (u *USBClient) Kind() Kind               { return KindUSB }
func (u *USBClient) PayloadKind() PayloadKind { return PayloadStream }
func (u *USBClient) Reconnect()               { u.m.reconnect() }
func (u *USBClient) Close() error             { return u.m.close() }
func (u *USBClient) Status() Status           { return u.m.status() }

// Start connects to the granted device. Without one the client stays idle.
func (u *USBClient) Start() {
	if !u.cfg.Configured() {
		u.log.Warn("No USB printer configured, run setup to grant a device")
		return
	}
	u.m.start()
}

func (u *USBClient) WaitReady(ctx context.Context) error {
	if !u.cfg.Configured() {
		return fmt.Errorf("%w: no USB printer configured", model.ErrNotConnected)
	}
	return u.m.waitReady(ctx)
}

func (u *USBClient) open(ctx context.Context) (USBDevice, enumeration, error) {
	dev, err := u.openFn(ctx, u.cfg)
	if err != nil {
		return nil, enumeration{}, err
	}
	name := u.cfg.Name
	if name == "" {
		name = dev.Product()
	}
	if name == "" {
		name = fmt.Sprintf("USB %04x:%04x", u.cfg.VendorID, u.cfg.ProductID)
	}
	return dev, enumeration{
		printers: []model.PrinterDescriptor{{
			Name:      name,
			State:     model.PrinterStateGranted,
			Location:  fmt.Sprintf("usb:%04x:%04x", u.cfg.VendorID, u.cfg.ProductID),
			IsDefault: true,
		}},
		defaultPrinter: name,
	}, nil
}

// Send writes one framed control stream. The device is the only printer, so
// printerName is informational.
func (u *USBClient) Send(ctx context.Context, p Payload, printerName string) error {
	if err := checkPayload(u, p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, gen, err := u.m.current()
	if err != nil {
		return err
	}

	u.jobMu.Lock()
	defer u.jobMu.Unlock()

	buf := FrameStream(p.Data)
	n, err := dev.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		err = fmt.Errorf("write to USB printer: %w", err)
		if errors.Is(err, model.ErrDeviceLost) {
			// the handle is dead; reopen the device
			u.m.drop(gen, err)
		} else {
			u.m.degrade(gen, err)
		}
		return err
	}
	u.m.restore(gen)
	u.log.Info("Job printed", "printer", printerName, "bytes", n)
	return nil
}
