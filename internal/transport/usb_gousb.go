package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type gousbDevice struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	config  *gousb.Config
	intf    *gousb.Interface
	out     *gousb.OutEndpoint
	product string
}

// OpenGoUSB opens the configured device through libusb, detaching any kernel
// driver, and claims its OUT endpoint.
func OpenGoUSB(_ context.Context, cfg model.USBConfig) (USBDevice, error) {
	d := &gousbDevice{ctx: gousb.NewContext()}

	dev, err := d.ctx.OpenDeviceWithVIDPID(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open USB device %04x:%04x: %w", cfg.VendorID, cfg.ProductID, err)
	}
	if dev == nil {
		d.Close()
		return nil, fmt.Errorf("USB device %04x:%04x not found", cfg.VendorID, cfg.ProductID)
	}
	d.dev = dev

	if err := dev.SetAutoDetach(true); err != nil {
		d.Close()
		return nil, fmt.Errorf("detach kernel driver: %w", err)
	}
	if d.config, err = dev.Config(cfg.Configuration); err != nil {
		d.Close()
		return nil, fmt.Errorf("select configuration %d: %w", cfg.Configuration, err)
	}
	if d.intf, err = d.config.Interface(cfg.Interface, 0); err != nil {
		d.Close()
		return nil, fmt.Errorf("claim interface %d: %w", cfg.Interface, err)
	}
	if d.out, err = d.intf.OutEndpoint(cfg.Endpoint); err != nil {
		d.Close()
		return nil, fmt.Errorf("open endpoint %d: %w", cfg.Endpoint, err)
	}

	d.product, _ = dev.Product()
	return d, nil
}

func (d *gousbDevice) Write(p []byte) (int, error) {
	n, err := d.out.Write(p)
	if err != nil && deviceLost(err) {
		err = fmt.Errorf("%w: %w", model.ErrDeviceLost, err)
	}
	return n, err
}

// deviceLost reports libusb failures that leave the handle unusable.
func deviceLost(err error) bool {
	for _, target := range []error{
		gousb.ErrorNoDevice,
		gousb.ErrorIO,
		gousb.ErrorPipe,
		gousb.TransferNoDevice,
		gousb.TransferStall,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (d *gousbDevice) Product() string {
	return d.product
}

func (d *gousbDevice) Close() error {
	var err error
	if d.intf != nil {
		d.intf.Close()
	}
	if d.config != nil {
		err = d.config.Close()
	}
	if d.dev != nil {
		if cerr := d.dev.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := d.ctx.Close(); err == nil {
		err = cerr
	}
	return err
}
