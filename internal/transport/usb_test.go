package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type fakeUSB struct {
	mu      sync.Mutex
	written bytes.Buffer
	failing bool
	gone    bool
	closed  bool
}

func (d *fakeUSB) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gone {
		return 0, fmt.Errorf("%w: LIBUSB_ERROR_NO_DEVICE", model.ErrDeviceLost)
	}
	if d.failing {
		return 0, errors.New("pipe error")
	}
	return d.written.Write(p)
}

func (d *fakeUSB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeUSB) Product() string { return "TM-T20" }

func (d *fakeUSB) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeUSB) setFailing(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing = v
}

var grantedUSB = model.USBConfig{VendorID: 0x04b8, ProductID: 0x0e15}

func startUSB(t *testing.T, dev *fakeUSB) *USBClient {
	t.Helper()
	u := NewUSBClient(grantedUSB, testPolicy(), quietLogger(), func(context.Context, model.USBConfig) (USBDevice, error) {
		return dev, nil
	})
	t.Cleanup(func() { u.Close() })
	u.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, u.WaitReady(ctx))
	return u
}

func TestUSBGrantedDeviceIsSolePrinter(t *testing.T) {
	u := startUSB(t, &fakeUSB{})

	st := u.Status()
	require.Len(t, st.Printers, 1)
	assert.Equal(t, "TM-T20", st.Printers[0].Name)
	assert.Equal(t, model.PrinterStateGranted, st.Printers[0].State)
	assert.Equal(t, "usb:04b8:0e15", st.Printers[0].Location)
	assert.Equal(t, "TM-T20", st.DefaultPrinter)
}

func TestUSBSendFramesStream(t *testing.T) {
	dev := &fakeUSB{}
	u := startUSB(t, dev)

	require.NoError(t, u.Send(context.Background(), Payload{Kind: PayloadStream, Data: []byte("Soup\n")}, "TM-T20"))

	want := []byte("\x1b@\x1b!\x00Soup\n\x1bd\x03\x1dVA\x00")
	assert.Equal(t, want, dev.written.Bytes())
}

func TestUSBWriteFailureDegrades(t *testing.T) {
	dev := &fakeUSB{}
	u := startUSB(t, dev)
	payload := Payload{Kind: PayloadStream, Data: []byte("x")}

	dev.setFailing(true)
	assert.Error(t, u.Send(context.Background(), payload, ""))
	assert.Equal(t, StateDegraded, u.Status().State)

	dev.setFailing(false)
	require.NoError(t, u.Send(context.Background(), payload, ""))
	assert.Equal(t, StateConnected, u.Status().State)
}

func TestUSBRejectsRasterPayload(t *testing.T) {
	u := startUSB(t, &fakeUSB{})
	assert.Error(t, u.Send(context.Background(), Payload{Kind: PayloadRaster, Data: []byte("png")}, ""))
}

func TestUSBWithoutGrantStaysIdle(t *testing.T) {
	u := NewUSBClient(model.USBConfig{}, testPolicy(), quietLogger(), func(context.Context, model.USBConfig) (USBDevice, error) {
		t.Fatal("opener must not run without a granted device")
		return nil, nil
	})
	defer u.Close()

	u.Start()
	assert.Equal(t, StateIdle, u.Status().State)
	assert.ErrorIs(t, u.WaitReady(context.Background()), model.ErrNotConnected)
}

func TestUSBReconnectClosesDevice(t *testing.T) {
	first := &fakeUSB{}
	second := &fakeUSB{}
	devices := []*fakeUSB{first, second}
	var mu sync.Mutex

	u := NewUSBClient(grantedUSB, testPolicy(), quietLogger(), func(context.Context, model.USBConfig) (USBDevice, error) {
		mu.Lock()
		defer mu.Unlock()
		d := devices[0]
		devices = devices[1:]
		return d, nil
	})
	defer u.Close()
	u.Start()
	require.Eventually(t, func() bool { return u.Status().State == StateConnected }, time.Second, time.Millisecond)

	u.Reconnect()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(devices) == 0 && u.Status().State == StateConnected
	}, time.Second, time.Millisecond)

	first.mu.Lock()
	assert.True(t, first.closed)
	first.mu.Unlock()
	second.mu.Lock()
	assert.False(t, second.closed)
	second.mu.Unlock()
}

func TestUSBLostDeviceReconnects(t *testing.T) {
	first := &fakeUSB{gone: true}
	second := &fakeUSB{}

	var mu sync.Mutex
	opens := 0
	unplugged := true
	u := NewUSBClient(grantedUSB, testPolicy(), quietLogger(), func(context.Context, model.USBConfig) (USBDevice, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		switch {
		case opens == 1:
			return first, nil
		case unplugged:
			return nil, errors.New("USB device 04b8:0e15 not found")
		default:
			return second, nil
		}
	})
	t.Cleanup(func() { u.Close() })

	u.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, u.WaitReady(ctx))

	payload := Payload{Kind: PayloadStream, Data: []byte("x")}
	err := u.Send(context.Background(), payload, "")
	require.ErrorIs(t, err, model.ErrDeviceLost)
	assert.True(t, first.isClosed())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opens >= 2
	}, time.Second, time.Millisecond)
	assert.NotEqual(t, StateConnected, u.Status().State)

	mu.Lock()
	unplugged = false
	mu.Unlock()
	require.Eventually(t, func() bool { return u.Status().State == StateConnected }, time.Second, time.Millisecond)

	require.NoError(t, u.Send(context.Background(), payload, ""))
	assert.Equal(t, FrameStream([]byte("x")), second.written.Bytes())
}

func TestDeviceLostClassifiesLibusbErrors(t *testing.T) {
	assert.True(t, deviceLost(gousb.ErrorNoDevice))
	assert.True(t, deviceLost(fmt.Errorf("bulk write: %w", gousb.ErrorIO)))
	assert.True(t, deviceLost(gousb.TransferNoDevice))
	assert.False(t, deviceLost(gousb.ErrorTimeout))
	assert.False(t, deviceLost(errors.New("short write")))
}
