package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/raster"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

const (
	// Service and characteristic exposed by most generic BLE receipt printers.
	DefaultServiceUUID        = "000018f0-0000-1000-8000-00805f9b34fb"
	DefaultCharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"

	defaultChunkSize   = 100
	defaultScanTimeout = 10 * time.Second
	defaultPrintWidth  = 384
)

// Peripheral is a printer seen while scanning.
type Peripheral struct {
	Address string
	Name    string
	RSSI    int16
}

// Link is a connected GATT characteristic accepting writes without response.
// Lost is closed once the peripheral disconnects or the link is closed.
type Link interface {
	io.WriteCloser
	Lost() <-chan struct{}
}

// Radio is the Bluetooth LE stack.
type Radio interface {
	Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error)
	Connect(ctx context.Context, address, service, characteristic string, timeout time.Duration) (Link, error)
}

// WirelessClient prints raster labels on a Bluetooth LE printer. It never
// connects on its own until the user has scanned and paired a printer.
type WirelessClient struct {
	cfg   model.WirelessConfig
	radio Radio
	log   *slog.Logger
	m     *machine[Link]
	jobMu sync.Mutex

	mu      sync.Mutex
	address string
	name    string
}

func NewWirelessClient(cfg model.WirelessConfig, retry model.RetryConfig, log *slog.Logger, radio Radio) *WirelessClient {
	if cfg.ServiceUUID == "" {
		cfg.ServiceUUID = DefaultServiceUUID
	}
	if cfg.CharacteristicUUID == "" {
		cfg.CharacteristicUUID = DefaultCharacteristicUUID
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = defaultScanTimeout
	}
	if cfg.PrintWidth <= 0 {
		cfg.PrintWidth = defaultPrintWidth
	}
	if radio == nil {
		radio = NewBluetoothRadio()
	}
	if log == nil {
		log = slog.Default()
	}
	w := &WirelessClient{
		cfg:     cfg,
		radio:   radio,
		log:     log.With("transport", string(KindWireless)),
		address: cfg.Address,
		name:    cfg.Name,
	}
	w.m = newMachine[Link](KindWireless, retry, log, w.open)
	w.m.onConnected = func(gen uint64, l Link) { go w.watch(gen, l) }
	return w
}

func (w *WirelessClient) Kind() Kind               { return KindWireless }
func (w *WirelessClient) PayloadKind() PayloadKind { return PayloadRaster }
func (w *WirelessClient) Reconnect()               { w.m.reconnect() }
func (w *WirelessClient) Close() error             { return w.m.close() }
func (w *WirelessClient) Status() Status           { return w.m.status() }

// Start connects to a previously paired printer. Without one the client stays
// idle until Pair.
func (w *WirelessClient) Start() {
	if w.paired() == "" {
		w.log.Info("No wireless printer paired, scan and pair first")
		return
	}
	w.m.start()
}

func (w *WirelessClient) WaitReady(ctx context.Context) error {
	if w.paired() == "" {
		return model.ErrNotPaired
	}
	return w.m.waitReady(ctx)
}

// Scan lists nearby printers.
func (w *WirelessClient) Scan(ctx context.Context) ([]Peripheral, error) {
	w.log.Info("Scanning", "timeout", w.cfg.ScanTimeout)
	found, err := w.radio.Scan(ctx, w.cfg.ScanTimeout)
	if err != nil {
		return nil, fmt.Errorf("bluetooth scan: %w", err)
	}
	return found, nil
}

// Pair makes address the printer to use and connects to it.
func (w *WirelessClient) Pair(ctx context.Context, p Peripheral) error {
	address := strings.TrimSpace(p.Address)
	if address == "" {
		return fmt.Errorf("pair: empty address")
	}
	w.mu.Lock()
	w.address, w.name = address, p.Name
	w.mu.Unlock()

	w.log.Info("Pairing", "address", address, "name", p.Name)
	if w.m.status().State == StateIdle {
		w.m.start()
	} else {
		w.m.reconnect()
	}
	return w.m.waitReady(ctx)
}

// Paired returns the paired printer, if any.
func (w *WirelessClient) Paired() Peripheral {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Peripheral{Address: w.address, Name: w.name}
}

func (w *WirelessClient) paired() string {
	return w.Paired().Address
}

func (w *WirelessClient) open(ctx context.Context) (Link, enumeration, error) {
	p := w.Paired()
	if p.Address == "" {
		return nil, enumeration{}, model.ErrNotPaired
	}
	link, err := w.radio.Connect(ctx, p.Address, w.cfg.ServiceUUID, w.cfg.CharacteristicUUID, w.cfg.ScanTimeout)
	if err != nil {
		return nil, enumeration{}, fmt.Errorf("connect to %s: %w", p.Address, err)
	}
	name := p.Name
	if name == "" {
		name = p.Address
	}
	return link, enumeration{
		printers: []model.PrinterDescriptor{{
			Name:      name,
			State:     model.PrinterStatePaired,
			Location:  p.Address,
			IsDefault: true,
		}},
		defaultPrinter: name,
	}, nil
}

// watch drops the connection of gen when its peripheral goes away. A link
// retired by reconnect or close is closed too, so the watcher always exits.
func (w *WirelessClient) watch(gen uint64, l Link) {
	<-l.Lost()
	w.m.drop(gen, fmt.Errorf("%w: %s", model.ErrDeviceLost, w.paired()))
}

// Send converts the label image to an ESC/POS raster and writes it in
// chunks sized for the link.
func (w *WirelessClient) Send(ctx context.Context, p Payload, printerName string) error {
	if err := checkPayload(w, p); err != nil {
		return err
	}
	link, gen, err := w.m.current()
	if err != nil {
		return err
	}

	img, err := raster.DecodePNG(p.Data)
	if err != nil {
		return err
	}
	img = raster.ResizeToWidth(img, w.cfg.PrintWidth)
	buf := FrameRaster(raster.ToESCPOS(img))

	if err := ctx.Err(); err != nil {
		return err
	}
	w.jobMu.Lock()
	defer w.jobMu.Unlock()

	// A label that started printing is finished even if ctx ends meanwhile.
	for off := 0; off < len(buf); off += w.cfg.ChunkSize {
		end := min(off+w.cfg.ChunkSize, len(buf))
		if _, err := link.Write(buf[off:end]); err != nil {
			err = fmt.Errorf("write to wireless printer: %w", err)
			if errors.Is(err, model.ErrDeviceLost) {
				w.m.drop(gen, err)
			} else {
				w.m.degrade(gen, err)
			}
			return err
		}
	}
	w.m.restore(gen)
	w.log.Info("Job printed", "printer", printerName, "bytes", len(buf))
	return nil
}
