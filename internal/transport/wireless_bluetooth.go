package transport

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type bluetoothRadio struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	// the adapter runs one scan at a time
	scanMu sync.Mutex

	linksMu sync.Mutex
	links   map[string]*bluetoothLink
}

// NewBluetoothRadio uses the host's default Bluetooth adapter.
func NewBluetoothRadio() Radio {
	return &bluetoothRadio{
		adapter: bluetooth.DefaultAdapter,
		links:   map[string]*bluetoothLink{},
	}
}

func (r *bluetoothRadio) enable() error {
	r.enableOnce.Do(func() {
		// must be installed before Enable
		r.adapter.SetConnectHandler(r.connectionChanged)
		r.enableErr = r.adapter.Enable()
	})
	if r.enableErr != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", r.enableErr)
	}
	return nil
}

// scan runs until stop returns true, the timeout passes or ctx ends.
func (r *bluetoothRadio) scan(ctx context.Context, timeout time.Duration, stop func(bluetooth.ScanResult) bool) error {
	if err := r.enable(); err != nil {
		return err
	}
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go func() {
		<-ctx.Done()
		r.adapter.StopScan()
	}()

	return r.adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
		if stop(res) {
			a.StopScan()
		}
	})
}

func (r *bluetoothRadio) Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error) {
	seen := map[string]Peripheral{}
	var mu sync.Mutex
	err := r.scan(ctx, timeout, func(res bluetooth.ScanResult) bool {
		mu.Lock()
		defer mu.Unlock()
		addr := res.Address.String()
		p := seen[addr]
		p.Address, p.RSSI = addr, res.RSSI
		if name := res.LocalName(); name != "" {
			p.Name = name
		}
		seen[addr] = p
		return false
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Peripheral, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Peripheral) int {
		return cmp.Or(cmp.Compare(b.RSSI, a.RSSI), strings.Compare(a.Address, b.Address))
	})
	return out, nil
}

func (r *bluetoothRadio) Connect(ctx context.Context, address, service, characteristic string, timeout time.Duration) (Link, error) {
	svcUUID, err := bluetooth.ParseUUID(service)
	if err != nil {
		return nil, fmt.Errorf("service uuid: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(characteristic)
	if err != nil {
		return nil, fmt.Errorf("characteristic uuid: %w", err)
	}

	var (
		target bluetooth.Address
		found  bool
	)
	err = r.scan(ctx, timeout, func(res bluetooth.ScanResult) bool {
		if strings.EqualFold(res.Address.String(), address) {
			target, found = res.Address, true
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("printer %s not in range", address)
	}

	dev, err := r.adapter.Connect(target, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	services, err := dev.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		dev.Disconnect()
		return nil, fmt.Errorf("discover print service %s: %v", service, err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		dev.Disconnect()
		return nil, fmt.Errorf("discover print characteristic %s: %v", characteristic, err)
	}
	char := chars[0]
	link := &bluetoothLink{
		radio:      r,
		address:    strings.ToUpper(target.String()),
		write:      char.WriteWithoutResponse,
		disconnect: dev.Disconnect,
		lost:       make(chan struct{}),
	}
	r.track(link)
	return link, nil
}

// connectionChanged is the adapter's connect handler. Not every platform
// reports disconnects through it; a failed write marks the link lost too.
func (r *bluetoothRadio) connectionChanged(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	r.linksMu.Lock()
	l := r.links[strings.ToUpper(dev.Address.String())]
	r.linksMu.Unlock()
	if l != nil {
		l.markLost()
	}
}

func (r *bluetoothRadio) track(l *bluetoothLink) {
	r.linksMu.Lock()
	defer r.linksMu.Unlock()
	if old := r.links[l.address]; old != nil {
		old.markLost()
	}
	r.links[l.address] = l
}

func (r *bluetoothRadio) forget(l *bluetoothLink) {
	r.linksMu.Lock()
	defer r.linksMu.Unlock()
	if r.links[l.address] == l {
		delete(r.links, l.address)
	}
}

type bluetoothLink struct {
	radio      *bluetoothRadio
	address    string
	write      func([]byte) (int, error)
	disconnect func() error

	lostOnce sync.Once
	lost     chan struct{}
}

func (l *bluetoothLink) Write(p []byte) (int, error) {
	select {
	case <-l.lost:
		return 0, fmt.Errorf("%w: %s", model.ErrDeviceLost, l.address)
	default:
	}
	n, err := l.write(p)
	if err != nil {
		l.markLost()
		return n, fmt.Errorf("%w: %w", model.ErrDeviceLost, err)
	}
	return n, nil
}

func (l *bluetoothLink) Lost() <-chan struct{} { return l.lost }

func (l *bluetoothLink) markLost() {
	l.lostOnce.Do(func() { close(l.lost) })
}

func (l *bluetoothLink) Close() error {
	l.markLost()
	l.radio.forget(l)
	return l.disconnect()
}
