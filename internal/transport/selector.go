package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// Platform describes the host once, at startup. The selector never probes the
// environment itself.
type Platform struct {
	OS              string
	Arch            string
	BridgeReachable bool
	USBConfigured   bool
}

func (p Platform) Android() bool {
	return p.OS == "android"
}

// Choose returns the backend for a platform: the configured transport when set,
// otherwise the bridge when it answers, then USB when a device is granted or on
// Android, then wireless.
func Choose(p Platform, cfg model.Config) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(cfg.Transport))); k {
	case "", KindAuto:
	case KindBridge, KindUSB, KindWireless:
		return k, nil
	default:
		return "", fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	switch {
	case p.BridgeReachable:
		return KindBridge, nil
	case p.USBConfigured || p.Android():
		return KindUSB, nil
	default:
		return KindWireless, nil
	}
}

type selectorOptions struct {
	log       *slog.Logger
	usbOpener USBOpener
	radio     Radio
}

type Option func(*selectorOptions)

func WithLogger(log *slog.Logger) Option {
	return func(o *selectorOptions) { o.log = log }
}

func WithUSBOpener(open USBOpener) Option {
	return func(o *selectorOptions) { o.usbOpener = open }
}

func WithRadio(r Radio) Option {
	return func(o *selectorOptions) { o.radio = r }
}

// Selector is the single entry point to printing. It wraps exactly one
// backend, chosen at construction.
type Selector struct {
	platform Platform
	backend  Transport
	log      *slog.Logger
}

var _ Transport = (*Selector)(nil)

func NewSelector(p Platform, cfg model.Config, opts ...Option) (*Selector, error) {
	o := selectorOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	kind, err := Choose(p, cfg)
	if err != nil {
		return nil, err
	}

	var backend Transport
	switch kind {
	case KindBridge:
		backend = NewBridgeClient(cfg.Bridge, cfg.Retry, o.log)
	case KindUSB:
		backend = NewUSBClient(cfg.USB, cfg.Retry, o.log, o.usbOpener)
	case KindWireless:
		backend = NewWirelessClient(cfg.Wireless, cfg.Retry, o.log, o.radio)
	}
	o.log.Info("Transport selected", "transport", string(kind), "os", p.OS, "arch", p.Arch)
	return &Selector{platform: p, backend: backend, log: o.log}, nil
}

// NewSelectorFor wraps an existing backend.
func NewSelectorFor(p Platform, backend Transport) *Selector {
	return &Selector{platform: p, backend: backend, log: slog.Default()}
}

func (s *Selector) Platform() Platform       { return s.platform }
func (s *Selector) Backend() Transport       { return s.backend }
func (s *Selector) Kind() Kind               { return s.backend.Kind() }
func (s *Selector) PayloadKind() PayloadKind { return s.backend.PayloadKind() }
func (s *Selector) Start()                   { s.backend.Start() }
func (s *Selector) Reconnect()               { s.backend.Reconnect() }
func (s *Selector) Close() error             { return s.backend.Close() }
func (s *Selector) Status() Status           { return s.backend.Status() }

func (s *Selector) WaitReady(ctx context.Context) error {
	return s.backend.WaitReady(ctx)
}

func (s *Selector) Send(ctx context.Context, p Payload, printerName string) error {
	return s.backend.Send(ctx, p, printerName)
}

func (s *Selector) IsConnected() bool {
	return s.Status().State.Usable()
}

func (s *Selector) Printers() []model.PrinterDescriptor {
	return s.Status().Printers
}

func (s *Selector) DefaultPrinter() string {
	return s.Status().DefaultPrinter
}

// Loading reports whether a connection attempt is in progress.
func (s *Selector) Loading() bool {
	return s.Status().State == StateConnecting
}

func (s *Selector) LastError() error {
	return s.Status().LastError
}

// Resolve picks the print target for an explicit selection.
func (s *Selector) Resolve(selected string) (string, error) {
	return Resolve(s.backend, selected)
}

// Scan lists nearby printers on wireless backends.
func (s *Selector) Scan(ctx context.Context) ([]Peripheral, error) {
	w, ok := s.backend.(*WirelessClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrPairingUnsupported, s.Kind())
	}
	return w.Scan(ctx)
}

// Pair connects a wireless backend to the given printer.
func (s *Selector) Pair(ctx context.Context, p Peripheral) error {
	w, ok := s.backend.(*WirelessClient)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrPairingUnsupported, s.Kind())
	}
	return w.Pair(ctx, p)
}
