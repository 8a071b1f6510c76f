// Package transport delivers rendered labels to printers over the local bridge
// socket, a directly attached USB device, or a Bluetooth LE printer. Every
// backend shares one connection state machine and is reached through a
// Selector, so callers never branch on the transport in use.
package transport

import (
	"context"
	"fmt"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDegraded
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Usable reports whether jobs can be submitted in this state.
func (s State) Usable() bool {
	return s == StateConnected || s == StateDegraded
}

type Kind string

const (
	KindAuto     Kind = "auto"
	KindBridge   Kind = "bridge"
	KindUSB      Kind = "usb"
	KindWireless Kind = "wireless"
)

// PayloadKind is the renderer output a backend accepts.
type PayloadKind int

const (
	PayloadRaster PayloadKind = iota
	PayloadStream
)

func (k PayloadKind) String() string {
	if k == PayloadStream {
		return "stream"
	}
	return "raster"
}

// Payload is one rendered label. Raster data is PNG encoded; stream data is
// an ESC/POS control stream.
type Payload struct {
	Kind PayloadKind
	Data []byte
}

// Status is a snapshot of a transport connection.
type Status struct {
	Kind           Kind
	State          State
	Printers       []model.PrinterDescriptor
	DefaultPrinter string
	LastError      error
	Retries        int
}

type Transport interface {
	Kind() Kind
	PayloadKind() PayloadKind
	// Start begins connecting in the background. It never blocks.
	Start()
	Send(ctx context.Context, p Payload, printerName string) error
	Reconnect()
	Close() error
	Status() Status
	// WaitReady blocks until the transport can accept jobs, gives up
	// retrying, or ctx ends.
	WaitReady(ctx context.Context) error
}

func checkPayload(t Transport, p Payload) error {
	if p.Kind != t.PayloadKind() {
		return fmt.Errorf("%s transport expects %s payload, got %s", t.Kind(), t.PayloadKind(), p.Kind)
	}
	if len(p.Data) == 0 {
		return fmt.Errorf("%s transport: empty payload", t.Kind())
	}
	return nil
}
