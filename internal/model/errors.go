package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedHeight  = errors.New("unsupported label height")
	ErrInvalidItem        = errors.New("invalid print item")
	ErrNoUsablePrinter    = errors.New("no usable printer")
	ErrNotConnected       = errors.New("transport not connected")
	ErrTransportClosed    = errors.New("transport closed")
	ErrNotPaired          = errors.New("no wireless printer paired")
	ErrPairingUnsupported = errors.New("transport does not support pairing")
	ErrRetriesExhausted   = errors.New("reconnect retries exhausted")
	ErrDeviceLost         = errors.New("printer connection lost")
)

// JobError is a print job the printer side rejected.
type JobError struct {
	PrinterName string
	Message     string
}

func (e *JobError) Error() string {
	if e.PrinterName == "" {
		return fmt.Sprintf("print job rejected: %s", e.Message)
	}
	return fmt.Sprintf("print job rejected by %s: %s", e.PrinterName, e.Message)
}
