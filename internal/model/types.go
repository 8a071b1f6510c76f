package model

type MessageType string

const (
	MessageTypeConnection MessageType = "connection"
	MessageTypeError      MessageType = "error"
)

// --- Bridge Socket Messages ---

// BridgeMessage is the envelope pushed by the local print bridge. Enumeration and
// fault messages carry a Type; job completions carry Success instead.
type BridgeMessage struct {
	Type           MessageType `json:"type,omitempty"`
	Printers       []string    `json:"printers,omitempty"`
	DefaultPrinter string      `json:"defaultPrinter,omitempty"`
	Success        *bool       `json:"success,omitempty"`
	PrinterName    string      `json:"printerName,omitempty"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	Message        string      `json:"message,omitempty"`
}

// IsJobResult reports whether the envelope is a job completion.
func (m BridgeMessage) IsJobResult() bool {
	return m.Type == "" && m.Success != nil
}

// PrinterDescriptor is produced by transport enumeration only.
type PrinterDescriptor struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Location  string `json:"location,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

const (
	PrinterStateReady   = "ready"
	PrinterStatePaired  = "paired"
	PrinterStateGranted = "granted"
)

// FallbackPrinterName is a placeholder some bridges report; it is never a print target.
const FallbackPrinterName = "fallback"
