package model

import "time"

// --- Configuration Structures ---

type Config struct {
	Transport   string         `yaml:"transport"`
	LabelHeight int            `yaml:"labelHeight"`
	Initial     string         `yaml:"initial"`
	Catalog     string         `yaml:"catalog"`
	LogFile     string         `yaml:"logFile"`
	Bridge      BridgeConfig   `yaml:"bridge"`
	USB         USBConfig      `yaml:"usb"`
	Wireless    WirelessConfig `yaml:"wireless"`
	Retry       RetryConfig    `yaml:"retry"`
	Log         LogConfig      `yaml:"log"`
}

type BridgeConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	JobTimeout       time.Duration `yaml:"jobTimeout"`
}

type USBConfig struct {
	VendorID      uint16 `yaml:"vendorId"`
	ProductID     uint16 `yaml:"productId"`
	Configuration int    `yaml:"configuration"`
	Interface     int    `yaml:"interface"`
	Endpoint      int    `yaml:"endpoint"`
	Name          string `yaml:"name"`
}

// Configured reports whether the user granted a device.
func (c USBConfig) Configured() bool {
	return c.VendorID != 0 && c.ProductID != 0
}

type WirelessConfig struct {
	Address            string        `yaml:"address"`
	Name               string        `yaml:"name"`
	ServiceUUID        string        `yaml:"serviceUUID"`
	CharacteristicUUID string        `yaml:"characteristicUUID"`
	ChunkSize          int           `yaml:"chunkSize"`
	PrintWidth         int           `yaml:"printWidth"`
	ScanTimeout        time.Duration `yaml:"scanTimeout"`
}

// RetryConfig is the reconnection policy shared by every transport.
// MaxRetries of zero retries forever.
type RetryConfig struct {
	Delay          time.Duration `yaml:"delay"`
	MaxRetries     int           `yaml:"maxRetries"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PrinterState is persisted next to the config: the user's explicit choice and
// the last printer list a transport enumerated.
type PrinterState struct {
	Selected string              `json:"selected,omitempty"`
	Known    []PrinterDescriptor `json:"known,omitempty"`
}
