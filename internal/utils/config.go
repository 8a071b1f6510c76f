package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
)

const AppDir = "perfect-menu-labels"

// --- Paths ---

func DefaultConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(AppDir, "config.yaml"))
}

// PrintersPath keeps the printer state file next to the config.
func PrintersPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "printers.json")
}

func DefaultLogPath() (string, error) {
	return xdg.StateFile(filepath.Join(AppDir, "printed.jsonl"))
}

// --- Configuration ---

func DefaultConfig() model.Config {
	return model.Config{
		Transport:   string(transport.KindAuto),
		LabelHeight: 31,
		Bridge: model.BridgeConfig{
			URL: transport.DefaultBridgeURL,
		},
		USB: model.USBConfig{
			Configuration: 1,
			Endpoint:      1,
		},
		Wireless: model.WirelessConfig{
			ServiceUUID:        transport.DefaultServiceUUID,
			CharacteristicUUID: transport.DefaultCharacteristicUUID,
		},
		Retry: model.RetryConfig{
			Delay:          transport.DefaultRetryDelay,
			ReconnectDelay: transport.DefaultReconnectDelay,
		},
		Log: model.LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the YAML config over the defaults and applies LABELS_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (model.Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if _, err := label.ConfigFor(cfg.LabelHeight); err != nil {
		return cfg, fmt.Errorf("config labelHeight: %w", err)
	}
	if cfg.LogFile == "" {
		if cfg.LogFile, err = DefaultLogPath(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func SaveConfig(path string, cfg model.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *model.Config) error {
	str := map[string]*string{
		"LABELS_TRANSPORT":   &cfg.Transport,
		"LABELS_BRIDGE_URL":  &cfg.Bridge.URL,
		"LABELS_INITIAL":     &cfg.Initial,
		"LABELS_LOG_LEVEL":   &cfg.Log.Level,
		"LABELS_BLE_ADDRESS": &cfg.Wireless.Address,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv("LABELS_LABEL_HEIGHT"); ok {
		h, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LABELS_LABEL_HEIGHT: %w", err)
		}
		cfg.LabelHeight = h
	}
	for key, dst := range map[string]*uint16{
		"LABELS_USB_VENDOR_ID":  &cfg.USB.VendorID,
		"LABELS_USB_PRODUCT_ID": &cfg.USB.ProductID,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		id, err := ParseUSBID(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = id
	}
	return nil
}

// ParseUSBID reads a vendor or product id in hex, with or without 0x.
func ParseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB id %q", s)
	}
	return uint16(id), nil
}

// --- Interactive Setup ---

// Setup asks for the settings a kitchen needs on first run, offering the
// current values as defaults, and saves the result.
func Setup(in io.Reader, out io.Writer, path string, cfg model.Config) (model.Config, error) {
	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		if def != "" {
			fmt.Fprintf(out, "%s (default: %s): ", prompt, def)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	fmt.Fprintln(out, "--- Label Printer Setup ---")

	cfg.Transport = strings.ToLower(ask("Transport (auto, bridge, usb, wireless)", cfg.Transport))
	if _, err := transport.Choose(transport.Platform{}, cfg); err != nil {
		return cfg, err
	}

	height := ask("Label height in mm (31 or 80)", strconv.Itoa(cfg.LabelHeight))
	h, err := strconv.Atoi(height)
	if err != nil {
		return cfg, fmt.Errorf("label height: %w", err)
	}
	if _, err := label.ConfigFor(h); err != nil {
		return cfg, err
	}
	cfg.LabelHeight = h

	cfg.Initial = strings.ToUpper(ask("Your initials for labels", cfg.Initial))
	cfg.Catalog = ask("Ingredient catalog file", cfg.Catalog)

	switch transport.Kind(cfg.Transport) {
	case transport.KindBridge, transport.KindAuto:
		cfg.Bridge.URL = ask("Print bridge URL", cfg.Bridge.URL)
	}
	if transport.Kind(cfg.Transport) == transport.KindUSB || transport.Kind(cfg.Transport) == transport.KindAuto {
		if err := askUSB(ask, &cfg.USB); err != nil {
			return cfg, err
		}
	}

	if err := SaveConfig(path, cfg); err != nil {
		return cfg, err
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", path)
	return cfg, nil
}

func askUSB(ask func(string, string) string, usb *model.USBConfig) error {
	def := ""
	if usb.Configured() {
		def = fmt.Sprintf("%04x:%04x", usb.VendorID, usb.ProductID)
	}
	answer := ask("USB printer vendor:product id (blank to skip)", def)
	if answer == "" {
		return nil
	}
	vendor, product, ok := strings.Cut(answer, ":")
	if !ok {
		return fmt.Errorf("USB id %q: expected vendor:product", answer)
	}
	var err error
	if usb.VendorID, err = ParseUSBID(vendor); err != nil {
		return err
	}
	if usb.ProductID, err = ParseUSBID(product); err != nil {
		return err
	}
	return nil
}
