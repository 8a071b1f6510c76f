package utils

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"runtime"
	"time"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
)

const probeTimeout = 300 * time.Millisecond

// DetectPlatform inspects the host once. The result is passed to the
// transport selector explicitly.
func DetectPlatform(cfg model.Config) transport.Platform {
	return transport.Platform{
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		BridgeReachable: ProbeURL(cfg.Bridge.URL),
		USBConfigured:   cfg.USB.Configured(),
	}
}

// ProbeURL reports whether the host of a ws:// or wss:// URL accepts TCP
// connections.
func ProbeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "wss" {
			port = "443"
		}
	}
	return Probe(net.JoinHostPort(u.Hostname(), port))
}

func Probe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// --------------------------------------
// SYSTEM INFORMATION
// --------------------------------------

func PrintSystemInfo(w io.Writer, p transport.Platform, kind transport.Kind) {
	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  OS: %s\n", p.OS)
	fmt.Fprintf(w, "  Architecture: %s\n", p.Arch)
	fmt.Fprintf(w, "  Print bridge reachable: %t\n", p.BridgeReachable)
	fmt.Fprintf(w, "  USB printer configured: %t\n", p.USBConfigured)
	fmt.Fprintf(w, "  Transport: %s\n\n", kind)

	switch kind {
	case transport.KindUSB:
		showUSBInstructions(w, p.OS)
	case transport.KindWireless:
		showBluetoothInstructions(w, p.OS)
	}
}

// --------------------------------------
// INSTALLATION INSTRUCTIONS
// --------------------------------------

func showUSBInstructions(w io.Writer, osType string) {
	fmt.Fprintln(w, "USB printing needs libusb:")
	switch osType {
	case "linux":
		fmt.Fprintln(w, "  Ubuntu / Debian: sudo apt install libusb-1.0-0")
		fmt.Fprintln(w, "  Fedora:          sudo dnf install libusb1")
		fmt.Fprintln(w, "  Arch:            sudo pacman -S libusb")
		fmt.Fprintln(w, "  Grant access with a udev rule for the printer's vendor id.")
	case "darwin":
		fmt.Fprintln(w, "  brew install libusb")
	case "windows":
		fmt.Fprintln(w, "  Install the WinUSB driver for the printer with Zadig.")
	default:
		fmt.Fprintln(w, "  Install libusb 1.0 for your OS.")
	}
	fmt.Fprintln(w)
}

func showBluetoothInstructions(w io.Writer, osType string) {
	fmt.Fprintln(w, "Wireless printing needs Bluetooth LE:")
	switch osType {
	case "linux":
		fmt.Fprintln(w, "  BlueZ must be running: sudo systemctl enable --now bluetooth")
	case "darwin":
		fmt.Fprintln(w, "  Allow Bluetooth access for your terminal in System Settings > Privacy.")
	case "windows":
		fmt.Fprintln(w, "  Turn Bluetooth on in Settings > Devices.")
	default:
		fmt.Fprintln(w, "  Enable Bluetooth for your OS.")
	}
	fmt.Fprintln(w, "  Then run: labels printers scan")
	fmt.Fprintln(w)
}
