package transport

import (
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// ResolvePrinter picks the print target: the explicitly selected printer if it
// is still listed, else the reported default if still listed, else the first
// listed printer. The "fallback" placeholder is never a candidate.
func ResolvePrinter(selected, defaultPrinter string, available []model.PrinterDescriptor) (string, error) {
	candidates := make([]string, 0, len(available))
	for _, p := range available {
		if p.Name == "" || p.Name == model.FallbackPrinterName {
			continue
		}
		candidates = append(candidates, p.Name)
	}

	has := func(name string) bool {
		if name == "" {
			return false
		}
		for _, c := range candidates {
			if c == name {
				return true
			}
		}
		return false
	}

	switch {
	case has(selected):
		return selected, nil
	case has(defaultPrinter):
		return defaultPrinter, nil
	case len(candidates) > 0:
		return candidates[0], nil
	}
	return "", model.ErrNoUsablePrinter
}

// Resolve applies ResolvePrinter to a transport's current enumeration.
func Resolve(t Transport, selected string) (string, error) {
	st := t.Status()
	return ResolvePrinter(selected, st.DefaultPrinter, st.Printers)
}
