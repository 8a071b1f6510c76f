package utils

import (
	"io"
	"log/slog"
	"strings"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(cfg model.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
