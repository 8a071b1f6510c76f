// Package stream renders label content as an inline ESC/POS control stream for
// printers that take text and formatting commands instead of images.
package stream

import (
	"strings"
	"unicode/utf8"
)

const (
	esc = 0x1b
	gs  = 0x1d
)

// Inline commands. Every command is three bytes: prefix, function, argument.
const (
	FontB       = "\x1bM\x01"
	BoldOn      = "\x1bE\x01"
	BoldOff     = "\x1bE\x00"
	InvertOn    = "\x1dB\x01"
	InvertOff   = "\x1dB\x00"
	AlignLeft   = "\x1ba\x00"
	AlignCenter = "\x1ba\x01"
	SizeNormal  = "\x1d!\x00"
	SizeTall    = "\x1d!\x01"
	SizeLarge   = "\x1d!\x11"
	LF          = "\n"
)

// StripControl removes inline commands and other control bytes.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == esc || c == gs:
			i += 2
		case c < 0x20 || c == 0x7f:
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// VisibleLen counts printed characters, ignoring commands.
func VisibleLen(s string) int {
	return utf8.RuneCountInString(StripControl(s))
}

// PadColumns places left and right on one line of width columns, keeping at
// least one space between them.
func PadColumns(left, right string, width int) string {
	pad := width - VisibleLen(left) - VisibleLen(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}
