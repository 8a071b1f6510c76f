package stream

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	streamLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Command", Pattern: `\x1b[EMa][\x00-\x7f]|\x1d[B!][\x00-\x7f]`},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Text", Pattern: `[^\x1b\x1d\n]+`},
	})

	streamParser = participle.MustBuild[streamDocument](
		participle.Lexer(streamLexer),
	)
)

type streamDocument struct {
	Tokens []*streamToken `parser:"@@*"`
}

type streamToken struct {
	Command string `parser:"  @Command"`
	Newline string `parser:"| @Newline"`
	Text    string `parser:"| @Text"`
}

// Line is one printed line recovered from a control stream. Style flags are set
// when any part of the line carried that style.
type Line struct {
	Text     string
	Bold     bool
	Inverted bool
	Centered bool
	Large    bool
}

type decodeState struct {
	bold, inverted, centered, large bool
}

// Decode parses a control stream back into printed lines. It is the inverse of
// Render up to wrapping, and rejects commands Render never emits.
func Decode(s string) ([]Line, error) {
	doc, err := streamParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("decode stream: %w", err)
	}

	var (
		lines   []Line
		st      decodeState
		current Line
		open    bool
	)
	for _, tok := range doc.Tokens {
		switch {
		case tok.Command != "":
			st.apply(tok.Command)
		case tok.Newline != "":
			lines = append(lines, current)
			current, open = Line{}, false
		default:
			current.Text += tok.Text
			current.Bold = current.Bold || st.bold
			current.Inverted = current.Inverted || st.inverted
			current.Large = current.Large || st.large
			if !open {
				current.Centered = st.centered
				open = true
			}
		}
	}
	if open {
		lines = append(lines, current)
	}
	return lines, nil
}

func (st *decodeState) apply(cmd string) {
	on := cmd[2] != 0
	switch cmd[:2] {
	case "\x1bE":
		st.bold = on
	case "\x1dB":
		st.inverted = on
	case "\x1ba":
		st.centered = cmd[2] == 1
	case "\x1d!":
		st.large = on
	}
}

// Text returns the printed lines without styling.
func Text(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
