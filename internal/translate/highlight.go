package translate

import (
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// DefaultStyle is the colour scheme Highlight falls back to.
const DefaultStyle = "monokai"

// Highlight writes a program with terminal syntax colouring.
func Highlight(w io.Writer, program, style string) error {
	if style == "" {
		style = DefaultStyle
	}
	return quick.Highlight(w, program, "lua", "terminal256", style)
}
