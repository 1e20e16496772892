package translate

import (
	"fmt"
	"strings"

	"cogentcore.org/core/base/indent"
)

// indentWidth is the number of spaces per block level.
const indentWidth = 4

// writer accumulates program text one line at a time.
type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	w.b.WriteString(indent.Spaces(w.depth, indentWidth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) blank() { w.b.WriteByte('\n') }

func (w *writer) block(fn func()) {
	w.depth++
	fn()
	w.depth--
}

func (w *writer) String() string { return w.b.String() }
