package script

import (
	"fmt"
	"strings"
)

type writer struct {
	strings.Builder
	indent int
	eol    string
}

func (w *writer) Line(text string) {
	w.WriteString(strings.Repeat("  ", w.indent) + text + w.eol)
}

func (w *writer) Linef(format string, arguments ...interface{}) {
	w.Line(fmt.Sprintf(format, arguments...))
}

func (w *writer) Indent() { w.indent++ }

func (w *writer) Unindent() { w.indent-- }
