// Package diagnostics renders compile-time errors against the source map:
// a message, a code, and a two-line caret under the offending span,
// colorized when stdout is a terminal.
//
// Color detection follows funxy's internal/evaluator/builtins_term.go:
// NO_COLOR opts out, github.com/mattn/go-isatty decides whether stdout is
// actually a terminal.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

var (
	colorOnce sync.Once
	colorOn   bool
)

func colorEnabled() bool {
	colorOnce.Do(func() {
		if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
			colorOn = false
			return
		}
		colorOn = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	})
	return colorOn
}

func red(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[31m" + s + "\033[39m"
}

func bold(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[1m" + s + "\033[22m"
}

// Diagnostic is one reportable error: a stable code, a message, and the
// span it refers to.
type Diagnostic struct {
	Code string
	Msg  string
	Span source.Span
}

func New(code string, span source.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Msg: fmt.Sprintf(format, args...), Span: span}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (at %s)", d.Code, d.Msg, d.Span)
}

// Render writes the diagnostic followed by a two-line caret excerpt of f
// to w, colorized when stdout is a terminal (whatever w is).
func Render(w io.Writer, f *source.File, d *Diagnostic) {
	fmt.Fprintf(w, "%s %s: %s\n", red(bold("error["+d.Code+"]")), d.Span, d.Msg)
	if f != nil {
		fmt.Fprintln(w, d.Span.Caret(f))
	}
}

// RenderAll is a convenience wrapper over Render for an accumulated list
// of diagnostics, in the order they were raised.
func RenderAll(w io.Writer, f *source.File, ds []*Diagnostic) {
	for _, d := range ds {
		Render(w, f, d)
	}
}
