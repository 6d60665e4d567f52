// Package diag carries the runtime's two-tier error model and the styled
// terminal output used to report it: a fatal error renders as a single bold
// red diagnostic line naming the offending construct, distinct from an
// ordinary pipeline-observable failure, which never reaches this package at
// all.
package diag

import (
	"fmt"

	"charm.land/lipgloss/v2"
)

// Fatal is a runtime error that must terminate the whole program: an
// undefined name, an arity or type mismatch at a built-in boundary, a
// malformed or cyclic import, or a parser/lexer failure. It carries the
// name of the offending construct so the top-level reporter can name it in
// a single diagnostic line.
type Fatal struct {
	Construct string
	Err       error
}

func (f *Fatal) Error() string {
	if f.Construct == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %s", f.Construct, f.Err)
}

func (f *Fatal) Unwrap() error {
	return f.Err
}

// Fatalf builds a *Fatal naming construct as the offending construct.
func Fatalf(construct, format string, args ...any) *Fatal {
	return &Fatal{Construct: construct, Err: fmt.Errorf(format, args...)}
}

var fatalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

// ReportFatal renders err in the fatal style, e.g. for the top-level CLI
// reporter before exiting nonzero.
func ReportFatal(err error) string {
	return fatalStyle.Render(fmt.Sprintf("fatal: %s", err))
}
