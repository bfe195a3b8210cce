// Package tty reports whether standard streams are attached to an
// interactive terminal, for callers that need to decide whether to print
// spinners, colors, or plain batch-friendly output.
package tty

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsStderrTerminal reports whether stderr is a terminal. Console output
// (spinners, progress bars, teletype animation) checks this before
// rendering anything that assumes a live display.
func IsStderrTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// IsStdoutTerminal reports whether stdout is a terminal.
func IsStdoutTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
