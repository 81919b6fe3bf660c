// Package ui provides colored console output and run loggers.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

// actionsMode switches Fatal to GitHub Actions error annotations.
var actionsMode bool

// SetActionsMode enables or disables GitHub Actions annotations for Fatal.
func SetActionsMode(enabled bool) {
	actionsMode = enabled
}

// Fatal prints an error to stderr and exits.
func Fatal(format string, args ...any) {
	PrintFatal(os.Stderr, format, args...)
	os.Exit(1)
}

// PrintFatal writes a fatal message to w, as an error annotation in
// Actions mode.
func PrintFatal(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if actionsMode {
		fmt.Fprintf(w, "::error::%s\n", escapeData(msg))
		return
	}
	Red.Fprintf(w, "✗ %s\n", msg)
}
