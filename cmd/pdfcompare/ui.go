package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/tsawler/pdfcompare/report"
)

// ui prints status lines. Colors follow fatih/color's terminal detection
// unless disabled.
type ui struct {
	w       io.Writer
	noColor bool
}

func newUI(w io.Writer, noColor bool) *ui {
	return &ui{w: w, noColor: noColor}
}

func (u *ui) print(attr color.Attribute, symbol, format string, args ...any) {
	c := color.New(attr)
	if u.noColor {
		c.DisableColor()
	}
	c.Fprintf(u.w, "%s %s\n", symbol, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (u *ui) Success(format string, args ...any) {
	u.print(color.FgGreen, "✓", format, args...)
}

// Warning prints a warning message.
func (u *ui) Warning(format string, args ...any) {
	u.print(color.FgYellow, "⚠", format, args...)
}

// Error prints an error message.
func (u *ui) Error(format string, args ...any) {
	u.print(color.FgRed, "✗", format, args...)
}

// Info prints an informational message.
func (u *ui) Info(format string, args ...any) {
	u.print(color.FgCyan, "ℹ", format, args...)
}

// Summary prints the change counts of a comparison.
func (u *ui) Summary(s report.Summary) {
	if s.Changes() == 0 {
		u.Success("Documents are identical (%d lines)", s.Unchanged)
		return
	}
	u.Info("%d added, %d removed, %d modified, %d unchanged", s.Added, s.Removed, s.Modified, s.Unchanged)
}

// startSpinner shows an indeterminate spinner on stderr. The spinner does
// nothing when stderr is not a terminal.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}
