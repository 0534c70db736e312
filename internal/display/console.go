// Package display provides color- and terminal-aware console output for the
// backup engine CLI.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Console writes status lines for CLI commands, degrading to plain text when
// the output is not a color-capable terminal.
type Console struct {
	out     io.Writer
	colored bool
	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
}

// NewConsole creates a console writing to stdout with automatic color
// detection.
func NewConsole() *Console {
	return NewConsoleWithWriter(os.Stdout, detectColorSupport())
}

// NewConsoleWithWriter creates a console for a specific writer, primarily for
// tests.
func NewConsoleWithWriter(out io.Writer, colored bool) *Console {
	return &Console{
		out:     out,
		colored: colored,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
	}
}

// detectColorSupport checks if the terminal supports colors
func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}

	return termenv.ColorProfile() != termenv.Ascii
}

// Success prints a success line.
func (c *Console) Success(format string, args ...interface{}) {
	c.printf(c.success, "✓ "+format, args...)
}

// Failure prints a failure line.
func (c *Console) Failure(format string, args ...interface{}) {
	c.printf(c.failure, "✗ "+format, args...)
}

// Warning prints a warning line.
func (c *Console) Warning(format string, args ...interface{}) {
	c.printf(c.warning, "! "+format, args...)
}

// Info prints an informational line.
func (c *Console) Info(format string, args ...interface{}) {
	c.printf(c.info, format, args...)
}

// Plain prints an uncolored line.
func (c *Console) Plain(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) printf(col *color.Color, format string, args ...interface{}) {
	if c.colored {
		col.Fprintf(c.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}
