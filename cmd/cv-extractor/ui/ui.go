// Package ui provides terminal output helpers for the cv-extractor CLI.
// Everything is written to stderr; stdout is reserved for extracted text.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	out         io.Writer = os.Stderr
	verboseFlag bool

	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.Bold)
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor || !IsTerminal() {
		color.NoColor = true
	}
}

// SetOutput redirects UI output.
func SetOutput(w io.Writer) {
	out = w
}

// IsTerminal reports whether UI output goes to a terminal.
func IsTerminal() bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Animated reports whether spinners and progress bars should be drawn.
// Verbose runs print log lines instead.
func Animated() bool {
	return !verboseFlag && IsTerminal()
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	successColor.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	warnColor.Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message.
func Error(format string, args ...interface{}) {
	errorColor.Fprintf(out, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	infoColor.Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section displays a section header.
func Section(title string) {
	headerColor.Fprintf(out, "\n%s\n", title)
	fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", len(title)))
}

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
