// Package output formats CLI results for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Printer writes user-facing messages. Errors and warnings go to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// ColorsEnabled reports whether color output is wanted: never when disabled
// explicitly, when NO_COLOR is set or on a dumb terminal.
func ColorsEnabled(disabled bool) bool {
	if disabled {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// NewPrinter creates a printer over out and err.
func NewPrinter(out, err io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: err, useColors: useColors}
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer { return p.out }

// Info prints an informational message.
func (p *Printer) Info(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

// Warning prints a warning.
func (p *Printer) Warning(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Print prints a plain line.
func (p *Printer) Print(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints a section title with an underline.
func (p *Printer) Header(title string) {
	width := len([]rune(title))
	if p.useColors {
		_, _ = color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		_, _ = color.New(color.FgWhite).Fprintf(p.out, "%s\n", strings.Repeat("─", width))
		return
	}
	_, _ = fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", width))
}

// Field prints an aligned "label: value" line; empty values are skipped.
func (p *Printer) Field(label, value string) {
	if value == "" {
		return
	}
	if p.useColors {
		label = color.New(color.Faint).Sprint(label)
	}
	_, _ = fmt.Fprintf(p.out, "  %-18s %s\n", label+":", value)
}

// Badge renders a yes/no marker.
func (p *Printer) Badge(ok bool) string {
	if !p.useColors {
		if ok {
			return "[x]"
		}
		return "[ ]"
	}
	if ok {
		return color.GreenString("●")
	}
	return color.YellowString("○")
}

// Grade renders a 0-20 score: passing from 14, borderline from 11.
func (p *Printer) Grade(score *float64) string {
	if score == nil {
		return "-"
	}
	text := strconv.FormatFloat(*score, 'f', -1, 64)
	if !p.useColors {
		return text
	}
	switch {
	case *score >= 14:
		return color.GreenString(text)
	case *score >= 11:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}
