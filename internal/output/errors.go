package output

import (
	"fmt"

	"github.com/fatih/color"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitUsageError = 2
	ExitAuthError  = 3
	ExitNetwork    = 4
	ExitConfig     = 5
)

// CLIError is an error with a user-facing summary and an exit code.
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string { return e.Summary }

func (e *CLIError) Unwrap() error { return e.Err }

// FormatError prints e to the error stream.
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
	} else {
		_, _ = fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	}
	if e.Detail != "" {
		_, _ = fmt.Fprintf(p.err, "  Causa: %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		if p.useColors {
			_, _ = color.New(color.FgCyan).Fprintf(p.err, "  Sugerencia: %s\n", e.Suggestion)
		} else {
			_, _ = fmt.Fprintf(p.err, "  Sugerencia: %s\n", e.Suggestion)
		}
	}
}
