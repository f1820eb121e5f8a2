// Package ui renders command output for a terminal.
//
// Color is used only when the output is a terminal, NO_COLOR is unset and
// the caller did not disable it.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/assinatura-email/sheetsync/internal/sync"
)

// Printer writes styled lines to an output.
type Printer struct {
	w     io.Writer
	color bool

	title lipgloss.Style
	key   lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

// New creates a Printer for w. noColor forces plain output.
func New(w io.Writer, noColor bool) *Printer {
	color := !noColor && !termenv.EnvNoColor() && IsTerminal(w)

	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{
		w:     w,
		color: color,
		title: r.NewStyle().Bold(true),
		key:   r.NewStyle().Foreground(lipgloss.Color("12")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:   r.NewStyle().Faint(true),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Color reports whether output is styled.
func (p *Printer) Color() bool {
	return p.color
}

// Title prints a bold heading.
func (p *Printer) Title(s string) {
	fmt.Fprintln(p.w, p.title.Render(s))
}

// Success prints a line marked as successful.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.ok.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// Warn prints a line marked as a warning.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.warn.Render("!")+" "+fmt.Sprintf(format, args...))
}

// Error prints a line marked as a failure.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.fail.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Field is one key/value line of a KeyValues block.
type Field struct {
	Key   string
	Value string
}

// KeyValues prints aligned key/value lines.
func (p *Printer) KeyValues(fields []Field) {
	width := 0
	for _, f := range fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len(f.Key))
		fmt.Fprintf(p.w, "  %s%s  %s\n", p.key.Render(f.Key), pad, f.Value)
	}
}

// Result prints the outcome of a sync run.
func (p *Printer) Result(res sync.Result) {
	switch res.Outcome {
	case sync.OutcomeSuccess:
		p.Success("%d rows upserted (%d read, %d skipped) in %s",
			res.Upserted, res.Read, res.Skipped, res.Duration.Round(time.Millisecond))
	case sync.OutcomeNoOp:
		p.Warn("spreadsheet has no data rows; nothing to update")
	default:
		msg := res.Outcome.String()
		if res.Err != nil {
			msg += ": " + res.Err.Error()
		}
		p.Error("%s", msg)
	}
	if res.RunID != "" {
		fmt.Fprintln(p.w, p.dim.Render("  run "+res.RunID))
	}
}
