package diag

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// RenderContext selects the output style for formatted diagnostics
type RenderContext string

const (
	RenderContextTerminal RenderContext = "terminal" // Rich colored output
	RenderContextPlain    RenderContext = "plain"    // Concise output for logs and JSON consumers
)

// Format generates a context-appropriate rendering of the diagnostic.
func (d Diagnostic) Format(ctx RenderContext) string {
	if ctx == RenderContextPlain {
		return d.formatPlain()
	}
	return d.formatTerminal()
}

// formatPlain creates the concise single-block form for logs
func (d Diagnostic) formatPlain() string {
	var b strings.Builder
	if loc := d.Ref.String(); loc != "" {
		b.WriteString(loc)
		b.WriteString(": ")
	}
	b.WriteString(string(d.Severity))
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Rule != "" {
		fmt.Fprintf(&b, " [%s]", d.Rule)
	}
	if d.Resolved() {
		b.WriteString("\n  ")
		b.WriteString(d.Excerpt)
		b.WriteString("\n  ")
		b.WriteString(caretLine(d))
	}
	return b.String()
}

// formatTerminal creates rich colored output for the terminal
func (d Diagnostic) formatTerminal() string {
	var b strings.Builder

	switch d.Severity {
	case SeverityWarning:
		b.WriteString(pterm.Yellow("warning"))
	default:
		b.WriteString(pterm.Red("error"))
	}
	if d.Rule != "" {
		b.WriteString(pterm.Gray(fmt.Sprintf("[%s]", d.Rule)))
	}
	b.WriteString(": ")
	b.WriteString(d.Message)

	if loc := d.Ref.String(); loc != "" {
		b.WriteString("\n  ")
		b.WriteString(pterm.LightCyan(loc))
	}
	if d.Resolved() {
		b.WriteString("\n    ")
		b.WriteString(d.Excerpt)
		b.WriteString("\n    ")
		b.WriteString(pterm.Red(caretLine(d)))
	}
	return b.String()
}

// Format renders every diagnostic in the list, one block per diagnostic.
func (l List) Format(ctx RenderContext) string {
	blocks := make([]string, len(l))
	for i, d := range l {
		blocks[i] = d.Format(ctx)
	}
	return strings.Join(blocks, "\n\n")
}

// caretLine builds the underline marking the caret span within the excerpt.
// Tabs in the excerpt are carried into the padding so the carets line up.
func caretLine(d Diagnostic) string {
	var b strings.Builder
	for i := 0; i < d.CaretStart && i < len(d.Excerpt); i++ {
		if d.Excerpt[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	n := d.CaretLen
	if n < 1 {
		n = 1
	}
	b.WriteString(strings.Repeat("^", n))
	return b.String()
}
