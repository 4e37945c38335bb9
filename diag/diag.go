// Package diag carries positioned compiler diagnostics from the stage that
// discovers them to the terminal that renders them. Diagnostics start out
// abstract (file name plus span) and are resolved against the loaded source
// texts before they surface to a user.
package diag

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// Severity indicates how a diagnostic affects the build
type Severity string

const (
	SeverityError   Severity = "error"   // Fails the producing stage
	SeverityWarning Severity = "warning" // Reported, never fails a build
)

// SourceRef is an abstract reference into a source document: the file name
// plus a byte span and line/column. It carries no source text; Resolve
// attaches the excerpt later.
type SourceRef struct {
	File   string `json:"file"`
	Line   int    `json:"line"`   // 1-based
	Column int    `json:"column"` // 1-based
	Start  int    `json:"start"`  // 0-based byte offset
	End    int    `json:"end"`    // exclusive; End > Start when a real span is known
}

// IsZero reports whether the ref points nowhere.
func (r SourceRef) IsZero() bool {
	return r.File == "" && r.Line == 0 && r.Start == 0 && r.End == 0
}

// String renders the ref in the conventional file:line:column form.
func (r SourceRef) String() string {
	if r.File == "" {
		return ""
	}
	if r.Line > 0 && r.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", r.File, r.Line, r.Column)
	}
	if r.Line > 0 {
		return fmt.Sprintf("%s:%d", r.File, r.Line)
	}
	return r.File
}

// RefFromPosition builds a SourceRef from a parsed AST position.
// The span covers exactly the token the parser attributed the node to.
func RefFromPosition(pos *ast.Position) SourceRef {
	if pos == nil {
		return SourceRef{}
	}
	ref := SourceRef{
		Line:   pos.Line,
		Column: pos.Column,
		Start:  pos.Start,
		End:    pos.End,
	}
	if pos.Src != nil {
		ref.File = pos.Src.Name
	}
	return ref
}

// Diagnostic is one positioned compiler message. Excerpt and the caret
// fields are empty until the diagnostic is resolved against source text.
type Diagnostic struct {
	Severity Severity  `json:"severity"`
	Rule     string    `json:"rule,omitempty"` // Producing rule or check, for programmatic handling
	Message  string    `json:"message"`
	Ref      SourceRef `json:"ref"`

	// Filled by List.Resolve
	Excerpt    string `json:"excerpt,omitempty"` // The source line at Ref.Line
	CaretStart int    `json:"-"`                 // 0-based column index into Excerpt
	CaretLen   int    `json:"-"`
}

// Errorf builds an error-severity diagnostic at ref.
func Errorf(ref SourceRef, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Ref:      ref,
	}
}

// Warnf builds a warning-severity diagnostic at ref.
func Warnf(ref SourceRef, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Ref:      ref,
	}
}

// WithRule tags the diagnostic with the name of the rule that produced it.
func (d Diagnostic) WithRule(rule string) Diagnostic {
	d.Rule = rule
	return d
}

// Resolved reports whether source text has been attached.
func (d Diagnostic) Resolved() bool {
	return d.Excerpt != ""
}

// Error implements the error interface with the plain one-line form.
func (d Diagnostic) Error() string {
	if loc := d.Ref.String(); loc != "" {
		return fmt.Sprintf("%s: %s", loc, d.Message)
	}
	return d.Message
}
