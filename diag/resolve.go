package diag

import (
	"strings"

	"github.com/loomql/loom/errors"
)

// Sources looks up the full text of a loaded source document by name.
// The compiler's text set satisfies this.
type Sources interface {
	Text(name string) (string, bool)
}

// Resolve attaches source excerpts to every diagnostic in the list and
// returns the resolved copy. A diagnostic whose file is missing from the
// source set is a defect in the stage that produced it: every stage runs
// against documents the compiler itself loaded.
func (l List) Resolve(src Sources) (List, error) {
	resolved := make(List, len(l))
	for i, d := range l {
		if d.Resolved() || d.Ref.IsZero() {
			resolved[i] = d
			continue
		}
		text, ok := src.Text(d.Ref.File)
		if !ok {
			return nil, errors.AssertionFailedf(
				"diagnostic references unknown source %q: %s", d.Ref.File, d.Message)
		}
		resolved[i] = resolveOne(d, text)
	}
	return resolved, nil
}

// resolveOne fills Excerpt and the caret fields from the document text.
func resolveOne(d Diagnostic, text string) Diagnostic {
	ref := d.Ref

	// Derive line/column from the byte offset when the producer only had a span.
	if ref.Line <= 0 && ref.End > ref.Start {
		ref.Line, ref.Column = lineColAt(text, ref.Start)
	}
	if ref.Line <= 0 {
		return d
	}

	lineStart, lineText, ok := lineAt(text, ref.Line)
	if !ok {
		return d
	}

	d.Ref = ref
	d.Excerpt = lineText

	// Prefer the byte span when it lands on this line; fall back to the column.
	if ref.End > ref.Start && ref.Start >= lineStart && ref.Start <= lineStart+len(lineText) {
		d.CaretStart = ref.Start - lineStart
		end := ref.End
		if end > lineStart+len(lineText) {
			end = lineStart + len(lineText)
		}
		d.CaretLen = end - ref.Start
	} else if ref.Column > 0 {
		d.CaretStart = ref.Column - 1
		d.CaretLen = 1
	}
	if d.CaretStart > len(lineText) {
		d.CaretStart = len(lineText)
	}
	if d.CaretLen < 1 {
		d.CaretLen = 1
	}
	return d
}

// lineAt returns the byte offset and text of the 1-based line.
// The trailing newline and any carriage return are stripped from the text.
func lineAt(text string, line int) (start int, lineText string, ok bool) {
	offset := 0
	current := 1
	for current < line {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return 0, "", false
		}
		offset += next + 1
		current++
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		lineText = text[offset:]
	} else {
		lineText = text[offset : offset+end]
	}
	lineText = strings.TrimSuffix(lineText, "\r")
	return offset, lineText, true
}

// lineColAt computes the 1-based line and column of a byte offset.
func lineColAt(text string, offset int) (line, col int) {
	if offset > len(text) {
		offset = len(text)
	}
	line, col = 1, 1
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
