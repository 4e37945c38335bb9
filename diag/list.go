package diag

import (
	"fmt"
	"sort"

	"github.com/loomql/loom/errors"
)

// List is an error that collects one or more diagnostics. Stages that can
// discover several problems in one pass append to a List and return it whole,
// so a user sees every error in a batch rather than one per rebuild.
type List []Diagnostic

// Error returns a compact summary of the collected diagnostics.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// Append adds diagnostics and returns the extended list.
func (l List) Append(diags ...Diagnostic) List {
	return append(l, diags...)
}

// Merge concatenates another list.
func (l List) Merge(other List) List {
	return append(l, other...)
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Counts returns the number of error and warning diagnostics.
func (l List) Counts() (errs, warnings int) {
	for _, d := range l {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		}
	}
	return errs, warnings
}

// Sort orders diagnostics by file, then byte offset, then message, in place.
// Batches read top to bottom per file and repeated builds emit identical
// orderings.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Ref.File != b.Ref.File {
			return a.Ref.File < b.Ref.File
		}
		if a.Ref.Start != b.Ref.Start {
			return a.Ref.Start < b.Ref.Start
		}
		if a.Ref.Line != b.Ref.Line {
			return a.Ref.Line < b.Ref.Line
		}
		if a.Ref.Column != b.Ref.Column {
			return a.Ref.Column < b.Ref.Column
		}
		return a.Message < b.Message
	})
}

// AsList extracts a diagnostics list from an error chain.
func AsList(err error) (List, bool) {
	if err == nil {
		return nil, false
	}
	var list List
	if errors.As(err, &list) {
		return list, true
	}
	var listPtr *List
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}
	return nil, false
}
