package diag

import (
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/loomql/loom/errors"
)

// FromGraphQLError converts one positioned gqlparser error into a diagnostic.
// The parser records the originating file in the error's extensions; callers
// pass a fallback for errors raised before a source name was attached.
func FromGraphQLError(gqlErr *gqlerror.Error, fallbackFile string) Diagnostic {
	d := Diagnostic{
		Severity: SeverityError,
		Message:  gqlErr.Message,
		Rule:     gqlErr.Rule,
	}
	if file, ok := gqlErr.Extensions["file"].(string); ok && file != "" {
		d.Ref.File = file
	} else {
		d.Ref.File = fallbackFile
	}
	if len(gqlErr.Locations) > 0 {
		d.Ref.Line = gqlErr.Locations[0].Line
		d.Ref.Column = gqlErr.Locations[0].Column
	}
	return d
}

// FromGraphQLErrors converts any error produced by the gqlparser frontend
// into a diagnostics list. Unpositioned errors become a single diagnostic
// with only a file ref.
func FromGraphQLErrors(err error, fallbackFile string) List {
	if err == nil {
		return nil
	}

	var gqlList gqlerror.List
	if errors.As(err, &gqlList) {
		out := make(List, 0, len(gqlList))
		for _, gqlErr := range gqlList {
			out = append(out, FromGraphQLError(gqlErr, fallbackFile))
		}
		return out
	}

	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return List{FromGraphQLError(gqlErr, fallbackFile)}
	}

	return List{{
		Severity: SeverityError,
		Message:  err.Error(),
		Ref:      SourceRef{File: fallbackFile},
	}}
}
