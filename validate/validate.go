// Package validate applies a project's semantic rules to a compiled
// Program. The rules run after type checking and before any transform, so
// every definition they see is already schema-correct.
package validate

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
)

// Rule names attached to validation diagnostics.
const (
	RuleOperationSuffix = "operation-suffix"
	RuleFragmentPrefix  = "fragment-prefix"
	RuleConnectionKey   = "connection-key"
	RuleMaxDepth        = "max-depth"
)

// Run checks every definition against the project's rules and returns all
// violations in one batch. The Program is never modified.
//
// Selection depth counts nested fields only: inline fragments are
// transparent, and fragment spreads are measured at their own definition.
func Run(p *program.Program, rules config.RulesConfig) diag.List {
	w := &walker{rules: rules}
	for _, def := range p.Definitions() {
		switch d := def.(type) {
		case *ir.Operation:
			w.checkOperationName(d)
			w.checkDirectives(d.Directives)
			w.walkSelections(d.Selections, 1)
		case *ir.Fragment:
			w.checkFragmentName(d)
			w.checkDirectives(d.Directives)
			w.walkSelections(d.Selections, 1)
		}
	}
	w.diags.Sort()
	return w.diags
}

type walker struct {
	rules config.RulesConfig
	diags diag.List
}

func (w *walker) errorf(ref diag.SourceRef, rule, format string, args ...interface{}) {
	w.diags = w.diags.Append(diag.Errorf(ref, format, args...).WithRule(rule))
}

// kindSuffix maps an operation kind to its required name suffix.
func kindSuffix(kind ast.Operation) string {
	switch kind {
	case ast.Mutation:
		return "Mutation"
	case ast.Subscription:
		return "Subscription"
	}
	return "Query"
}

func (w *walker) checkOperationName(op *ir.Operation) {
	if !w.rules.OperationSuffix {
		return
	}
	suffix := kindSuffix(op.Kind)
	if !strings.HasSuffix(op.Name, suffix) {
		w.errorf(op.Ref, RuleOperationSuffix,
			"operation %q must end with %q to match its kind", op.Name, suffix)
	}
}

func (w *walker) checkFragmentName(frag *ir.Fragment) {
	if w.rules.FragmentPrefix == "" {
		return
	}
	if !strings.HasPrefix(frag.Name, w.rules.FragmentPrefix) {
		w.errorf(frag.Ref, RuleFragmentPrefix,
			"fragment %q must start with %q", frag.Name, w.rules.FragmentPrefix)
	}
}

func (w *walker) checkDirectives(dirs []ir.Directive) {
	for _, d := range dirs {
		if d.Name != "connection" {
			continue
		}
		key, ok := d.ArgumentValue("key")
		switch {
		case !ok:
			w.errorf(d.Ref, RuleConnectionKey, "@connection requires a key argument")
		case key.Kind != ir.ValueString && key.Kind != ir.ValueBlockString:
			w.errorf(d.Ref, RuleConnectionKey, "@connection key must be a constant string")
		case key.Raw == "":
			w.errorf(d.Ref, RuleConnectionKey, "@connection key must not be empty")
		}
	}
}

func (w *walker) walkSelections(sels []ir.Selection, depth int) {
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			if w.rules.MaxDepth > 0 && depth > w.rules.MaxDepth {
				w.errorf(s.Ref, RuleMaxDepth,
					"selection depth %d exceeds the maximum of %d", depth, w.rules.MaxDepth)
				continue
			}
			w.checkDirectives(s.Directives)
			w.walkSelections(s.Selections, depth+1)
		case *ir.FragmentSpread:
			w.checkDirectives(s.Directives)
		case *ir.InlineFragment:
			w.checkDirectives(s.Directives)
			w.walkSelections(s.Selections, depth)
		}
	}
}
