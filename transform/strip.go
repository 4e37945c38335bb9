package transform

import (
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/schema"
)

// StripClientDirectives removes the directives the compiler itself
// consumes, so the operation text sent to a server only carries directives
// the server schema declares.
func StripClientDirectives() Transform {
	return Transform{
		Name: "strip-client-directives",
		Func: func(p *program.Program) *program.Program {
			defs := make([]ir.Definition, 0, p.Len())
			for _, def := range p.Definitions() {
				switch d := def.(type) {
				case *ir.Operation:
					op := *d
					op.Directives = stripDirectives(d.Directives)
					op.Selections = stripSelections(d.Selections)
					defs = append(defs, &op)
				case *ir.Fragment:
					frag := *d
					frag.Directives = stripDirectives(d.Directives)
					frag.Selections = stripSelections(d.Selections)
					defs = append(defs, &frag)
				}
			}
			return p.WithDefinitions(defs)
		},
	}
}

func stripDirectives(dirs []ir.Directive) []ir.Directive {
	var out []ir.Directive
	for _, d := range dirs {
		if schema.ClientDirectives[d.Name] {
			continue
		}
		out = append(out, d)
	}
	return out
}

func stripSelections(sels []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(sels))
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			field := *s
			field.Directives = stripDirectives(s.Directives)
			field.Selections = stripSelections(s.Selections)
			out = append(out, &field)
		case *ir.FragmentSpread:
			spread := *s
			spread.Directives = stripDirectives(s.Directives)
			out = append(out, &spread)
		case *ir.InlineFragment:
			inline := *s
			inline.Directives = stripDirectives(s.Directives)
			inline.Selections = stripSelections(s.Selections)
			out = append(out, &inline)
		}
	}
	return out
}
