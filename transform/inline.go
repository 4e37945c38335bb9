package transform

import (
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
)

// InlineFragments replaces every local fragment spread with an inline
// fragment carrying the spread fragment's type condition and selections.
// Foreign spreads stay references; their definitions belong to the base
// project. Local fragment definitions are consumed, so the derived Program
// holds operations only.
//
// The IR builder guarantees local spreads resolve and fragments are
// acyclic; a miss here is a defect, not a user error.
func InlineFragments(base ir.NameSet) Transform {
	return Transform{
		Name: "inline-fragments",
		Func: func(p *program.Program) *program.Program {
			in := &inliner{program: p, base: base}
			var defs []ir.Definition
			for _, def := range p.Definitions() {
				op, ok := def.(*ir.Operation)
				if !ok {
					continue
				}
				out := *op
				out.Selections = in.selections(op.Selections)
				defs = append(defs, &out)
			}
			return p.WithDefinitions(defs)
		},
	}
}

type inliner struct {
	program *program.Program
	base    ir.NameSet
}

func (in *inliner) selections(sels []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(sels))
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			field := *s
			field.Selections = in.selections(s.Selections)
			out = append(out, &field)
		case *ir.InlineFragment:
			inline := *s
			inline.Selections = in.selections(s.Selections)
			out = append(out, &inline)
		case *ir.FragmentSpread:
			if frag, ok := in.program.Fragment(s.Name); ok {
				out = append(out, &ir.InlineFragment{
					TypeCondition: frag.TypeCondition,
					Directives:    s.Directives,
					Selections:    in.selections(frag.Selections),
					Ref:           s.Ref,
				})
				continue
			}
			if s.Foreign || in.base.Has(s.Name) {
				out = append(out, s)
				continue
			}
			panic(errors.AssertionFailedf("local fragment %q missing from program", s.Name))
		}
	}
	return out
}
