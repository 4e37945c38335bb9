package transform

import (
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
)

// AddTypename appends a __typename selection to every composite field that
// does not already select it, so the normalization form can discriminate
// concrete types at store-write time. Root selection sets stay untouched.
func AddTypename() Transform {
	return Transform{
		Name: "add-typename",
		Func: func(p *program.Program) *program.Program {
			defs := make([]ir.Definition, 0, p.Len())
			for _, def := range p.Definitions() {
				switch d := def.(type) {
				case *ir.Operation:
					op := *d
					op.Selections = addTypename(d.Selections)
					defs = append(defs, &op)
				case *ir.Fragment:
					frag := *d
					frag.Selections = addTypename(d.Selections)
					defs = append(defs, &frag)
				}
			}
			return p.WithDefinitions(defs)
		},
	}
}

func addTypename(sels []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(sels))
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			field := *s
			field.Selections = addTypename(s.Selections)
			if field.Composite && !selectsTypename(field.Selections) {
				field.Selections = append(field.Selections, typenameField())
			}
			out = append(out, &field)
		case *ir.InlineFragment:
			inline := *s
			inline.Selections = addTypename(s.Selections)
			out = append(out, &inline)
		default:
			out = append(out, sel)
		}
	}
	return out
}

func selectsTypename(sels []ir.Selection) bool {
	for _, sel := range sels {
		if field, ok := sel.(*ir.Field); ok && field.Name == "__typename" && field.Alias == "" {
			return true
		}
	}
	return false
}

func typenameField() *ir.Field {
	return &ir.Field{
		Name:     "__typename",
		Type:     "String!",
		TypeName: "String",
	}
}
