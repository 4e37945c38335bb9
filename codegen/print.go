package codegen

import (
	"strconv"
	"strings"

	"github.com/loomql/loom/ir"
)

// printDefinition renders a definition as canonical GraphQL text. The layout
// is fixed (two-space indent, single spaces between tokens) so the printed
// bytes, and therefore the persisted operation ids, are stable across builds.
func printDefinition(def ir.Definition) string {
	var p printer
	switch d := def.(type) {
	case *ir.Operation:
		p.operation(d)
	case *ir.Fragment:
		p.fragment(d)
	}
	return p.out.String()
}

type printer struct {
	out strings.Builder
}

func (p *printer) operation(op *ir.Operation) {
	p.out.WriteString(string(op.Kind))
	p.out.WriteByte(' ')
	p.out.WriteString(op.Name)
	if len(op.Variables) > 0 {
		p.out.WriteByte('(')
		for i, v := range op.Variables {
			if i > 0 {
				p.out.WriteString(", ")
			}
			p.out.WriteByte('$')
			p.out.WriteString(v.Name)
			p.out.WriteString(": ")
			p.out.WriteString(v.Type)
			if v.Default != nil {
				p.out.WriteString(" = ")
				p.value(*v.Default)
			}
		}
		p.out.WriteByte(')')
	}
	p.directives(op.Directives)
	p.selections(op.Selections, 0)
	p.out.WriteByte('\n')
}

func (p *printer) fragment(frag *ir.Fragment) {
	p.out.WriteString("fragment ")
	p.out.WriteString(frag.Name)
	p.out.WriteString(" on ")
	p.out.WriteString(frag.TypeCondition)
	p.directives(frag.Directives)
	p.selections(frag.Selections, 0)
	p.out.WriteByte('\n')
}

func (p *printer) selections(sels []ir.Selection, depth int) {
	if len(sels) == 0 {
		return
	}
	p.out.WriteString(" {\n")
	inner := strings.Repeat("  ", depth+1)
	for _, sel := range sels {
		p.out.WriteString(inner)
		switch s := sel.(type) {
		case *ir.Field:
			p.field(s, depth+1)
		case *ir.FragmentSpread:
			p.out.WriteString("...")
			p.out.WriteString(s.Name)
			p.directives(s.Directives)
		case *ir.InlineFragment:
			p.out.WriteString("...")
			if s.TypeCondition != "" {
				p.out.WriteString(" on ")
				p.out.WriteString(s.TypeCondition)
			}
			p.directives(s.Directives)
			p.selections(s.Selections, depth+1)
		}
		p.out.WriteByte('\n')
	}
	p.out.WriteString(strings.Repeat("  ", depth))
	p.out.WriteByte('}')
}

func (p *printer) field(f *ir.Field, depth int) {
	if f.Alias != "" {
		p.out.WriteString(f.Alias)
		p.out.WriteString(": ")
	}
	p.out.WriteString(f.Name)
	if len(f.Arguments) > 0 {
		p.out.WriteByte('(')
		for i, arg := range f.Arguments {
			if i > 0 {
				p.out.WriteString(", ")
			}
			p.out.WriteString(arg.Name)
			p.out.WriteString(": ")
			p.value(arg.Value)
		}
		p.out.WriteByte(')')
	}
	p.directives(f.Directives)
	p.selections(f.Selections, depth)
}

func (p *printer) directives(dirs []ir.Directive) {
	for _, d := range dirs {
		p.out.WriteString(" @")
		p.out.WriteString(d.Name)
		if len(d.Arguments) > 0 {
			p.out.WriteByte('(')
			for i, arg := range d.Arguments {
				if i > 0 {
					p.out.WriteString(", ")
				}
				p.out.WriteString(arg.Name)
				p.out.WriteString(": ")
				p.value(arg.Value)
			}
			p.out.WriteByte(')')
		}
	}
}

func (p *printer) value(v ir.Value) {
	switch v.Kind {
	case ir.ValueVariable:
		p.out.WriteByte('$')
		p.out.WriteString(v.Raw)
	case ir.ValueString, ir.ValueBlockString:
		// Block strings reprint as regular strings. The canonical form only
		// has to round-trip the content, not the source syntax.
		p.out.WriteString(strconv.Quote(v.Raw))
	case ir.ValueNull:
		p.out.WriteString("null")
	case ir.ValueList:
		p.out.WriteByte('[')
		for i, child := range v.Children {
			if i > 0 {
				p.out.WriteString(", ")
			}
			p.value(child.Value)
		}
		p.out.WriteByte(']')
	case ir.ValueObject:
		p.out.WriteByte('{')
		for i, child := range v.Children {
			if i > 0 {
				p.out.WriteString(", ")
			}
			p.out.WriteString(child.Name)
			p.out.WriteString(": ")
			p.value(child.Value)
		}
		p.out.WriteByte('}')
	default:
		p.out.WriteString(v.Raw)
	}
}
