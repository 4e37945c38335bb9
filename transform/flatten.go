package transform

import (
	"strconv"
	"strings"

	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
)

// Flatten canonicalizes every selection set: transparent inline fragments
// (no directives, condition absent or equal to the enclosing type) are
// spliced into their parent, and sibling selections with identical shape
// merge into one. Fields merge only when name, alias, arguments, and
// directives all agree, so conditional selections survive untouched.
func Flatten() Transform {
	return Transform{
		Name: "flatten",
		Func: func(p *program.Program) *program.Program {
			defs := make([]ir.Definition, 0, p.Len())
			for _, def := range p.Definitions() {
				switch d := def.(type) {
				case *ir.Operation:
					op := *d
					op.Selections = flattenSelections(d.RootType, d.Selections)
					defs = append(defs, &op)
				case *ir.Fragment:
					frag := *d
					frag.Selections = flattenSelections(d.TypeCondition, d.Selections)
					defs = append(defs, &frag)
				}
			}
			return p.WithDefinitions(defs)
		},
	}
}

func flattenSelections(parentType string, sels []ir.Selection) []ir.Selection {
	if len(sels) == 0 {
		return nil
	}

	flat := spliceTransparent(parentType, sels)

	out := make([]ir.Selection, 0, len(flat))
	index := make(map[string]int, len(flat))
	for _, sel := range flat {
		key := selectionKey(sel)
		prev, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, sel)
			continue
		}
		switch merged := out[prev].(type) {
		case *ir.Field:
			field := *merged
			field.Selections = concatSelections(merged.Selections, sel.(*ir.Field).Selections)
			out[prev] = &field
		case *ir.InlineFragment:
			inline := *merged
			inline.Selections = concatSelections(merged.Selections, sel.(*ir.InlineFragment).Selections)
			out[prev] = &inline
		default:
			// Identical spreads collapse to the first occurrence.
		}
	}

	for i, sel := range out {
		switch s := sel.(type) {
		case *ir.Field:
			if len(s.Selections) == 0 {
				continue
			}
			field := *s
			field.Selections = flattenSelections(s.TypeName, s.Selections)
			out[i] = &field
		case *ir.InlineFragment:
			cond := s.TypeCondition
			if cond == "" {
				cond = parentType
			}
			inline := *s
			inline.Selections = flattenSelections(cond, s.Selections)
			out[i] = &inline
		}
	}
	return out
}

func spliceTransparent(parentType string, sels []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(sels))
	for _, sel := range sels {
		inline, ok := sel.(*ir.InlineFragment)
		if ok && len(inline.Directives) == 0 &&
			(inline.TypeCondition == "" || inline.TypeCondition == parentType) {
			out = append(out, spliceTransparent(parentType, inline.Selections)...)
			continue
		}
		out = append(out, sel)
	}
	return out
}

func concatSelections(a, b []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// selectionKey renders the identity of a selection: everything except its
// child selections and source position. Selections sharing a key are
// semantically the same node and safe to merge.
func selectionKey(sel ir.Selection) string {
	var b strings.Builder
	switch s := sel.(type) {
	case *ir.Field:
		b.WriteString("f\x00")
		b.WriteString(s.ResponseKey())
		b.WriteString("\x00")
		b.WriteString(s.Name)
		b.WriteString("\x00")
		writeArguments(&b, s.Arguments)
		b.WriteString("\x00")
		writeDirectives(&b, s.Directives)
	case *ir.FragmentSpread:
		b.WriteString("s\x00")
		b.WriteString(s.Name)
		b.WriteString("\x00")
		writeDirectives(&b, s.Directives)
	case *ir.InlineFragment:
		b.WriteString("i\x00")
		b.WriteString(s.TypeCondition)
		b.WriteString("\x00")
		writeDirectives(&b, s.Directives)
	}
	return b.String()
}

func writeArguments(b *strings.Builder, args []ir.Argument) {
	for _, arg := range args {
		b.WriteString(arg.Name)
		b.WriteByte('=')
		writeValue(b, arg.Value)
		b.WriteByte(';')
	}
}

func writeDirectives(b *strings.Builder, dirs []ir.Directive) {
	for _, d := range dirs {
		b.WriteByte('@')
		b.WriteString(d.Name)
		b.WriteByte('(')
		writeArguments(b, d.Arguments)
		b.WriteByte(')')
	}
}

func writeValue(b *strings.Builder, v ir.Value) {
	b.WriteString(strconv.Itoa(int(v.Kind)))
	b.WriteByte(':')
	b.WriteString(v.Raw)
	if len(v.Children) == 0 {
		return
	}
	b.WriteByte('{')
	for _, child := range v.Children {
		b.WriteString(child.Name)
		b.WriteByte('=')
		writeValue(b, child.Value)
		b.WriteByte(';')
	}
	b.WriteByte('}')
}
