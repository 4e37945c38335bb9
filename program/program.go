// Package program pairs a project's compiled definitions with the schema
// they were checked against. A Program is the unit the validator and the
// transform chains operate on.
package program

import (
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/schema"
)

// Program is an immutable set of compiled definitions. Transforms never
// mutate one; they derive new Programs via WithDefinitions.
type Program struct {
	schema *schema.Schema
	defs   []ir.Definition
	byName map[string]ir.Definition
}

// FromIR builds a Program over the given definitions. Order is preserved;
// the IR builder has already rejected duplicate names.
func FromIR(sch *schema.Schema, defs []ir.Definition) *Program {
	p := &Program{
		schema: sch,
		defs:   defs,
		byName: make(map[string]ir.Definition, len(defs)),
	}
	for _, def := range defs {
		p.byName[def.DefinitionName()] = def
	}
	return p
}

// WithDefinitions returns a new Program over defs, sharing the schema.
func (p *Program) WithDefinitions(defs []ir.Definition) *Program {
	return FromIR(p.schema, defs)
}

// Schema returns the type system the definitions were compiled against.
func (p *Program) Schema() *schema.Schema {
	return p.schema
}

// Definitions returns the compiled definitions in insertion order. Callers
// must not modify the returned slice.
func (p *Program) Definitions() []ir.Definition {
	return p.defs
}

// Len returns the number of definitions.
func (p *Program) Len() int {
	return len(p.defs)
}

// Definition returns the named definition.
func (p *Program) Definition(name string) (ir.Definition, bool) {
	def, ok := p.byName[name]
	return def, ok
}

// Fragment returns the named fragment, or false when the name is absent or
// names an operation.
func (p *Program) Fragment(name string) (*ir.Fragment, bool) {
	frag, ok := p.byName[name].(*ir.Fragment)
	return frag, ok
}

// Operations returns the operations in insertion order.
func (p *Program) Operations() []*ir.Operation {
	var ops []*ir.Operation
	for _, def := range p.defs {
		if op, ok := def.(*ir.Operation); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Fragments returns the fragments in insertion order.
func (p *Program) Fragments() []*ir.Fragment {
	var frags []*ir.Fragment
	for _, def := range p.defs {
		if frag, ok := def.(*ir.Fragment); ok {
			frags = append(frags, frag)
		}
	}
	return frags
}
