package ir

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/schema"
	"github.com/loomql/loom/source"
)

// Rule names attached to builder diagnostics.
const (
	RuleAnonymousOperation   = "anonymous-operation"
	RuleDuplicateDefinition  = "duplicate-definition"
	RuleUnsupportedOperation = "unsupported-operation"
	RuleUnknownField         = "unknown-field"
	RuleMissingSelection     = "missing-selection"
	RuleLeafSelection        = "leaf-selection"
	RuleUnknownFragment      = "unknown-fragment"
	RuleUnknownType          = "unknown-type"
	RuleInvalidTypeCondition = "invalid-type-condition"
	RuleIncompatibleSpread   = "incompatible-spread"
	RuleUnknownArgument      = "unknown-argument"
	RuleMissingArgument      = "missing-argument"
	RuleUnknownDirective     = "unknown-directive"
	RuleInvalidVariableType  = "invalid-variable-type"
	RuleUndefinedVariable    = "undefined-variable"
	RuleFragmentCycle        = "fragment-cycle"
)

// Build type-checks a project's parsed documents against its schema and
// desugars them into typed IR. Every discoverable problem is collected
// before the builder gives up: the returned list carries the whole batch,
// and a Result is only returned when the batch holds no errors.
//
// Fragment spreads resolve against the project's own fragments first, then
// against the base project's. Spreads that resolve to a base fragment are
// recorded in BaseFragmentNames and stay references; the base project's
// definitions are never re-checked here and never enter the IR.
func Build(project string, sch *schema.Schema, docs *source.ASTSet, baseFragments []*ast.FragmentDefinition) (*Result, diag.List) {
	b := &builder{
		project:        project,
		sch:            sch,
		localFragments: make(map[string]*ast.FragmentDefinition),
		baseFragments:  make(map[string]*ast.FragmentDefinition),
		baseNames:      NewNameSet(),
	}

	for _, frag := range baseFragments {
		b.baseFragments[frag.Name] = frag
	}

	// Index local fragments first so spreads resolve regardless of file order.
	for _, doc := range docs.Documents {
		for _, frag := range doc.Doc.Fragments {
			if prev, ok := b.localFragments[frag.Name]; ok {
				b.errorf(frag.Position, RuleDuplicateDefinition,
					"fragment %q is already defined in %s", frag.Name, fileOf(prev.Position))
				continue
			}
			b.localFragments[frag.Name] = frag
		}
	}

	// Spread cycles would make fragment inlining non-terminating, so they
	// are rejected here with everything else.
	b.checkFragmentCycles()

	result := &Result{BaseFragmentNames: b.baseNames}
	seenOps := make(map[string]*ast.Position)

	for _, doc := range docs.Documents {
		for _, op := range doc.Doc.Operations {
			if def := b.buildOperation(op, seenOps); def != nil {
				result.Definitions = append(result.Definitions, def)
			}
		}
		for _, frag := range doc.Doc.Fragments {
			if b.localFragments[frag.Name] != frag {
				// A duplicate flagged during indexing.
				continue
			}
			if def := b.buildFragment(frag); def != nil {
				result.Definitions = append(result.Definitions, def)
			}
		}
	}

	b.diags.Sort()
	if b.diags.HasErrors() {
		return nil, b.diags
	}
	return result, b.diags
}

type builder struct {
	project        string
	sch            *schema.Schema
	localFragments map[string]*ast.FragmentDefinition
	baseFragments  map[string]*ast.FragmentDefinition
	baseNames      NameSet
	diags          diag.List
}

func (b *builder) errorf(pos *ast.Position, rule, format string, args ...interface{}) {
	b.diags = b.diags.Append(diag.Errorf(diag.RefFromPosition(pos), format, args...).WithRule(rule))
}

func fileOf(pos *ast.Position) string {
	if pos == nil || pos.Src == nil {
		return "another file"
	}
	return pos.Src.Name
}

// varTracker records variable usage inside one operation.
type varTracker struct {
	used map[string]diag.SourceRef
}

func (t *varTracker) use(name string, ref diag.SourceRef) {
	if t == nil {
		return
	}
	if t.used == nil {
		t.used = make(map[string]diag.SourceRef)
	}
	if _, ok := t.used[name]; !ok {
		t.used[name] = ref
	}
}

func (b *builder) buildOperation(op *ast.OperationDefinition, seen map[string]*ast.Position) Definition {
	if op.Name == "" {
		b.errorf(op.Position, RuleAnonymousOperation,
			"anonymous operations are not allowed; name every %s", op.Operation)
		return nil
	}
	if prev, ok := seen[op.Name]; ok {
		b.errorf(op.Position, RuleDuplicateDefinition,
			"operation %q is already defined in %s", op.Name, fileOf(prev))
		return nil
	}
	seen[op.Name] = op.Position

	root := b.sch.RootType(op.Operation)
	if root == nil {
		b.errorf(op.Position, RuleUnsupportedOperation,
			"schema does not define a %s root type", op.Operation)
		return nil
	}

	vars := &varTracker{}
	declared := make(map[string]bool, len(op.VariableDefinitions))

	out := &Operation{
		Name:     op.Name,
		Kind:     op.Operation,
		RootType: root.Name,
		Ref:      diag.RefFromPosition(op.Position),
	}

	for _, vd := range op.VariableDefinitions {
		declared[vd.Variable] = true
		out.Variables = append(out.Variables, b.buildVariable(vd))
	}
	out.Directives = b.buildDirectives(op.Directives, vars)
	out.Selections = b.buildSelections(root, op.SelectionSet, vars)

	// Variables used directly by this operation must be declared on it.
	// Uses inside spread fragments belong to the fragment's own contract.
	names := make([]string, 0, len(vars.used))
	for name := range vars.used {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !declared[name] {
			b.diags = b.diags.Append(diag.Errorf(vars.used[name],
				"variable $%s is not declared by operation %q", name, op.Name).
				WithRule(RuleUndefinedVariable))
		}
	}

	return out
}

func (b *builder) buildVariable(vd *ast.VariableDefinition) Variable {
	out := Variable{
		Name: vd.Variable,
		Type: vd.Type.String(),
		Ref:  diag.RefFromPosition(vd.Position),
	}

	typeDef := b.sch.LookupType(vd.Type.Name())
	switch {
	case typeDef == nil:
		b.errorf(vd.Position, RuleUnknownType,
			"variable $%s references unknown type %q", vd.Variable, vd.Type.Name())
	case typeDef.Kind != ast.Scalar && typeDef.Kind != ast.Enum && typeDef.Kind != ast.InputObject:
		b.errorf(vd.Position, RuleInvalidVariableType,
			"variable $%s cannot use %s type %q", vd.Variable, kindNoun(typeDef.Kind), vd.Type.Name())
	}

	if vd.DefaultValue != nil {
		v := b.convertValue(vd.DefaultValue, nil)
		out.Default = &v
	}
	return out
}

func (b *builder) buildFragment(frag *ast.FragmentDefinition) Definition {
	condDef := b.sch.LookupType(frag.TypeCondition)
	if condDef == nil {
		b.errorf(frag.Position, RuleUnknownType,
			"fragment %q is on unknown type %q", frag.Name, frag.TypeCondition)
		return nil
	}
	if !schema.IsComposite(condDef) {
		b.errorf(frag.Position, RuleInvalidTypeCondition,
			"fragment %q cannot condition on %s %q", frag.Name, kindNoun(condDef.Kind), frag.TypeCondition)
		return nil
	}

	return &Fragment{
		Name:          frag.Name,
		TypeCondition: frag.TypeCondition,
		Directives:    b.buildDirectives(frag.Directives, nil),
		Selections:    b.buildSelections(condDef, frag.SelectionSet, nil),
		Ref:           diag.RefFromPosition(frag.Position),
	}
}

func (b *builder) buildSelections(parent *ast.Definition, sels ast.SelectionSet, vars *varTracker) []Selection {
	var out []Selection
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			if field := b.buildField(parent, s, vars); field != nil {
				out = append(out, field)
			}
		case *ast.FragmentSpread:
			if spread := b.buildSpread(parent, s, vars); spread != nil {
				out = append(out, spread)
			}
		case *ast.InlineFragment:
			if inline := b.buildInline(parent, s, vars); inline != nil {
				out = append(out, inline)
			}
		}
	}
	return out
}

func (b *builder) buildField(parent *ast.Definition, f *ast.Field, vars *varTracker) *Field {
	fieldDef := b.sch.FieldFor(parent, f.Name)
	if fieldDef == nil {
		b.errorf(f.Position, RuleUnknownField,
			"field %q not found on type %q", f.Name, parent.Name)
		return nil
	}

	typeName := fieldDef.Type.Name()
	typeDef := b.sch.LookupType(typeName)
	composite := schema.IsComposite(typeDef)

	if composite && len(f.SelectionSet) == 0 {
		b.errorf(f.Position, RuleMissingSelection,
			"field %q of type %q must have a selection of subfields", f.Name, fieldDef.Type.String())
	}
	if !composite && len(f.SelectionSet) > 0 {
		b.errorf(f.Position, RuleLeafSelection,
			"field %q of type %q cannot have a selection", f.Name, fieldDef.Type.String())
	}

	out := &Field{
		Name:      f.Name,
		Type:      fieldDef.Type.String(),
		TypeName:  typeName,
		Composite: composite,
		Ref:       diag.RefFromPosition(f.Position),
	}
	if f.Alias != "" && f.Alias != f.Name {
		out.Alias = f.Alias
	}

	for _, arg := range f.Arguments {
		if fieldDef.Arguments.ForName(arg.Name) == nil {
			b.errorf(arg.Position, RuleUnknownArgument,
				"unknown argument %q on field %q", arg.Name, f.Name)
		}
		out.Arguments = append(out.Arguments, Argument{
			Name:  arg.Name,
			Value: b.convertValue(arg.Value, vars),
			Ref:   diag.RefFromPosition(arg.Position),
		})
	}
	for _, argDef := range fieldDef.Arguments {
		if argDef.Type.NonNull && argDef.DefaultValue == nil && f.Arguments.ForName(argDef.Name) == nil {
			b.errorf(f.Position, RuleMissingArgument,
				"argument %q required by field %q is missing", argDef.Name, f.Name)
		}
	}

	out.Directives = b.buildDirectives(f.Directives, vars)

	if composite && len(f.SelectionSet) > 0 {
		out.Selections = b.buildSelections(typeDef, f.SelectionSet, vars)
	}
	return out
}

func (b *builder) buildSpread(parent *ast.Definition, s *ast.FragmentSpread, vars *varTracker) *FragmentSpread {
	var condition string
	foreign := false

	if local, ok := b.localFragments[s.Name]; ok {
		condition = local.TypeCondition
	} else if base, ok := b.baseFragments[s.Name]; ok {
		condition = base.TypeCondition
		foreign = true
		b.baseNames.Add(s.Name)
	} else {
		b.errorf(s.Position, RuleUnknownFragment, "unknown fragment %q", s.Name)
		return nil
	}

	if condDef := b.sch.LookupType(condition); condDef != nil && !b.sch.TypesOverlap(parent, condDef) {
		b.errorf(s.Position, RuleIncompatibleSpread,
			"fragment %q on %q can never apply to %q", s.Name, condition, parent.Name)
	}

	return &FragmentSpread{
		Name:       s.Name,
		Foreign:    foreign,
		Directives: b.buildDirectives(s.Directives, vars),
		Ref:        diag.RefFromPosition(s.Position),
	}
}

func (b *builder) buildInline(parent *ast.Definition, f *ast.InlineFragment, vars *varTracker) *InlineFragment {
	target := parent
	if f.TypeCondition != "" {
		condDef := b.sch.LookupType(f.TypeCondition)
		if condDef == nil {
			b.errorf(f.Position, RuleUnknownType,
				"inline fragment on unknown type %q", f.TypeCondition)
			return nil
		}
		if !schema.IsComposite(condDef) {
			b.errorf(f.Position, RuleInvalidTypeCondition,
				"inline fragment cannot condition on %s %q", kindNoun(condDef.Kind), f.TypeCondition)
			return nil
		}
		if !b.sch.TypesOverlap(parent, condDef) {
			b.errorf(f.Position, RuleIncompatibleSpread,
				"inline fragment on %q can never apply to %q", f.TypeCondition, parent.Name)
		}
		target = condDef
	}

	return &InlineFragment{
		TypeCondition: f.TypeCondition,
		Directives:    b.buildDirectives(f.Directives, vars),
		Selections:    b.buildSelections(target, f.SelectionSet, vars),
		Ref:           diag.RefFromPosition(f.Position),
	}
}

func (b *builder) buildDirectives(dirs ast.DirectiveList, vars *varTracker) []Directive {
	var out []Directive
	for _, d := range dirs {
		if b.sch.AST.Directives[d.Name] == nil {
			b.errorf(d.Position, RuleUnknownDirective, "unknown directive @%s", d.Name)
		}
		dir := Directive{Name: d.Name, Ref: diag.RefFromPosition(d.Position)}
		for _, arg := range d.Arguments {
			dir.Arguments = append(dir.Arguments, Argument{
				Name:  arg.Name,
				Value: b.convertValue(arg.Value, vars),
				Ref:   diag.RefFromPosition(arg.Position),
			})
		}
		out = append(out, dir)
	}
	return out
}

func (b *builder) convertValue(v *ast.Value, vars *varTracker) Value {
	if v == nil {
		return Value{Kind: ValueNull}
	}

	out := Value{Raw: v.Raw}
	switch v.Kind {
	case ast.Variable:
		out.Kind = ValueVariable
		if vars != nil {
			vars.use(v.Raw, diag.RefFromPosition(v.Position))
		}
	case ast.IntValue:
		out.Kind = ValueInt
	case ast.FloatValue:
		out.Kind = ValueFloat
	case ast.StringValue:
		out.Kind = ValueString
	case ast.BlockValue:
		out.Kind = ValueBlockString
	case ast.BooleanValue:
		out.Kind = ValueBoolean
	case ast.NullValue:
		out.Kind = ValueNull
	case ast.EnumValue:
		out.Kind = ValueEnum
	case ast.ListValue:
		out.Kind = ValueList
		for _, child := range v.Children {
			out.Children = append(out.Children, ObjectField{
				Value: b.convertValue(child.Value, vars),
			})
		}
	case ast.ObjectValue:
		out.Kind = ValueObject
		for _, child := range v.Children {
			out.Children = append(out.Children, ObjectField{
				Name:  child.Name,
				Value: b.convertValue(child.Value, vars),
			})
		}
	}
	return out
}

func (b *builder) checkFragmentCycles() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(b.localFragments))

	var visit func(name string)
	visit = func(name string) {
		state[name] = visiting
		for _, spread := range astSpreads(b.localFragments[name].SelectionSet) {
			if _, ok := b.localFragments[spread.Name]; !ok {
				continue
			}
			switch state[spread.Name] {
			case visiting:
				b.errorf(spread.Position, RuleFragmentCycle,
					"spreading %q here creates a fragment cycle", spread.Name)
			case unvisited:
				visit(spread.Name)
			}
		}
		state[name] = done
	}

	names := make([]string, 0, len(b.localFragments))
	for name := range b.localFragments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if state[name] == unvisited {
			visit(name)
		}
	}
}

// astSpreads collects every fragment spread in a selection set, including
// those nested under fields and inline fragments.
func astSpreads(sels ast.SelectionSet) []*ast.FragmentSpread {
	var out []*ast.FragmentSpread
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.FragmentSpread:
			out = append(out, s)
		case *ast.Field:
			out = append(out, astSpreads(s.SelectionSet)...)
		case *ast.InlineFragment:
			out = append(out, astSpreads(s.SelectionSet)...)
		}
	}
	return out
}

func kindNoun(kind ast.DefinitionKind) string {
	switch kind {
	case ast.Scalar:
		return "scalar"
	case ast.Enum:
		return "enum"
	case ast.InputObject:
		return "input object"
	case ast.Object:
		return "object"
	case ast.Interface:
		return "interface"
	case ast.Union:
		return "union"
	}
	return "type"
}
