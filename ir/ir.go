// Package ir defines the typed intermediate representation the compiler
// builds from parsed documents. Every selection is resolved against the
// project schema, so later stages never consult raw ASTs.
package ir

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/diag"
)

// Definition is one compiled executable definition: an Operation or a
// Fragment.
type Definition interface {
	// DefinitionName returns the user-visible name.
	DefinitionName() string
	// SelectionSet returns the definition's top-level selections.
	SelectionSet() []Selection
	definitionNode()
}

// Operation is a type-checked query, mutation, or subscription.
type Operation struct {
	Name       string
	Kind       ast.Operation
	RootType   string // Name of the schema type the operation selects on
	Variables  []Variable
	Directives []Directive
	Selections []Selection
	Ref        diag.SourceRef
}

func (o *Operation) DefinitionName() string    { return o.Name }
func (o *Operation) SelectionSet() []Selection { return o.Selections }
func (o *Operation) definitionNode()           {}

// Fragment is a type-checked named fragment.
type Fragment struct {
	Name          string
	TypeCondition string
	Directives    []Directive
	Selections    []Selection
	Ref           diag.SourceRef
}

func (f *Fragment) DefinitionName() string    { return f.Name }
func (f *Fragment) SelectionSet() []Selection { return f.Selections }
func (f *Fragment) definitionNode()           {}

// Variable is one declared operation variable.
type Variable struct {
	Name    string
	Type    string // Printed type, e.g. "[ID!]!"
	Default *Value // nil when no default
	Ref     diag.SourceRef
}

// Selection is one entry in a selection set: a Field, FragmentSpread, or
// InlineFragment.
type Selection interface {
	selectionNode()
}

// Field is a resolved field selection.
type Field struct {
	Alias      string // Empty when the field is not aliased
	Name       string
	Type       string // Printed field type, e.g. "User!"
	TypeName   string // Underlying named type, e.g. "User"
	Composite  bool   // Whether the field's type carries subselections
	Arguments  []Argument
	Directives []Directive
	Selections []Selection
	Ref        diag.SourceRef
}

func (f *Field) selectionNode() {}

// ResponseKey returns the key the field occupies in a response object.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// FragmentSpread references a named fragment. Foreign spreads resolve to a
// fragment defined in the project's base and stay references throughout.
type FragmentSpread struct {
	Name       string
	Foreign    bool
	Directives []Directive
	Ref        diag.SourceRef
}

func (s *FragmentSpread) selectionNode() {}

// InlineFragment is an anonymous fragment with an optional type condition.
// An empty TypeCondition inherits the enclosing type.
type InlineFragment struct {
	TypeCondition string
	Directives    []Directive
	Selections    []Selection
	Ref           diag.SourceRef
}

func (f *InlineFragment) selectionNode() {}

// Argument is one named argument value.
type Argument struct {
	Name  string
	Value Value
	Ref   diag.SourceRef
}

// Directive is one applied directive.
type Directive struct {
	Name      string
	Arguments []Argument
	Ref       diag.SourceRef
}

// ArgumentValue returns the value of a named argument.
func (d Directive) ArgumentValue(name string) (Value, bool) {
	for _, arg := range d.Arguments {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return Value{}, false
}

// ValueKind discriminates Value variants.
type ValueKind int

const (
	ValueVariable ValueKind = iota
	ValueInt
	ValueFloat
	ValueString
	ValueBlockString
	ValueBoolean
	ValueNull
	ValueEnum
	ValueList
	ValueObject
)

func (k ValueKind) String() string {
	switch k {
	case ValueVariable:
		return "Variable"
	case ValueInt:
		return "Int"
	case ValueFloat:
		return "Float"
	case ValueString:
		return "String"
	case ValueBlockString:
		return "BlockString"
	case ValueBoolean:
		return "Boolean"
	case ValueNull:
		return "Null"
	case ValueEnum:
		return "Enum"
	case ValueList:
		return "List"
	case ValueObject:
		return "Object"
	}
	return "Unknown"
}

// Value is a literal or variable argument value.
type Value struct {
	Kind     ValueKind
	Raw      string // Scalar text, variable name, or enum member
	Children []ObjectField
}

// ObjectField is one child of a list or object value. List items carry an
// empty Name.
type ObjectField struct {
	Name  string
	Value Value
}

// NameSet is a set of definition names.
type NameSet map[string]bool

// NewNameSet returns an empty name set.
func NewNameSet() NameSet { return make(NameSet) }

// Add inserts a name.
func (s NameSet) Add(name string) { s[name] = true }

// Has reports membership.
func (s NameSet) Has(name string) bool { return s[name] }

// Names returns the members in sorted order.
func (s NameSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the output of building a project's IR.
type Result struct {
	// Definitions holds the project's own compiled definitions in document
	// order. Base fragments are never included.
	Definitions []Definition

	// BaseFragmentNames lists the fragments this project spreads but whose
	// definitions live in the base project.
	BaseFragmentNames NameSet
}
