// Package schema builds the immutable type system a project compiles
// against: the shared base SDL merged with the project's extensions, plus
// the client-side directives loom itself understands.
package schema

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/loomql/loom/diag"
)

// Directives the compiler consumes and strips before operation text is
// printed. Declared here so documents using them validate against any
// server schema.
const clientDirectivesSDL = `
"Marks a paginated field so the client runtime maintains a connection."
directive @connection(key: String!, filters: [String!]) on FIELD
`

// ClientDirectives are the directive names owned by the compiler.
var ClientDirectives = map[string]bool{
	"connection": true,
}

// Schema is one project's built type system. Immutable once constructed;
// concurrent builds may share it read-only.
type Schema struct {
	Project string
	AST     *ast.Schema
}

// Build constructs a project schema from the base SDL and the project's
// extension sources. Merge conflicts and structural problems come back as
// diagnostics positioned in the offending SDL file.
func Build(project string, base *ast.Source, extensions []*ast.Source) (*Schema, diag.List) {
	inputs := make([]*ast.Source, 0, len(extensions)+3)
	inputs = append(inputs,
		validator.Prelude,
		&ast.Source{Name: "loom/directives.graphql", Input: clientDirectivesSDL, BuiltIn: true},
		base,
	)
	inputs = append(inputs, extensions...)

	built, err := validator.LoadSchema(inputs...)
	if err != nil {
		fallback := ""
		if base != nil {
			fallback = base.Name
		}
		return nil, diag.FromGraphQLErrors(err, fallback)
	}

	return &Schema{Project: project, AST: built}, nil
}

// LookupType returns the named type definition, or nil.
func (s *Schema) LookupType(name string) *ast.Definition {
	return s.AST.Types[name]
}

// RootType returns the object type serving the given operation kind, or nil
// when the schema does not support it.
func (s *Schema) RootType(op ast.Operation) *ast.Definition {
	switch op {
	case ast.Query:
		return s.AST.Query
	case ast.Mutation:
		return s.AST.Mutation
	case ast.Subscription:
		return s.AST.Subscription
	}
	return nil
}

// FieldFor resolves a field on a parent type, including the __typename
// meta field every composite type carries.
func (s *Schema) FieldFor(parent *ast.Definition, name string) *ast.FieldDefinition {
	if name == "__typename" && IsComposite(parent) {
		return &ast.FieldDefinition{
			Name: "__typename",
			Type: ast.NonNullNamedType("String", nil),
		}
	}
	return parent.Fields.ForName(name)
}

// IsComposite reports whether a type can carry a selection set.
func IsComposite(def *ast.Definition) bool {
	if def == nil {
		return false
	}
	switch def.Kind {
	case ast.Object, ast.Interface, ast.Union:
		return true
	}
	return false
}

// PossibleTypes returns the concrete object types a composite type can be
// at runtime.
func (s *Schema) PossibleTypes(def *ast.Definition) []*ast.Definition {
	if def == nil {
		return nil
	}
	if def.Kind == ast.Object {
		return []*ast.Definition{def}
	}
	return s.AST.PossibleTypes[def.Name]
}

// TypesOverlap reports whether two composite types share at least one
// possible runtime type, i.e. a fragment on one may legally spread into a
// selection of the other.
func (s *Schema) TypesOverlap(a, b *ast.Definition) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Name == b.Name {
		return true
	}
	possible := make(map[string]bool)
	for _, t := range s.PossibleTypes(a) {
		possible[t.Name] = true
	}
	for _, t := range s.PossibleTypes(b) {
		if possible[t.Name] {
			return true
		}
	}
	return false
}
