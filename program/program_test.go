package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, diags := schema.Build("app", &ast.Source{
		Name:  "schema.graphql",
		Input: "type Query { name: String }",
	}, nil)
	require.False(t, diags.HasErrors())
	return sch
}

func testDefs() []ir.Definition {
	return []ir.Definition{
		&ir.Operation{Name: "AppQuery", Kind: ast.Query, RootType: "Query"},
		&ir.Fragment{Name: "AppBits", TypeCondition: "Query"},
		&ir.Operation{Name: "OtherQuery", Kind: ast.Query, RootType: "Query"},
	}
}

func TestFromIR(t *testing.T) {
	sch := testSchema(t)
	p := FromIR(sch, testDefs())

	assert.Equal(t, 3, p.Len())
	assert.Same(t, sch, p.Schema())

	names := make([]string, 0, p.Len())
	for _, def := range p.Definitions() {
		names = append(names, def.DefinitionName())
	}
	assert.Equal(t, []string{"AppQuery", "AppBits", "OtherQuery"}, names)
}

func TestLookups(t *testing.T) {
	p := FromIR(testSchema(t), testDefs())

	def, ok := p.Definition("AppQuery")
	require.True(t, ok)
	assert.Equal(t, "AppQuery", def.DefinitionName())

	_, ok = p.Definition("Missing")
	assert.False(t, ok)

	frag, ok := p.Fragment("AppBits")
	require.True(t, ok)
	assert.Equal(t, "Query", frag.TypeCondition)

	_, ok = p.Fragment("AppQuery")
	assert.False(t, ok, "operation name should not resolve as a fragment")

	assert.Len(t, p.Operations(), 2)
	assert.Len(t, p.Fragments(), 1)
}

func TestWithDefinitions(t *testing.T) {
	p := FromIR(testSchema(t), testDefs())

	trimmed := p.WithDefinitions(p.Definitions()[:1])
	assert.Equal(t, 1, trimmed.Len())
	assert.Same(t, p.Schema(), trimmed.Schema())

	// The source Program is untouched.
	assert.Equal(t, 3, p.Len())
	_, ok := p.Fragment("AppBits")
	assert.True(t, ok)
	_, ok = trimmed.Fragment("AppBits")
	assert.False(t, ok)
}
