package transform

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/schema"
	"github.com/loomql/loom/source"
)

const testSDL = `
type Query {
  me: User
  search: [SearchResult!]
}

type User {
  id: ID!
  name: String
  posts(first: Int): [Post!]
}

type Post {
  id: ID!
  title: String!
}

union SearchResult = User | Post
`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, diags := schema.Build("app", &ast.Source{Name: "schema.graphql", Input: testSDL}, nil)
	require.False(t, diags.HasErrors(), "schema should build: %v", diags)
	return sch
}

// compile runs real documents through the front half of the pipeline so
// transforms operate on the structures they see in production.
func compile(t *testing.T, docs map[string]string, baseDocs ...string) (*program.Program, ir.NameSet) {
	t.Helper()
	sch := testSchema(t)

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	set := &source.ASTSet{}
	for _, name := range names {
		doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: docs[name]})
		require.NoError(t, err)
		set.Documents = append(set.Documents, source.ParsedDocument{File: name, Doc: doc})
	}

	var base []*ast.FragmentDefinition
	for i, text := range baseDocs {
		doc, err := parser.ParseQuery(&ast.Source{Name: "base/frag.graphql", Input: text})
		require.NoError(t, err)
		require.NotEmpty(t, doc.Fragments, "base doc %d must hold a fragment", i)
		base = append(base, doc.Fragments...)
	}

	res, diags := ir.Build("app", sch, set, base)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)
	return program.FromIR(sch, res.Definitions), res.BaseFragmentNames
}

func selectionNames(sels []ir.Selection) []string {
	var out []string
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			out = append(out, s.Name)
		case *ir.FragmentSpread:
			out = append(out, "..."+s.Name)
		case *ir.InlineFragment:
			out = append(out, "... on "+s.TypeCondition)
		}
	}
	return out
}

func firstOperation(t *testing.T, p *program.Program) *ir.Operation {
	t.Helper()
	ops := p.Operations()
	require.NotEmpty(t, ops)
	return ops[0]
}

func TestApplyFanOut(t *testing.T) {
	p, base := compile(t, map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits id } }",
	})

	set := Apply(p, base)

	reader := set.Program(TargetReader)
	require.NotNil(t, reader)
	assert.Equal(t, 2, reader.Len(), "reader keeps fragment definitions")
	_, ok := reader.Fragment("UserBits")
	assert.True(t, ok)
	me := firstOperation(t, reader).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"...UserBits", "id"}, selectionNames(me.Selections))

	norm := set.Program(TargetNormalization)
	assert.Equal(t, 1, norm.Len(), "normalization holds operations only")
	me = firstOperation(t, norm).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"name", "id", "__typename"}, selectionNames(me.Selections))

	text := set.Program(TargetOperationText)
	assert.Equal(t, 1, text.Len())
	me = firstOperation(t, text).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"name", "id"}, selectionNames(me.Selections))

	assert.Nil(t, set.Program(Target("unknown")))
}

func TestInlineKeepsForeignSpreads(t *testing.T) {
	p, base := compile(t, map[string]string{
		"src/q.graphql": "query UserQuery { me { ...BaseBits } }",
	}, "fragment BaseBits on User { id }")

	out := InlineFragments(base).Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	require.Len(t, me.Selections, 1)
	spread, ok := me.Selections[0].(*ir.FragmentSpread)
	require.True(t, ok, "foreign spread must stay a reference")
	assert.True(t, spread.Foreign)
	assert.Equal(t, "BaseBits", spread.Name)
}

func TestInlineDoesNotMutateInput(t *testing.T) {
	docs := map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits } }",
	}
	p, base := compile(t, docs)

	out := InlineFragments(base).Func(p)

	assert.Equal(t, 1, out.Len())
	inlined := firstOperation(t, out).Selections[0].(*ir.Field)
	inline, ok := inlined.Selections[0].(*ir.InlineFragment)
	require.True(t, ok)
	assert.Equal(t, "User", inline.TypeCondition)

	// The source Program still holds the fragment and the spread.
	assert.Equal(t, 2, p.Len())
	_, ok = p.Fragment("UserBits")
	assert.True(t, ok)
	me := firstOperation(t, p).Selections[0].(*ir.Field)
	_, ok = me.Selections[0].(*ir.FragmentSpread)
	assert.True(t, ok)
}

func TestInlineMissingFragmentPanics(t *testing.T) {
	op := &ir.Operation{
		Name:       "BrokenQuery",
		Kind:       ast.Query,
		RootType:   "Query",
		Selections: []ir.Selection{&ir.FragmentSpread{Name: "Nope"}},
	}
	p := program.FromIR(testSchema(t), []ir.Definition{op})

	assert.Panics(t, func() {
		InlineFragments(ir.NewNameSet()).Func(p)
	})
}

func TestFlattenMergesDuplicateFields(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": `query UserQuery {
  me {
    id
    name
  }
  me {
    id
    posts {
      id
    }
  }
}`,
	})

	out := Flatten().Func(p)

	op := firstOperation(t, out)
	require.Len(t, op.Selections, 1, "duplicate me fields should merge")
	me := op.Selections[0].(*ir.Field)
	assert.Equal(t, []string{"id", "name", "posts"}, selectionNames(me.Selections))
}

func TestFlattenSplicesMatchingInline(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": "query UserQuery { me { ... on User { name } id } }",
	})

	out := Flatten().Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"name", "id"}, selectionNames(me.Selections))
}

func TestFlattenKeepsNonMatchingInline(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": "query SearchQuery { search { ... on User { name } } }",
	})

	out := Flatten().Func(p)

	search := firstOperation(t, out).Selections[0].(*ir.Field)
	require.Len(t, search.Selections, 1)
	inline, ok := search.Selections[0].(*ir.InlineFragment)
	require.True(t, ok)
	assert.Equal(t, "User", inline.TypeCondition)
}

func TestFlattenKeepsDirectiveInline(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": `query UserQuery($all: Boolean!) {
  me {
    ... @include(if: $all) {
      id
    }
    id
  }
}`,
	})

	out := Flatten().Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"... on ", "id"}, selectionNames(me.Selections))
}

func TestFlattenCollapsesDuplicateSpreads(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits ...UserBits } }",
	})

	out := Flatten().Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"...UserBits"}, selectionNames(me.Selections))
}

func TestAddTypename(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": "query UserQuery { me { id } }",
	})

	out := AddTypename().Func(p)

	op := firstOperation(t, out)
	require.Len(t, op.Selections, 1, "root selection set stays untouched")
	me := op.Selections[0].(*ir.Field)
	assert.Equal(t, []string{"id", "__typename"}, selectionNames(me.Selections))

	added := me.Selections[1].(*ir.Field)
	assert.Equal(t, "String!", added.Type)
	assert.False(t, added.Composite)
}

func TestAddTypenameSkipsExisting(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": "query UserQuery { me { __typename id } }",
	})

	out := AddTypename().Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	assert.Equal(t, []string{"__typename", "id"}, selectionNames(me.Selections))
}

func TestStripClientDirectives(t *testing.T) {
	p, _ := compile(t, map[string]string{
		"src/q.graphql": `query FeedQuery($all: Boolean!) {
  me {
    posts(first: 1) @connection(key: "User_posts") @include(if: $all) {
      id
    }
  }
}`,
	})

	out := StripClientDirectives().Func(p)

	me := firstOperation(t, out).Selections[0].(*ir.Field)
	posts := me.Selections[0].(*ir.Field)
	require.Len(t, posts.Directives, 1, "@connection should be stripped")
	assert.Equal(t, "include", posts.Directives[0].Name)

	// The source Program keeps both directives.
	posts = firstOperation(t, p).Selections[0].(*ir.Field).Selections[0].(*ir.Field)
	assert.Len(t, posts.Directives, 2)
}

func TestApplyDeterministic(t *testing.T) {
	p, base := compile(t, map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name posts { id } }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits id } search { ... on Post { title } } }",
	})

	first := Apply(p, base)
	second := Apply(p, base)

	for _, target := range Targets() {
		assert.Equal(t,
			first.Program(target).Definitions(),
			second.Program(target).Definitions(),
			"target %s must derive identically", target)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	docs := map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits id id } }",
	}
	p, base := compile(t, docs)
	pristine, _ := compile(t, docs)

	Apply(p, base)

	assert.Equal(t, pristine.Definitions(), p.Definitions())
}
