package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const baseSDL = `
type Query {
  me: User
  node(id: ID!): Node
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String!
}

type Post implements Node {
  id: ID!
  title: String!
}

union SearchResult = User | Post
`

func buildTestSchema(t *testing.T, extensions ...string) *Schema {
	t.Helper()
	var extSources []*ast.Source
	for _, ext := range extensions {
		extSources = append(extSources, &ast.Source{Name: "ext.graphql", Input: ext})
	}
	s, diags := Build("app", &ast.Source{Name: "schema.graphql", Input: baseSDL}, extSources)
	require.Empty(t, diags)
	require.NotNil(t, s)
	return s
}

func TestBuild(t *testing.T) {
	s := buildTestSchema(t)

	assert.Equal(t, "app", s.Project)
	assert.NotNil(t, s.LookupType("User"))
	assert.NotNil(t, s.AST.Query)
	assert.Nil(t, s.AST.Mutation)
}

func TestBuildMergesExtensions(t *testing.T) {
	s := buildTestSchema(t, `
extend type Query {
  viewerCount: Int!
}

type Team {
  id: ID!
}
`)

	query := s.RootType(ast.Query)
	require.NotNil(t, query)
	assert.NotNil(t, query.Fields.ForName("viewerCount"))
	assert.NotNil(t, s.LookupType("Team"))
}

func TestBuildDeclaresClientDirectives(t *testing.T) {
	s := buildTestSchema(t)
	assert.NotNil(t, s.AST.Directives["connection"])
	assert.True(t, ClientDirectives["connection"])
}

func TestBuildReportsConflicts(t *testing.T) {
	// Redefining User collides with the base schema.
	_, diags := Build("app",
		&ast.Source{Name: "schema.graphql", Input: baseSDL},
		[]*ast.Source{{Name: "ext.graphql", Input: "type User { id: ID! }"}},
	)
	require.NotEmpty(t, diags)
	assert.True(t, diags.HasErrors())
}

func TestFieldFor(t *testing.T) {
	s := buildTestSchema(t)
	user := s.LookupType("User")

	name := s.FieldFor(user, "name")
	require.NotNil(t, name)
	assert.Equal(t, "String!", name.Type.String())

	assert.Nil(t, s.FieldFor(user, "email"))

	typename := s.FieldFor(user, "__typename")
	require.NotNil(t, typename)
	assert.Equal(t, "String!", typename.Type.String())
}

func TestIsComposite(t *testing.T) {
	s := buildTestSchema(t)

	assert.True(t, IsComposite(s.LookupType("User")))
	assert.True(t, IsComposite(s.LookupType("Node")))
	assert.True(t, IsComposite(s.LookupType("SearchResult")))
	assert.False(t, IsComposite(s.LookupType("String")))
	assert.False(t, IsComposite(nil))
}

func TestTypesOverlap(t *testing.T) {
	s := buildTestSchema(t)

	user := s.LookupType("User")
	post := s.LookupType("Post")
	node := s.LookupType("Node")
	search := s.LookupType("SearchResult")

	assert.True(t, s.TypesOverlap(user, user))
	assert.True(t, s.TypesOverlap(user, node), "User implements Node")
	assert.True(t, s.TypesOverlap(search, post), "Post is a SearchResult member")
	assert.True(t, s.TypesOverlap(node, search), "User and Post are in both")
	assert.False(t, s.TypesOverlap(user, post))
}
