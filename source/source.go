// Package source loads the raw inputs of a build: schema SDL files and
// executable GraphQL documents. Loaded text is kept in a TextSet so
// diagnostics can be resolved back to the exact line that produced them.
package source

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// TextSet maps source names to their full text. It is filled during
// loading and read-only afterwards; every build stage shares one set.
type TextSet struct {
	texts map[string]string
}

// NewTextSet returns an empty text set.
func NewTextSet() *TextSet {
	return &TextSet{texts: make(map[string]string)}
}

// Add records a source text under its name. Later adds win, matching the
// loader's dedup behavior of reading each file once.
func (s *TextSet) Add(name, text string) {
	s.texts[name] = text
}

// Text returns the full text of a named source.
func (s *TextSet) Text(name string) (string, bool) {
	text, ok := s.texts[name]
	return text, ok
}

// Names returns all source names in sorted order.
func (s *TextSet) Names() []string {
	names := make([]string, 0, len(s.texts))
	for name := range s.texts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded sources.
func (s *TextSet) Len() int {
	return len(s.texts)
}

// ParsedDocument is one successfully parsed document file.
type ParsedDocument struct {
	File string
	Doc  *ast.QueryDocument
}

// ASTSet holds one project's parsed documents in load order.
type ASTSet struct {
	Documents []ParsedDocument
}

// Operations returns every operation definition across the set.
func (s *ASTSet) Operations() []*ast.OperationDefinition {
	var ops []*ast.OperationDefinition
	for _, d := range s.Documents {
		ops = append(ops, d.Doc.Operations...)
	}
	return ops
}

// Fragments returns every fragment definition across the set.
func (s *ASTSet) Fragments() []*ast.FragmentDefinition {
	var frags []*ast.FragmentDefinition
	for _, d := range s.Documents {
		frags = append(frags, d.Doc.Fragments...)
	}
	return frags
}

// DefinitionCount returns the number of executable definitions in the set.
func (s *ASTSet) DefinitionCount() int {
	n := 0
	for _, d := range s.Documents {
		n += len(d.Doc.Operations) + len(d.Doc.Fragments)
	}
	return n
}
