package source

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/errors"
)

// LoadSchemaSources reads a project's base schema and extension files into
// parser sources. Texts are also registered in the text set so schema
// diagnostics resolve like any other.
func LoadSchemaSources(dir string, project *config.Project, texts *TextSet) (base *ast.Source, extensions []*ast.Source, err error) {
	base, err = readSource(dir, project.Schema, texts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "project %s: schema", project.Name)
	}

	for _, path := range project.Extensions {
		ext, err := readSource(dir, path, texts)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "project %s: extension", project.Name)
		}
		extensions = append(extensions, ext)
	}
	return base, extensions, nil
}

// LoadDocuments globs a project's document patterns, reads every match, and
// parses each file. Parse failures across all files are collected into one
// batch; files that parse keep their ASTs regardless of failures elsewhere.
func LoadDocuments(dir string, project *config.Project, texts *TextSet) (*ASTSet, diag.List, error) {
	files, err := globDocuments(dir, project.Documents)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "project %s: document patterns", project.Name)
	}

	set := &ASTSet{}
	var diags diag.List
	for _, file := range files {
		src, err := readSource(dir, file, texts)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "project %s: document", project.Name)
		}

		doc, parseErr := parser.ParseQuery(src)
		if parseErr != nil {
			diags = diags.Merge(diag.FromGraphQLErrors(parseErr, src.Name))
			continue
		}
		set.Documents = append(set.Documents, ParsedDocument{File: src.Name, Doc: doc})
	}
	return set, diags, nil
}

// globDocuments expands doublestar patterns relative to dir, dedups files
// matched by several patterns, and returns config-relative paths in sorted
// order so builds see documents deterministically.
func globDocuments(dir string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(dir, match)
			if err != nil {
				rel = match
			}
			name := filepath.ToSlash(rel)
			if !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// readSource reads one file, registers its text under the config-relative
// name, and returns it as a parser source.
func readSource(dir, path string, texts *TextSet) (*ast.Source, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(dir, path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	name := filepath.ToSlash(path)
	if rel, err := filepath.Rel(dir, full); err == nil {
		name = filepath.ToSlash(rel)
	}

	text := string(data)
	if texts != nil {
		texts.Add(name, text)
	}
	return &ast.Source{Name: name, Input: text}, nil
}
