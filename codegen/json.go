package codegen

import (
	"encoding/json"

	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/ir"
)

// The JSON artifact shape. Struct field order fixes the key order, so
// identical definitions always marshal to identical bytes.

type defNode struct {
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Operation     string    `json:"operation,omitempty"`
	RootType      string    `json:"rootType,omitempty"`
	TypeCondition string    `json:"typeCondition,omitempty"`
	Variables     []varNode `json:"variables,omitempty"`
	Directives    []dirNode `json:"directives,omitempty"`
	Selections    []selNode `json:"selections"`
}

type varNode struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Default *valNode `json:"default,omitempty"`
}

type selNode struct {
	Kind          string    `json:"kind"`
	Name          string    `json:"name,omitempty"`
	Alias         string    `json:"alias,omitempty"`
	Type          string    `json:"type,omitempty"`
	TypeCondition string    `json:"typeCondition,omitempty"`
	Foreign       bool      `json:"foreign,omitempty"`
	Arguments     []argNode `json:"arguments,omitempty"`
	Directives    []dirNode `json:"directives,omitempty"`
	Selections    []selNode `json:"selections,omitempty"`
}

type argNode struct {
	Name  string  `json:"name"`
	Value valNode `json:"value"`
}

type dirNode struct {
	Name      string    `json:"name"`
	Arguments []argNode `json:"arguments,omitempty"`
}

type valNode struct {
	Kind   string         `json:"kind"`
	Value  string         `json:"value,omitempty"`
	Items  []valNode      `json:"items,omitempty"`
	Fields []fieldValNode `json:"fields,omitempty"`
}

type fieldValNode struct {
	Name  string  `json:"name"`
	Value valNode `json:"value"`
}

func marshalDefinition(def ir.Definition) ([]byte, error) {
	out, err := json.MarshalIndent(definitionNode(def), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode definition")
	}
	return append(out, '\n'), nil
}

func definitionNode(def ir.Definition) defNode {
	switch d := def.(type) {
	case *ir.Operation:
		node := defNode{
			Kind:       "Operation",
			Name:       d.Name,
			Operation:  string(d.Kind),
			RootType:   d.RootType,
			Directives: directiveNodes(d.Directives),
			Selections: selectionNodes(d.Selections),
		}
		for _, v := range d.Variables {
			vn := varNode{Name: v.Name, Type: v.Type}
			if v.Default != nil {
				dv := valueNode(*v.Default)
				vn.Default = &dv
			}
			node.Variables = append(node.Variables, vn)
		}
		return node
	case *ir.Fragment:
		return defNode{
			Kind:          "Fragment",
			Name:          d.Name,
			TypeCondition: d.TypeCondition,
			Directives:    directiveNodes(d.Directives),
			Selections:    selectionNodes(d.Selections),
		}
	}
	return defNode{}
}

func selectionNodes(sels []ir.Selection) []selNode {
	var out []selNode
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ir.Field:
			out = append(out, selNode{
				Kind:       "Field",
				Name:       s.Name,
				Alias:      s.Alias,
				Type:       s.Type,
				Arguments:  argumentNodes(s.Arguments),
				Directives: directiveNodes(s.Directives),
				Selections: selectionNodes(s.Selections),
			})
		case *ir.FragmentSpread:
			out = append(out, selNode{
				Kind:       "FragmentSpread",
				Name:       s.Name,
				Foreign:    s.Foreign,
				Directives: directiveNodes(s.Directives),
			})
		case *ir.InlineFragment:
			out = append(out, selNode{
				Kind:          "InlineFragment",
				TypeCondition: s.TypeCondition,
				Directives:    directiveNodes(s.Directives),
				Selections:    selectionNodes(s.Selections),
			})
		}
	}
	return out
}

func argumentNodes(args []ir.Argument) []argNode {
	var out []argNode
	for _, arg := range args {
		out = append(out, argNode{Name: arg.Name, Value: valueNode(arg.Value)})
	}
	return out
}

func directiveNodes(dirs []ir.Directive) []dirNode {
	var out []dirNode
	for _, d := range dirs {
		out = append(out, dirNode{Name: d.Name, Arguments: argumentNodes(d.Arguments)})
	}
	return out
}

func valueNode(v ir.Value) valNode {
	node := valNode{Kind: v.Kind.String()}
	switch v.Kind {
	case ir.ValueList:
		for _, child := range v.Children {
			node.Items = append(node.Items, valueNode(child.Value))
		}
	case ir.ValueObject:
		for _, child := range v.Children {
			node.Fields = append(node.Fields, fieldValNode{
				Name:  child.Name,
				Value: valueNode(child.Value),
			})
		}
	case ir.ValueNull:
	default:
		node.Value = v.Raw
	}
	return node
}
