// Package transform fans a validated Program out into the per-target
// Programs the artifact generator consumes. Every transform derives a new
// Program; the validated input is shared and never mutated.
package transform

import (
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
)

// Target names one output representation of a compiled project.
type Target string

const (
	// TargetReader keeps fragment boundaries for the client's data masking.
	TargetReader Target = "reader"
	// TargetNormalization is the store-shaped form: fragments inlined,
	// __typename everywhere the store needs it.
	TargetNormalization Target = "normalization"
	// TargetOperationText is the server-facing form: inlined, client
	// directives stripped.
	TargetOperationText Target = "operationtext"
)

// Targets returns every target in fan-out order.
func Targets() []Target {
	return []Target{TargetReader, TargetNormalization, TargetOperationText}
}

// Transform is one named, pure Program derivation step.
type Transform struct {
	Name string
	Func func(*program.Program) *program.Program
}

// DefaultChains returns the transform chain for each target. The chains are
// data so a new target only touches this table, never the driver.
func DefaultChains(base ir.NameSet) map[Target][]Transform {
	return map[Target][]Transform{
		TargetReader: {
			Flatten(),
		},
		TargetNormalization: {
			InlineFragments(base),
			Flatten(),
			AddTypename(),
		},
		TargetOperationText: {
			InlineFragments(base),
			StripClientDirectives(),
			Flatten(),
		},
	}
}

// TargetSet holds the derived Program for every target.
type TargetSet struct {
	programs map[Target]*program.Program
}

// Program returns the derived Program for a target, or nil for an unknown
// target name.
func (s *TargetSet) Program(target Target) *program.Program {
	return s.programs[target]
}

// Apply runs every default chain against the validated Program. Output is
// deterministic: the same Program and base set always derive identical
// target Programs.
func Apply(p *program.Program, base ir.NameSet) *TargetSet {
	chains := DefaultChains(base)
	set := &TargetSet{programs: make(map[Target]*program.Program, len(chains))}
	for _, target := range Targets() {
		derived := p
		for _, step := range chains[target] {
			derived = step.Func(derived)
		}
		set.programs[target] = derived
	}
	return set
}
