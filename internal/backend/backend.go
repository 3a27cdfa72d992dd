// Package backend provides an interface for the two execution backends
// (spec §4.4/§4.5) plus the differential "compare" oracle spec §4.5's final
// bullet and §6's `--compare` flag drive between them. Grounded on
// internal/backend/backend.go's Backend interface; adapted since this
// module has no internal/pipeline package of its own — a Backend here runs
// directly off an already-read *ast.Form against a shared *runtime.Env,
// rather than off a PipelineContext produced by an upstream analysis stage.
package backend

import (
	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/runtime"
)

// Backend is one of the two ways to run an analyzed top-level Form: the
// tree-walking Evaluator or the bytecode Compiler+VM (spec §4.4, §4.5).
type Backend interface {
	// RunTop analyzes and executes one top-level Form, returning its value.
	RunTop(f *ast.Form) (runtime.Value, error)

	// Name identifies the backend for --dump-bytecode/--compare diagnostics
	// and the `backend.default` config knob (SPEC_FULL §A.3).
	Name() string
}
