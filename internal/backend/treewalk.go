package backend

import (
	"io"
	"os"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/evaluator"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// TreeWalkBackend wraps internal/evaluator.Evaluator, grounded on
// internal/backend/treewalk.go's identically-named wrapper; simplified
// since this module has no module loader or trait registry to thread
// through — one Env/Arena pair is all an Evaluator needs.
type TreeWalkBackend struct {
	ev *evaluator.Evaluator
}

// NewTreeWalk builds a tree-walk backend over env/arena whose print output
// goes to out (the evaluator's default, os.Stdout, when out is nil).
func NewTreeWalk(env *runtime.Env, arena *heap.Arena, out io.Writer) *TreeWalkBackend {
	ev := evaluator.New(env, arena)
	if out != nil {
		ev.Out = out
	}
	return &TreeWalkBackend{ev: ev}
}

func (b *TreeWalkBackend) RunTop(f *ast.Form) (runtime.Value, error) {
	return b.ev.EvalTop(f)
}

func (b *TreeWalkBackend) Name() string { return "treewalk" }

// Evaluator exposes the wrapped evaluator for callers that need its
// Env/Analyzer directly.
func (b *TreeWalkBackend) Evaluator() *evaluator.Evaluator { return b.ev }

// NewTreeWalkStdout is a convenience constructor writing print/println
// straight to the process's own stdout.
func NewTreeWalkStdout(env *runtime.Env, arena *heap.Arena) *TreeWalkBackend {
	return NewTreeWalk(env, arena, os.Stdout)
}
