// Package evaluator implements the tree-walking Eval of spec §4.4: it
// walks an internal/analyzer.Node directly, maintains the lexical
// Environment and the call/recur protocol, and is the evaluator half of
// the differential "compare mode" oracle internal/backend drives against
// internal/vm. Grounded on internal/evaluator/evaluator.go's central Eval
// switch and internal/evaluator/expressions_calls.go's call dispatch,
// generalized from the teacher's static type-checked calls to this
// language's arity-dispatch + variadic + recur trampoline.
package evaluator

import (
	"io"
	"os"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// gcEveryNAllocs is the safe-point cadence: the evaluator offers the arena
// a chance to collect after roughly this many allocations since the last
// collection, at the well-defined points spec §4.2 names (call entry,
// loop back-edge). A real deployment would tune this; it is not exposed as
// a CLI flag since nothing in spec §6 asks for one.
const gcEveryNAllocs = 4096

// Evaluator owns one REPL/file session's worth of state: the global Env
// (namespaces and Vars), the managed heap, and the Analyzer it drives —
// constructing the Analyzer itself so it can close Analyzer.Invoke over
// its own Apply (spec §4.3 step 6), without internal/analyzer importing
// this package.
type Evaluator struct {
	Env      *runtime.Env
	Analyzer *analyzer.Analyzer
	Arena    *heap.Arena
	Out      io.Writer // destination for print/println/pr/prn, os.Stdout by default

	stack       []*Environment // currently active call frames, for FrameRoots
	lastGCAlloc int
}

// New builds an Evaluator over env (a fresh runtime.NewEnv() for a new
// session, or a reused one to continue a REPL), wires macro expansion, and
// registers every core built-in (SPEC_FULL §A.2).
func New(env *runtime.Env, arena *heap.Arena) *Evaluator {
	ev := &Evaluator{Env: env, Arena: arena, Out: os.Stdout}
	an := analyzer.New(env)
	an.Invoke = func(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return ev.Apply(fn, args)
	}
	ev.Analyzer = an
	RegisterCore(ev)
	return ev
}

// EvalTop analyzes and evaluates one top-level Form (spec §4.3/§4.4's
// combined pipeline entry point), the unit the reader and the REPL both
// operate on.
func (ev *Evaluator) EvalTop(f *ast.Form) (runtime.Value, error) {
	node, err := ev.Analyzer.AnalyzeTop(f)
	if err != nil {
		return nil, err
	}
	return ev.Eval(node, nil)
}

// pushFrame/popFrame track the live Environment chain for FrameRoots
// (spec §4.2's "evaluator's binding stack" root category): each call
// pushes its innermost frame, and every ancestor is already reachable
// through Environment.parent, so FrameRoots only needs the leaves.
func (ev *Evaluator) pushFrame(env *Environment) { ev.stack = append(ev.stack, env) }
func (ev *Evaluator) popFrame()                  { ev.stack = ev.stack[:len(ev.stack)-1] }

func (ev *Evaluator) frames() [][]runtime.Value {
	out := make([][]runtime.Value, len(ev.stack))
	for i, e := range ev.stack {
		out[i] = e.frameValues()
	}
	return out
}

// safepoint offers the arena a chance to collect, at the call-entry and
// loop-back-edge points spec §4.2 names. A no-op when no arena is wired
// (tests that exercise Eval without GC pressure).
func (ev *Evaluator) safepoint() {
	if ev.Arena == nil {
		return
	}
	threshold := gcEveryNAllocs
	if ev.Arena.Threshold > 0 {
		threshold = ev.Arena.Threshold
	}
	if ev.Arena.Stats().Allocations-ev.lastGCAlloc < threshold {
		return
	}
	ev.Arena.Collect(heap.EnvRoots{Env: ev.Env}, heap.FrameRoots(ev.frames))
	ev.lastGCAlloc = ev.Arena.Stats().Allocations
}
