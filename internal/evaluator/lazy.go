package evaluator

import (
	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// lazyPanic is kept as a thin alias of runtime.LazyPanic so the rest of
// this package's `panic(lazyPanic{err})` call sites don't need touching;
// the actual recover boundary lives in runtime.SeqOf/SeqStep, shared with
// internal/vm so both backends force a LazySeq's thunk the same way.
type lazyPanic = runtime.LazyPanic

// evalLazySeq builds the LazySeq Value for `(lazy-seq body...)`: forcing
// it runs Thunk in the Environment current when the lazy-seq form was
// evaluated, panicking with lazyPanic on failure so runtime.SeqOf/SeqStep
// can turn it back into an error.
func (ev *Evaluator) evalLazySeq(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	thunk := func() runtime.Seq {
		v, err := ev.Eval(n.Thunk, env)
		if err != nil {
			panic(lazyPanic{Err: err})
		}
		if v == nil {
			return nil
		}
		s, err := ev.seqOf(v)
		if err != nil {
			panic(lazyPanic{Err: err})
		}
		return s
	}
	ls := runtime.NewLazySeq(thunk)
	if ev.Arena != nil {
		ev.Arena.Alloc(ls)
	}
	return ls, nil
}

// seqOf/seqToSlice/seqStep delegate to the shared runtime-level
// implementations (internal/vm uses the same three functions directly),
// kept as methods here only so existing call sites (ev.seqOf(...)) don't
// need rewriting throughout this package.
func (ev *Evaluator) seqOf(v runtime.Value) (runtime.Seq, error) { return runtime.SeqOf(v) }

func (ev *Evaluator) seqToSlice(v runtime.Value) ([]runtime.Value, error) {
	return runtime.SeqToSlice(v)
}

func (ev *Evaluator) seqStep(s runtime.Seq) (bool, runtime.Seq, runtime.Value, error) {
	return runtime.SeqStep(s)
}
