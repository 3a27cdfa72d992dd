package heap

import (
	"fmt"

	"github.com/clj-core/clj/internal/runtime"
)

// children returns every Value v directly references, so Collect's trace
// can reach everything transitively live. This switch must be statically
// total over every concrete Value variant internal/runtime defines (spec
// §4.2's "fixup completeness"): adding a new variant there and forgetting
// it here is a use-after-free hazard in a real copying collector, so the
// default arm panics loudly instead of silently treating an unknown
// variant as childless.
func children(v runtime.Value) []runtime.Value {
	switch val := v.(type) {
	// Scalars: no payload pointers to trace.
	case runtime.Nil, runtime.Bool, runtime.Int, runtime.Float, runtime.Char, runtime.String:
		return nil
	case *runtime.Symbol, *runtime.Keyword:
		return nil

	case *runtime.List:
		return seqChildren(val.Seq())
	case *runtime.ConsSeq:
		return seqChildren(val)

	case *runtime.Vector:
		return append([]runtime.Value(nil), val.Items()...)

	case *runtime.PersistentMap:
		out := make([]runtime.Value, 0, val.Count()*2)
		for _, e := range val.Entries() {
			out = append(out, e.Key, e.Val)
		}
		return out

	case *runtime.Set:
		return append([]runtime.Value(nil), val.Items()...)

	case *runtime.Builtin:
		return nil

	case *runtime.Fn:
		return append([]runtime.Value(nil), val.Closure...)

	case *runtime.PartialFn:
		out := append([]runtime.Value{val.Fn}, val.Args...)
		return out

	case *runtime.CompFn:
		return append([]runtime.Value(nil), val.Fns...)

	case *runtime.MultiFn:
		out := []runtime.Value{val.DispatchFn}
		if val.Default != nil {
			out = append(out, val.Default)
		}
		for _, e := range val.Methods().Entries() {
			out = append(out, e.Key, e.Val)
		}
		return out

	case *runtime.Protocol, *runtime.ProtocolFn:
		// Protocols and protocol-method handles are process-lifetime
		// infrastructure (like Namespaces), not value payloads with
		// children of their own; see protocol.go's doc comment.
		return nil

	case *runtime.Atom:
		out := []runtime.Value{val.Deref()}
		if val.Validator() != nil {
			out = append(out, val.Validator())
		}
		for _, e := range val.Watchers() {
			out = append(out, e.Key, e.Val)
		}
		return out

	case *runtime.LazySeq:
		// Only walk an already-realized cache. Calling Force() here would
		// run the thunk from inside the tracer: for `lazy-seq` bodies that
		// is internal/evaluator's evalLazySeq thunk, which calls back into
		// ev.Eval -> ev.safepoint -> possibly Arena.Collect, re-entering
		// the collector while it is still running. It would also hang
		// forever on an infinite live seq (e.g. `(iterate inc 0)` held by
		// a root), since seqChildren below keeps calling Rest() until
		// Empty(). An unrealized cell is traced as childless; the thunk
		// closes over a Go-level *Environment rather than a traced Value,
		// so Go's own collector (not this Arena) is what keeps its
		// captured values alive until the thunk runs.
		if !val.Realized() {
			return nil
		}
		return seqChildren(val.Cached())

	case *runtime.Var:
		out := []runtime.Value{val.RootValue()}
		out = append(out, val.BindingStack()...)
		for _, e := range val.Watchers() {
			out = append(out, e.Key, e.Val)
		}
		return out

	case *runtime.Exception:
		out := []runtime.Value{}
		if val.Data != nil {
			out = append(out, val.Data)
		}
		if val.Payload != nil {
			out = append(out, val.Payload)
		}
		return out

	// Any remaining Seq-shaped variant (a string's char view, a vector's
	// index view, the empty-seq sentinel — all unexported adaptor types
	// internal/runtime never hands out except wrapped in this interface)
	// holds no payload beyond the elements seqChildren already walks.
	case runtime.Seq:
		return seqChildren(val)

	default:
		panic(fmt.Sprintf("heap: trace is not exhaustive for value of type %T", v))
	}
}

// seqChildren walks a Seq's cons chain and returns every element, used for
// the several Seq-shaped variants (List, ConsSeq, a forced LazySeq) whose
// elements are the only thing worth tracing — the chain's internal nodes
// (runeSeq, vectorSeq, emptySeq) are derived views that hold no Value of
// their own beyond what's already returned here, and never escape to
// become a root by themselves.
func seqChildren(s runtime.Seq) []runtime.Value {
	var out []runtime.Value
	for cur := s; cur != nil; {
		// A cons chain can bottom out in an unrealized *LazySeq tail (e.g.
		// `(cons x (lazy-seq ...))`); stop here rather than calling
		// Empty()/Rest() on it, which would Force() it from the tracer.
		if ls, ok := cur.(*runtime.LazySeq); ok && !ls.Realized() {
			break
		}
		if cur.Empty() {
			break
		}
		out = append(out, cur.First())
		cur = cur.Rest()
	}
	return out
}
