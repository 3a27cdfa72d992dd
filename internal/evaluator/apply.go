package evaluator

import (
	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// evalApply evaluates `(apply fn args... coll)`: the leading args are
// passed positionally, and the trailing coll is spread as the remaining
// actuals (spec §3.1's apply variant).
func (ev *Evaluator) evalApply(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fnVal, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	args, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	tailVal, err := ev.Eval(n.SeqTail, env)
	if err != nil {
		return nil, err
	}
	tail, err := ev.seqToSlice(tailVal)
	if err != nil {
		return nil, err
	}
	return ev.Apply(fnVal, append(args, tail...))
}

// evalPartial builds a PartialFn closing over the already-evaluated
// leading args (spec's "held as explicit variants to preserve
// printability").
func (ev *Evaluator) evalPartial(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fnVal, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	args, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	pf := &runtime.PartialFn{Fn: fnVal, Args: args}
	if ev.Arena != nil {
		ev.Arena.Alloc(pf)
	}
	return pf, nil
}

// evalComp builds a CompFn of the given fns, in the order written (the
// rightmost is called first when the CompFn is later applied).
func (ev *Evaluator) evalComp(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fns, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	cf := &runtime.CompFn{Fns: fns}
	if ev.Arena != nil {
		ev.Arena.Alloc(cf)
	}
	return cf, nil
}

// evalSwap implements `(swap! atom f args...)` (spec §4.7): the core is
// single-threaded, so there is no compare-and-set retry loop — f runs once
// against the current value, the validator (if any) vets the candidate,
// and watchers fire on success.
func (ev *Evaluator) evalSwap(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	atomVal, err := ev.Eval(n.Atom, env)
	if err != nil {
		return nil, err
	}
	atom, ok := atomVal.(*runtime.Atom)
	if !ok {
		return nil, runtime.NewException(runtime.ExType, "swap! requires an atom", nil, n.Pos)
	}
	fnVal, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	extra, err := ev.evalArgs(n.Args, env)
	if err != nil {
		return nil, err
	}
	callArgs := append([]runtime.Value{atom.Deref()}, extra...)
	newVal, err := ev.Apply(fnVal, callArgs)
	if err != nil {
		return nil, err
	}
	if v := atom.Validator(); v != nil {
		ok, verr := ev.Apply(v, []runtime.Value{newVal})
		if verr != nil {
			return nil, verr
		}
		if !runtime.Truthy(ok) {
			return nil, runtime.NewException(runtime.ExType, "invalid value for atom's validator", nil, n.Pos)
		}
	}
	old := atom.Reset(newVal)
	for _, w := range atom.Watchers() {
		if _, werr := ev.Apply(w.Val, []runtime.Value{w.Key, atom, old, newVal}); werr != nil {
			return nil, werr
		}
	}
	return newVal, nil
}

func (ev *Evaluator) evalArgs(nodes []*analyzer.Node, env *Environment) ([]runtime.Value, error) {
	out := make([]runtime.Value, len(nodes))
	for i, a := range nodes {
		v, err := ev.Eval(a, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
