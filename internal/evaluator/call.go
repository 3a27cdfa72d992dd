package evaluator

import (
	"strconv"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// zeroPos is used by call-site exceptions that have no Node of their own
// to report a position from (a recur-arity mismatch discovered mid-
// trampoline, a missing protocol impl): the position of the original
// call expression is already lost by the time Apply runs.
var zeroPos errs.Position

// Apply invokes fn on args, dispatching over every callable Value variant
// spec §3.1/§4.4 recognize. It is the one place every call path — ordinary
// KCall, `apply`, a multimethod's resolved method, a protocol method, and
// the Analyzer's own macro-expansion hook — ultimately goes through.
func (ev *Evaluator) Apply(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
	switch f := fn.(type) {
	case *runtime.Fn:
		return ev.applyFn(f, args)
	case *runtime.Builtin:
		return f.Fn(args)
	case *runtime.PartialFn:
		full := make([]runtime.Value, 0, len(f.Args)+len(args))
		full = append(full, f.Args...)
		full = append(full, args...)
		return ev.Apply(f.Fn, full)
	case *runtime.CompFn:
		return ev.applyComp(f, args)
	case *runtime.MultiFn:
		return ev.applyMultiFn(f, args)
	case *runtime.ProtocolFn:
		return ev.applyProtocolFn(f, args)
	case *runtime.Keyword:
		// Keywords are callable on a map/set: `(:k m)` looks up :k in m,
		// with an optional not-found default as the second arg.
		return ev.applyKeyword(f, args)
	default:
		return nil, runtime.NewException(runtime.ExType, "cannot call a non-function value: "+runtime.PrintValue(fn), nil, zeroPos)
	}
}

// applyFn selects the matching arity, binds params in a fresh child of the
// closure's captured Environment, and trampolines on a recurSignal from
// the arity's own tail position (spec §4.4's recur protocol extended to
// ordinary self-calls, not just `loop`).
func (ev *Evaluator) applyFn(f *runtime.Fn, args []runtime.Value) (runtime.Value, error) {
	arity, ok := f.SelectArity(len(args))
	if !ok {
		return nil, runtime.NewException(runtime.ExArity,
			"wrong number of arguments ("+strconv.Itoa(len(args))+") passed to "+fnLabel(f), nil, zeroPos)
	}
	var ce *closureEnv
	if len(f.Closure) > 0 {
		ce, _ = f.Closure[0].(*closureEnv)
	}
	if ce == nil {
		ce = &closureEnv{}
	}

	for {
		ev.safepoint()
		frame := NewEnvironment(ce.env)
		bindParams(frame, arity.Params, arity.Variadic, args)
		ev.pushFrame(frame)
		body := arity.Body.(*analyzer.Node)
		result, err := ev.Eval(body, frame)
		ev.popFrame()
		if err != nil {
			return nil, err
		}
		rs, isRecur := result.(*recurSignal)
		if !isRecur {
			return result, nil
		}
		args = rs.args
		next, ok := f.SelectArity(len(args))
		if !ok {
			return nil, runtime.NewException(runtime.ExArity, "recur argument count does not match any arity of "+fnLabel(f), nil, zeroPos)
		}
		arity = next
	}
}

// bindParams binds the fixed params positionally and, for a variadic
// arity, collects the remaining actuals into a List bound to the last
// param (spec §4.4's "& rest" convention).
func bindParams(frame *Environment, params []string, variadic bool, args []runtime.Value) {
	fixed := len(params)
	if variadic {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		frame.Define(params[i], args[i])
	}
	if variadic {
		var rest []runtime.Value
		if len(args) > fixed {
			rest = args[fixed:]
		}
		frame.Define(params[fixed], runtime.NewList(rest...))
	}
}

func fnLabel(f *runtime.Fn) string {
	if f.Name == "" {
		return "fn"
	}
	return f.Name
}

// applyComp runs a CompFn's members right-to-left, per `comp`'s contract:
// the last fn is called with the original args, every fn before it with
// the single result of its right-hand neighbor.
func (ev *Evaluator) applyComp(c *runtime.CompFn, args []runtime.Value) (runtime.Value, error) {
	if len(c.Fns) == 0 {
		if len(args) == 1 {
			return args[0], nil
		}
		return nil, runtime.NewException(runtime.ExArity, "(comp) with no functions takes exactly one argument", nil, zeroPos)
	}
	result, err := ev.Apply(c.Fns[len(c.Fns)-1], args)
	if err != nil {
		return nil, err
	}
	for i := len(c.Fns) - 2; i >= 0; i-- {
		result, err = ev.Apply(c.Fns[i], []runtime.Value{result})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// applyMultiFn runs DispatchFn over args to get a dispatch value, then
// resolves and invokes the matching method (spec §4.6); no match and no
// :default is the no_matching_method exception.
func (ev *Evaluator) applyMultiFn(m *runtime.MultiFn, args []runtime.Value) (runtime.Value, error) {
	dv, err := ev.Apply(m.DispatchFn, args)
	if err != nil {
		return nil, err
	}
	method, ok := m.Lookup(dv)
	if !ok {
		return nil, runtime.NewException(runtime.ExNoMatchingMethod,
			"no method in multimethod '"+m.Name+"' for dispatch value "+runtime.PrintValue(dv), nil, zeroPos)
	}
	return ev.Apply(method, args)
}

// applyProtocolFn dispatches on the ValueType tag of the first argument
// (spec §4.6): no extension for that (protocol, type) pair is the
// no_protocol_impl exception.
func (ev *Evaluator) applyProtocolFn(p *runtime.ProtocolFn, args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, runtime.NewException(runtime.ExArity, "protocol method "+p.MethodName+" requires at least one argument", nil, zeroPos)
	}
	typ := args[0].Type()
	impl, ok := ev.Env.Protocols.Resolve(p.ProtoName, typ, p.MethodName)
	if !ok {
		return nil, runtime.NewException(runtime.ExNoProtocolImpl,
			"no implementation of "+p.ProtoName+"/"+p.MethodName+" for type "+string(typ), nil, zeroPos)
	}
	return ev.Apply(impl, args)
}

// applyKeyword implements a keyword used in function position: `(:k m)`
// looks up :k in m (a map or any Seqable of [k v] pairs won't satisfy
// this, only an actual map/set), with an optional not-found default.
func (ev *Evaluator) applyKeyword(k *runtime.Keyword, args []runtime.Value) (runtime.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, runtime.NewException(runtime.ExArity, "keyword lookup takes one or two arguments", nil, zeroPos)
	}
	var notFound runtime.Value = runtime.Nil{}
	if len(args) == 2 {
		notFound = args[1]
	}
	switch coll := args[0].(type) {
	case *runtime.PersistentMap:
		if v, ok := coll.Get(k); ok {
			return v, nil
		}
		return notFound, nil
	case *runtime.Set:
		if coll.Contains(k) {
			return k, nil
		}
		return notFound, nil
	default:
		return notFound, nil
	}
}
