package vm

import (
	"strconv"

	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// zeroPos mirrors internal/evaluator/call.go's zeroPos: a call-site
// exception raised deep inside Apply/callValue has no Node of its own to
// report a position from.
var zeroPos errs.Position

// callValue is the VM's counterpart of internal/evaluator's Apply: every
// callable Value variant spec §3.1/§4.4 recognizes, dispatched the same
// way, substituting *Closure (this backend's own callable) for
// *runtime.Fn. It is the one place OpCall/OpTailCall, `apply`, a
// multimethod's resolved method, and a protocol method all funnel
// through, and the function value the lazy seq combinators in
// pipeline.go close over to invoke their fn/pred arguments.
func (vm *VM) callValue(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
	switch f := fn.(type) {
	case *Closure:
		return vm.callClosure(f, args)
	case *runtime.Builtin:
		return f.Fn(args)
	case *runtime.PartialFn:
		full := make([]runtime.Value, 0, len(f.Args)+len(args))
		full = append(full, f.Args...)
		full = append(full, args...)
		return vm.callValue(f.Fn, full)
	case *runtime.CompFn:
		return vm.callComp(f, args)
	case *runtime.MultiFn:
		return vm.callMultiFn(f, args)
	case *runtime.ProtocolFn:
		return vm.callProtocolFn(f, args)
	case *runtime.Keyword:
		return vm.callKeyword(f, args)
	default:
		return nil, runtime.NewException(runtime.ExType, "cannot call a non-function value: "+runtime.PrintValue(fn), nil, zeroPos)
	}
}

func (vm *VM) callComp(c *runtime.CompFn, args []runtime.Value) (runtime.Value, error) {
	if len(c.Fns) == 0 {
		if len(args) == 1 {
			return args[0], nil
		}
		return nil, runtime.NewException(runtime.ExArity, "(comp) with no functions takes exactly one argument", nil, zeroPos)
	}
	result, err := vm.callValue(c.Fns[len(c.Fns)-1], args)
	if err != nil {
		return nil, err
	}
	for i := len(c.Fns) - 2; i >= 0; i-- {
		result, err = vm.callValue(c.Fns[i], []runtime.Value{result})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (vm *VM) callMultiFn(m *runtime.MultiFn, args []runtime.Value) (runtime.Value, error) {
	dv, err := vm.callValue(m.DispatchFn, args)
	if err != nil {
		return nil, err
	}
	method, ok := m.Lookup(dv)
	if !ok {
		return nil, runtime.NewException(runtime.ExNoMatchingMethod,
			"no method in multimethod '"+m.Name+"' for dispatch value "+runtime.PrintValue(dv), nil, zeroPos)
	}
	return vm.callValue(method, args)
}

func (vm *VM) callProtocolFn(p *runtime.ProtocolFn, args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, runtime.NewException(runtime.ExArity, "protocol method "+p.MethodName+" requires at least one argument", nil, zeroPos)
	}
	typ := args[0].Type()
	impl, ok := vm.Env.Protocols.Resolve(p.ProtoName, typ, p.MethodName)
	if !ok {
		return nil, runtime.NewException(runtime.ExNoProtocolImpl,
			"no implementation of "+p.ProtoName+"/"+p.MethodName+" for type "+string(typ), nil, zeroPos)
	}
	return vm.callValue(impl, args)
}

func (vm *VM) callKeyword(k *runtime.Keyword, args []runtime.Value) (runtime.Value, error) {
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

func closureLabel(f *Closure) string {
	if f.Name == "" {
		return "fn"
	}
	return f.Name
}

// callClosure selects the matching arity and runs it to completion through
// runArity (a fresh Frame driven by run), trampolining on OpRecur the same
// way the evaluator's applyFn loop trampolines on a recurSignal — the
// bytecode equivalent just rewrites the current frame's ip/locals instead
// of returning a sentinel Value, since OpRecur is handled entirely inside
// the instruction loop (see vmexec.go's step).
func (vm *VM) callClosure(f *Closure, args []runtime.Value) (runtime.Value, error) {
	arity, ok := f.SelectArity(len(args))
	if !ok {
		return nil, runtime.NewException(runtime.ExArity,
			"wrong number of arguments ("+strconv.Itoa(len(args))+") passed to "+closureLabel(f), nil, zeroPos)
	}
	return vm.runArity(f, arity, args)
}
