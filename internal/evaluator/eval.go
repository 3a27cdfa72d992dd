package evaluator

import (
	"fmt"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// recurSignal is the trampoline sentinel a KRecur Node evaluates to: it
// satisfies runtime.Value only so it can travel through the same
// (Value, error) return Eval already uses, never escaping past the
// loop/fn call site that is waiting for it (spec §4.4's recur protocol —
// "rebinds and jumps back without growing the call stack").
type recurSignal struct{ args []runtime.Value }

func (*recurSignal) Type() runtime.ValueType { return "" }
func (*recurSignal) Print() string           { return "#<recur>" }
func (*recurSignal) Hash() uint32            { return 0 }

// closureEnv is the one-element capsule a KFn Node stores in
// runtime.Fn.Closure: the tree-walker closes over the defining
// *Environment by reference rather than flattening captured locals into a
// slot-indexed slice (that flattening is internal/vm's job, done at
// compile time over the same Node). It satisfies runtime.Value purely so
// it fits the Closure []runtime.Value field; Apply type-asserts it back.
type closureEnv struct{ env *Environment }

func (*closureEnv) Type() runtime.ValueType { return "" }
func (*closureEnv) Print() string           { return "#<closure-env>" }
func (*closureEnv) Hash() uint32            { return 0 }

// Eval walks Node n under lexical frame env (nil at the top level, where
// only Var lookups and literals are meaningful until a let/fn introduces
// locals), implementing spec §4.4.
func (ev *Evaluator) Eval(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	switch n.Kind {
	case analyzer.KConstant:
		return n.Const, nil
	case analyzer.KQuote:
		return n.QuoteVal, nil
	case analyzer.KVarRef:
		if !n.Var.HasRoot() {
			return nil, runtime.NewException(runtime.ExUnresolvedVar, fmt.Sprintf("unbound var: %s/%s", n.Var.Namespace, n.Var.Name), nil, n.Pos)
		}
		return n.Var.Get(), nil
	case analyzer.KLocalRef:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, runtime.NewException(runtime.ExUnresolvedVar, "unbound local: "+n.Name, nil, n.Pos)
		}
		return v, nil
	case analyzer.KIf:
		test, err := ev.Eval(n.Test, env)
		if err != nil {
			return nil, err
		}
		if runtime.Truthy(test) {
			return ev.Eval(n.Then, env)
		}
		if n.Else == nil {
			return runtime.Nil{}, nil
		}
		return ev.Eval(n.Else, env)
	case analyzer.KDo:
		return ev.evalBody(n.Stmts, env)
	case analyzer.KLet:
		return ev.evalLet(n, env)
	case analyzer.KRecur:
		args := make([]runtime.Value, len(n.RecurArgs))
		for i, a := range n.RecurArgs {
			v, err := ev.Eval(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return &recurSignal{args: args}, nil
	case analyzer.KFn:
		return ev.evalFn(n, env)
	case analyzer.KLetFn:
		return ev.evalLetFn(n, env)
	case analyzer.KCall:
		return ev.evalCall(n, env)
	case analyzer.KDef:
		return ev.evalDef(n, env)
	case analyzer.KThrow:
		return ev.evalThrow(n, env)
	case analyzer.KTry:
		return ev.evalTry(n, env)
	case analyzer.KApply:
		return ev.evalApply(n, env)
	case analyzer.KPartial:
		return ev.evalPartial(n, env)
	case analyzer.KComp:
		return ev.evalComp(n, env)
	case analyzer.KSwap:
		return ev.evalSwap(n, env)
	case analyzer.KReduce:
		return ev.evalReduce(n, env)
	case analyzer.KMap:
		return ev.evalMap(n, env)
	case analyzer.KFilter:
		return ev.evalFilter(n, env)
	case analyzer.KTakeWhile:
		return ev.evalTakeWhile(n, env)
	case analyzer.KDropWhile:
		return ev.evalDropWhile(n, env)
	case analyzer.KMapIndexed:
		return ev.evalMapIndexed(n, env)
	case analyzer.KSortBy:
		return ev.evalSortBy(n, env)
	case analyzer.KGroupBy:
		return ev.evalGroupBy(n, env)
	case analyzer.KDefMulti:
		return ev.evalDefMulti(n, env)
	case analyzer.KDefMethod:
		return ev.evalDefMethod(n, env)
	case analyzer.KDefProtocol:
		return ev.evalDefProtocol(n, env)
	case analyzer.KExtendType:
		return ev.evalExtendType(n, env)
	case analyzer.KLazySeq:
		return ev.evalLazySeq(n, env)
	default:
		panic(fmt.Sprintf("evaluator: unhandled node kind %d", n.Kind))
	}
}

// evalBody evaluates a `do`-style sequence, returning the last statement's
// value (nil's worth of Nil{} for an empty body); a recurSignal produced by
// the last statement passes through unchanged for the enclosing loop/fn to
// catch.
func (ev *Evaluator) evalBody(stmts []*analyzer.Node, env *Environment) (runtime.Value, error) {
	if len(stmts) == 0 {
		return runtime.Nil{}, nil
	}
	var result runtime.Value = runtime.Nil{}
	for _, s := range stmts {
		v, err := ev.Eval(s, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

// evalLet handles both `let` and `loop` (Node.IsLoop): a loop's body is run
// in a trampoline that rebinds against a fresh child frame each time the
// body's last statement comes back as a recurSignal, so a tail recur never
// grows the Go call stack (spec §4.4).
func (ev *Evaluator) evalLet(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	inner := NewEnvironment(env)
	for _, b := range n.Bindings {
		v, err := ev.Eval(b.Init, inner)
		if err != nil {
			return nil, err
		}
		inner.Define(b.Name, v)
	}
	if !n.IsLoop {
		return ev.evalBody(n.Body, inner)
	}
	for {
		ev.safepoint()
		result, err := ev.evalBody(n.Body, inner)
		if err != nil {
			return nil, err
		}
		rs, ok := result.(*recurSignal)
		if !ok {
			return result, nil
		}
		if len(rs.args) != len(n.Bindings) {
			return nil, runtime.NewException(runtime.ExArity, "recur argument count does not match loop bindings", nil, n.Pos)
		}
		next := NewEnvironment(env)
		for i, b := range n.Bindings {
			next.Define(b.Name, rs.args[i])
		}
		inner = next
	}
}

// evalFn builds the closure Value for a `fn` literal: a named fn gets its
// own frame so its body can refer to itself recursively (spec §4.3's
// "analyzer binds the name, evaluator installs the self-binding").
func (ev *Evaluator) evalFn(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	captured := env
	if n.FnName != "" {
		captured = NewEnvironment(env)
	}
	arities := make([]runtime.Arity, len(n.Arities))
	for i, a := range n.Arities {
		arities[i] = runtime.Arity{Params: a.Params, Variadic: a.Variadic, Body: a.Body}
	}
	fn := &runtime.Fn{Name: n.FnName, Arities: arities, Closure: []runtime.Value{&closureEnv{env: captured}}}
	if ev.Arena != nil {
		ev.Arena.Alloc(fn)
	}
	if n.FnName != "" {
		captured.Define(n.FnName, fn)
	}
	return fn, nil
}

// evalLetFn handles `(letfn [(name [params] body...) ...] body...)`: all
// names are pre-bound in one shared frame before any fn literal is built,
// so mutually recursive definitions see each other (spec §3.3 letfn).
func (ev *Evaluator) evalLetFn(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	inner := NewEnvironment(env)
	built := make([]*runtime.Fn, len(n.LetFnBindings))
	for i, b := range n.LetFnBindings {
		fnNode := b.Init
		arities := make([]runtime.Arity, len(fnNode.Arities))
		for j, a := range fnNode.Arities {
			arities[j] = runtime.Arity{Params: a.Params, Variadic: a.Variadic, Body: a.Body}
		}
		fn := &runtime.Fn{Name: b.Name, Arities: arities, Closure: []runtime.Value{&closureEnv{env: inner}}}
		built[i] = fn
		inner.Define(b.Name, fn)
	}
	if ev.Arena != nil {
		for _, fn := range built {
			ev.Arena.Alloc(fn)
		}
	}
	return ev.evalBody(n.Body, inner)
}

func (ev *Evaluator) evalCall(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fnVal, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.Eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ev.Apply(fnVal, args)
}

func (ev *Evaluator) evalDef(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	v := ev.Env.Intern("", n.Name)
	var val runtime.Value = runtime.Nil{}
	if n.Init != nil {
		var err error
		val, err = ev.Eval(n.Init, env)
		if err != nil {
			return nil, err
		}
	}
	if n.IsMacro {
		v.IsMacro = true
	}
	v.BindRoot(val)
	return v, nil
}
