package evaluator

import (
	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// evalDefMulti installs a fresh MultiFn as name's root value (spec §4.6):
// the analyzer has already interned the Var so forward references within
// the same file resolve.
func (ev *Evaluator) evalDefMulti(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	dispatchFn, err := ev.Eval(n.DispatchFn, env)
	if err != nil {
		return nil, err
	}
	v := ev.Env.Intern("", n.Name)
	mf := runtime.NewMultiFn(n.Name, dispatchFn)
	v.BindRoot(mf)
	return v, nil
}

// evalDefMethod evaluates the method fn and installs it in the named
// multimethod's dispatch table under DispatchVal (spec §4.6): defmethod
// never creates the Var itself, only defmulti does.
func (ev *Evaluator) evalDefMethod(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	v, ok := ev.Env.Resolve("", n.Name)
	if !ok || !v.HasRoot() {
		return nil, runtime.NewException(runtime.ExType, "defmethod on undefined multimethod: "+n.Name, nil, n.Pos)
	}
	mf, ok := v.Get().(*runtime.MultiFn)
	if !ok {
		return nil, runtime.NewException(runtime.ExType, n.Name+" is not a multimethod", nil, n.Pos)
	}
	dispatchVal, err := ev.Eval(n.DispatchVal, env)
	if err != nil {
		return nil, err
	}
	methodFn, err := ev.Eval(n.MethodFn, env)
	if err != nil {
		return nil, err
	}
	mf.AddMethod(dispatchVal, methodFn)
	return v, nil
}

// evalDefProtocol declares the protocol and, for each signature, interns
// a Var bound to a ProtocolFn that dispatches on its first argument's
// type at call time (spec §4.6); extend-type later populates the
// (protocol, type, method) table these ProtocolFns consult.
func (ev *Evaluator) evalDefProtocol(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	proto := &runtime.Protocol{Name: n.ProtoName}
	for _, sig := range n.Sigs {
		proto.Methods = append(proto.Methods, sig.Name)
	}
	ev.Env.Protocols.Declare(proto)
	for _, sig := range n.Sigs {
		v := ev.Env.Intern("", sig.Name)
		v.BindRoot(&runtime.ProtocolFn{ProtoName: n.ProtoName, MethodName: sig.Name})
	}
	return runtime.Nil{}, nil
}

// evalExtendType evaluates every method fn literal in each extension
// clause and registers it against (protocol, TypeName-as-tag, method) in
// the process-global ProtocolRegistry (spec §4.6).
func (ev *Evaluator) evalExtendType(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	typ := runtime.ValueType(n.TypeName)
	for _, ext := range n.Extensions {
		for methodName, fnNode := range ext.Methods {
			fnVal, err := ev.Eval(fnNode, env)
			if err != nil {
				return nil, err
			}
			ev.Env.Protocols.Extend(ext.Protocol, typ, methodName, fnVal)
		}
	}
	return runtime.Nil{}, nil
}
