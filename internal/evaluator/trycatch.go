package evaluator

import (
	"errors"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// evalThrow raises expr as a runtime exception (spec §7): a thrown
// *runtime.Exception propagates as-is, anything else is wrapped so
// `catch` always has an Exception.CatchValue() to rebind the original
// Value from.
func (ev *Evaluator) evalThrow(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	v, err := ev.Eval(n.Expr, env)
	if err != nil {
		return nil, err
	}
	if exc, ok := v.(*runtime.Exception); ok {
		return nil, exc
	}
	exc := runtime.NewException(runtime.ExUser, runtime.PrintValue(v), nil, n.Pos)
	exc.Payload = v
	return nil, exc
}

// evalTry runs TryBody, routes a thrown *runtime.Exception through the
// first matching catch clause (ExClass filtering is unimplemented, so the
// first declared catch always matches, per spec's documented
// simplification), and always runs Finally — even across a non-Exception
// Go error or a panic-based lazy-seq failure (lazy.go's lazyPanic).
func (ev *Evaluator) evalTry(n *analyzer.Node, env *Environment) (result runtime.Value, err error) {
	defer func() {
		if len(n.Finally) == 0 {
			return
		}
		if _, ferr := ev.evalBody(n.Finally, env); ferr != nil && err == nil {
			result, err = nil, ferr
		}
	}()

	result, err = ev.runTryBodyRecoveringLazyPanic(n, env)
	if err == nil {
		return result, nil
	}
	var exc *runtime.Exception
	if !errors.As(err, &exc) {
		return nil, err
	}
	if len(n.Catches) == 0 {
		return nil, err
	}
	clause := n.Catches[0]
	inner := NewEnvironment(env)
	inner.Define(clause.Binding, exc.CatchValue())
	v, cerr := ev.evalBody(clause.Body, inner)
	return v, cerr
}

func (ev *Evaluator) runTryBodyRecoveringLazyPanic(n *analyzer.Node, env *Environment) (result runtime.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if lp, ok := r.(lazyPanic); ok {
				result, err = nil, lp.Err
				return
			}
			panic(r)
		}
	}()
	return ev.evalBody(n.TryBody, env)
}
