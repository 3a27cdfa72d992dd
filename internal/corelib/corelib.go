// Package corelib is the core builtin library shared by both evaluation
// backends (internal/evaluator's tree-walker and internal/vm's bytecode
// VM): the handful of constructors analyzeCollection lowers non-constant
// literals to (`vector`, `hash-set`, `hash-map`), the seq/collection
// library the analyzer's builtinMacros table expands into, and the
// arithmetic/comparison/printing primitives every program needs. Having
// one shared implementation, rather than one per backend, keeps the two
// backends' observable behavior identical outside the handful of Node
// kinds each compiles/walks itself — which is what makes compare mode a
// meaningful check instead of comparing two independent reimplementations
// of the same standard library. Grounded on the teacher's
// builtins_std.go registration pattern: one flat table of (name,
// BuiltinFunc) pairs interned into a fixed namespace at startup.
package corelib

import (
	"io"
	"strconv"
	"strings"

	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// zeroPos is used by builtin-level exceptions that have no Node of their
// own to report a position from.
var zeroPos errs.Position

// Deps carries the handful of things a builtin needs from whichever
// backend is hosting it, without this package importing either backend
// (which would recreate the cycle internal/analyzer's MacroInvoker
// pattern already avoids once for Eval/Apply, here avoided a second time
// for builtins).
type Deps struct {
	Arena *heap.Arena // optional; nil is fine, Alloc calls are skipped
	Out   io.Writer   // destination for print/println/pr/prn

	// Apply invokes a callable Value (user fn, builtin, partial, comp,
	// multimethod, protocol fn) the way the hosting backend would invoke
	// it from an ordinary call site: internal/evaluator's Apply or
	// internal/vm's own call-value path.
	Apply func(fn runtime.Value, args []runtime.Value) (runtime.Value, error)
}

// RegisterCore calls reg once per builtin this core namespace provides.
// reg is expected to intern name into the core namespace and bind a fresh
// *runtime.Builtin to it (both backends do this identically; only the Var
// table they intern into differs).
func RegisterCore(reg func(string, runtime.BuiltinFunc), deps Deps) {
	registerConstructors(deps, reg)
	registerArithmetic(reg)
	registerComparisons(reg)
	registerSeqOps(reg)
	registerCollectionOps(deps, reg)
	registerPredicates(reg)
	registerPrinting(deps, reg)
	registerMisc(deps, reg)
}

func arityErr(name string, n int) error {
	return runtime.NewException(runtime.ExArity, name+": wrong number of arguments ("+strconv.Itoa(n)+")", nil, zeroPos)
}

func typeErr(name, msg string) error {
	return runtime.NewException(runtime.ExType, name+": "+msg, nil, zeroPos)
}

func registerConstructors(deps Deps, reg func(string, runtime.BuiltinFunc)) {
	reg("vector", func(args []runtime.Value) (runtime.Value, error) {
		return runtime.NewVector(args...), nil
	})
	reg("hash-set", func(args []runtime.Value) (runtime.Value, error) {
		return runtime.NewSet(args...), nil
	})
	reg("hash-map", func(args []runtime.Value) (runtime.Value, error) {
		if len(args)%2 != 0 {
			return nil, typeErr("hash-map", "requires an even number of forms")
		}
		return runtime.NewMap(args...), nil
	})
	reg("list", func(args []runtime.Value) (runtime.Value, error) {
		return runtime.NewList(args...), nil
	})
	reg("vec", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("vec", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.NewVector(items...), nil
	})
	reg("set", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("set", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.NewSet(items...), nil
	})
	reg("symbol", func(args []runtime.Value) (runtime.Value, error) {
		switch len(args) {
		case 1:
			return runtime.InternSymbol("", runtime.Str(args[0])), nil
		case 2:
			return runtime.InternSymbol(runtime.Str(args[0]), runtime.Str(args[1])), nil
		}
		return nil, arityErr("symbol", len(args))
	})
	reg("keyword", func(args []runtime.Value) (runtime.Value, error) {
		switch len(args) {
		case 1:
			return runtime.InternKeyword("", runtime.Str(args[0])), nil
		case 2:
			return runtime.InternKeyword(runtime.Str(args[0]), runtime.Str(args[1])), nil
		}
		return nil, arityErr("keyword", len(args))
	})
	reg("gensym", func(args []runtime.Value) (runtime.Value, error) {
		prefix := "G__"
		if len(args) == 1 {
			prefix = runtime.Str(args[0])
		}
		return runtime.InternSymbol("", runtime.Gensym(prefix)), nil
	})
	reg("atom", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("atom", len(args))
		}
		a := runtime.NewAtom(args[0])
		if deps.Arena != nil {
			deps.Arena.Alloc(a)
		}
		return a, nil
	})
	reg("ex-info", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("ex-info", len(args))
		}
		return runtime.ExInfo(runtime.Str(args[0]), args[1], zeroPos), nil
	})
	reg("ex-data", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("ex-data", len(args))
		}
		exc, ok := args[0].(*runtime.Exception)
		if !ok {
			return runtime.Nil{}, nil
		}
		return exc.ExData(), nil
	})
	reg("ex-message", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("ex-message", len(args))
		}
		exc, ok := args[0].(*runtime.Exception)
		if !ok {
			return runtime.Nil{}, nil
		}
		return runtime.String(exc.Message), nil
	})
}

func registerArithmetic(reg func(string, runtime.BuiltinFunc)) {
	numAdd := func(args []runtime.Value) (runtime.Value, error) { return foldNumeric(args, 0, addNum) }
	numMul := func(args []runtime.Value) (runtime.Value, error) { return foldNumeric(args, 1, mulNum) }
	reg("+", numAdd)
	reg("*", numMul)
	reg("-", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return nil, arityErr("-", 0)
		}
		if len(args) == 1 {
			return subNum(runtime.Int(0), args[0])
		}
		acc := args[0]
		var err error
		for _, a := range args[1:] {
			acc, err = subNum(acc, a)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	reg("/", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return nil, arityErr("/", 0)
		}
		if len(args) == 1 {
			return divNum(runtime.Int(1), args[0])
		}
		acc := args[0]
		var err error
		for _, a := range args[1:] {
			acc, err = divNum(acc, a)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	reg("mod", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("mod", len(args))
		}
		return modNum(args[0], args[1])
	})
	reg("quot", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("quot", len(args))
		}
		return quotNum(args[0], args[1])
	})
	reg("rem", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("rem", len(args))
		}
		return remNum(args[0], args[1])
	})
	reg("inc", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("inc", len(args))
		}
		return addNum(args[0], runtime.Int(1))
	})
	reg("dec", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("dec", len(args))
		}
		return subNum(args[0], runtime.Int(1))
	})
	reg("max", func(args []runtime.Value) (runtime.Value, error) { return extremum(args, false) })
	reg("min", func(args []runtime.Value) (runtime.Value, error) { return extremum(args, true) })
}

func extremum(args []runtime.Value, wantMin bool) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, arityErr("max/min", 0)
	}
	best := args[0]
	for _, a := range args[1:] {
		less, err := runtime.CompareValues(a, best)
		if err != nil {
			return nil, err
		}
		if less == wantMin {
			best = a
		}
	}
	return best, nil
}

func foldNumeric(args []runtime.Value, seed int64, op func(a, b runtime.Value) (runtime.Value, error)) (runtime.Value, error) {
	var acc runtime.Value = runtime.Int(seed)
	if len(args) == 0 {
		return acc, nil
	}
	acc = args[0]
	for _, a := range args[1:] {
		var err error
		acc, err = op(acc, a)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func asFloat(v runtime.Value) (float64, bool) {
	switch n := v.(type) {
	case runtime.Int:
		return float64(n), true
	case runtime.Float:
		return float64(n), true
	}
	return 0, false
}

func addNum(a, b runtime.Value) (runtime.Value, error) {
	if ai, ok := a.(runtime.Int); ok {
		if bi, ok := b.(runtime.Int); ok {
			return ai + bi, nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("+", "requires numbers")
	}
	return runtime.Float(af + bf), nil
}

func mulNum(a, b runtime.Value) (runtime.Value, error) {
	if ai, ok := a.(runtime.Int); ok {
		if bi, ok := b.(runtime.Int); ok {
			return ai * bi, nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("*", "requires numbers")
	}
	return runtime.Float(af * bf), nil
}

func subNum(a, b runtime.Value) (runtime.Value, error) {
	if ai, ok := a.(runtime.Int); ok {
		if bi, ok := b.(runtime.Int); ok {
			return ai - bi, nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("-", "requires numbers")
	}
	return runtime.Float(af - bf), nil
}

func divNum(a, b runtime.Value) (runtime.Value, error) {
	if ai, ok := a.(runtime.Int); ok {
		if bi, ok := b.(runtime.Int); ok {
			if bi == 0 {
				return nil, runtime.NewException(runtime.ExArithmetic, "divide by zero", nil, zeroPos)
			}
			if ai%bi == 0 {
				return ai / bi, nil
			}
			return runtime.Float(float64(ai) / float64(bi)), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, typeErr("/", "requires numbers")
	}
	if bf == 0 {
		return nil, runtime.NewException(runtime.ExArithmetic, "divide by zero", nil, zeroPos)
	}
	return runtime.Float(af / bf), nil
}

func quotNum(a, b runtime.Value) (runtime.Value, error) {
	ai, aok := a.(runtime.Int)
	bi, bok := b.(runtime.Int)
	if !aok || !bok {
		return nil, typeErr("quot", "requires integers")
	}
	if bi == 0 {
		return nil, runtime.NewException(runtime.ExArithmetic, "divide by zero", nil, zeroPos)
	}
	return ai / bi, nil
}

func remNum(a, b runtime.Value) (runtime.Value, error) {
	ai, aok := a.(runtime.Int)
	bi, bok := b.(runtime.Int)
	if !aok || !bok {
		return nil, typeErr("rem", "requires integers")
	}
	if bi == 0 {
		return nil, runtime.NewException(runtime.ExArithmetic, "divide by zero", nil, zeroPos)
	}
	return ai % bi, nil
}

func modNum(a, b runtime.Value) (runtime.Value, error) {
	ai, aok := a.(runtime.Int)
	bi, bok := b.(runtime.Int)
	if !aok || !bok {
		return nil, typeErr("mod", "requires integers")
	}
	if bi == 0 {
		return nil, runtime.NewException(runtime.ExArithmetic, "divide by zero", nil, zeroPos)
	}
	m := ai % bi
	if m != 0 && (m < 0) != (bi < 0) {
		m += bi
	}
	return m, nil
}

func registerComparisons(reg func(string, runtime.BuiltinFunc)) {
	reg("=", func(args []runtime.Value) (runtime.Value, error) {
		for i := 1; i < len(args); i++ {
			if !runtime.ValuesEqual(args[i-1], args[i]) {
				return runtime.Bool(false), nil
			}
		}
		return runtime.Bool(true), nil
	})
	reg("not=", func(args []runtime.Value) (runtime.Value, error) {
		for i := 1; i < len(args); i++ {
			if !runtime.ValuesEqual(args[i-1], args[i]) {
				return runtime.Bool(true), nil
			}
		}
		return runtime.Bool(false), nil
	})
	cmp := func(name string, ok func(less, eq bool) bool) runtime.BuiltinFunc {
		return func(args []runtime.Value) (runtime.Value, error) {
			for i := 1; i < len(args); i++ {
				less, err := runtime.CompareValues(args[i-1], args[i])
				if err != nil {
					return nil, err
				}
				eq := !less && !mustLess(args[i], args[i-1])
				if !ok(less, eq) {
					return runtime.Bool(false), nil
				}
			}
			return runtime.Bool(true), nil
		}
	}
	reg("<", cmp("<", func(less, eq bool) bool { return less }))
	reg(">", cmp(">", func(less, eq bool) bool { return !less && !eq }))
	reg("<=", cmp("<=", func(less, eq bool) bool { return less || eq }))
	reg(">=", cmp(">=", func(less, eq bool) bool { return !less }))
	reg("compare", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("compare", len(args))
		}
		less, err := runtime.CompareValues(args[0], args[1])
		if err != nil {
			return nil, err
		}
		if less {
			return runtime.Int(-1), nil
		}
		if mustLess(args[1], args[0]) {
			return runtime.Int(1), nil
		}
		return runtime.Int(0), nil
	})
}

func mustLess(a, b runtime.Value) bool {
	less, err := runtime.CompareValues(a, b)
	if err != nil {
		return false
	}
	return less
}

func registerPredicates(reg func(string, runtime.BuiltinFunc)) {
	pred := func(name string, f func(runtime.Value) bool) {
		reg(name, func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 1 {
				return nil, arityErr(name, len(args))
			}
			return runtime.Bool(f(args[0])), nil
		})
	}
	pred("nil?", func(v runtime.Value) bool { _, ok := v.(runtime.Nil); return ok || v == nil })
	pred("true?", func(v runtime.Value) bool { b, ok := v.(runtime.Bool); return ok && bool(b) })
	pred("false?", func(v runtime.Value) bool { b, ok := v.(runtime.Bool); return ok && !bool(b) })
	pred("number?", func(v runtime.Value) bool {
		switch v.(type) {
		case runtime.Int, runtime.Float:
			return true
		}
		return false
	})
	pred("string?", func(v runtime.Value) bool { _, ok := v.(runtime.String); return ok })
	pred("char?", func(v runtime.Value) bool { _, ok := v.(runtime.Char); return ok })
	pred("symbol?", func(v runtime.Value) bool { _, ok := v.(*runtime.Symbol); return ok })
	pred("keyword?", func(v runtime.Value) bool { _, ok := v.(*runtime.Keyword); return ok })
	pred("list?", func(v runtime.Value) bool { _, ok := v.(*runtime.List); return ok })
	pred("vector?", func(v runtime.Value) bool { _, ok := v.(*runtime.Vector); return ok })
	pred("map?", func(v runtime.Value) bool { _, ok := v.(*runtime.PersistentMap); return ok })
	pred("set?", func(v runtime.Value) bool { _, ok := v.(*runtime.Set); return ok })
	pred("fn?", func(v runtime.Value) bool {
		switch v.(type) {
		case *runtime.Fn, *runtime.Builtin, *runtime.PartialFn, *runtime.CompFn, *runtime.MultiFn, *runtime.ProtocolFn:
			return true
		}
		return false
	})
	pred("zero?", func(v runtime.Value) bool { f, ok := asFloat(v); return ok && f == 0 })
	pred("pos?", func(v runtime.Value) bool { f, ok := asFloat(v); return ok && f > 0 })
	pred("neg?", func(v runtime.Value) bool { f, ok := asFloat(v); return ok && f < 0 })
	pred("even?", func(v runtime.Value) bool { i, ok := v.(runtime.Int); return ok && i%2 == 0 })
	pred("odd?", func(v runtime.Value) bool { i, ok := v.(runtime.Int); return ok && i%2 != 0 })
	reg("not", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("not", len(args))
		}
		return runtime.Bool(!runtime.Truthy(args[0])), nil
	})
}

func registerSeqOps(reg func(string, runtime.BuiltinFunc)) {
	reg("seq", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("seq", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		if s.Empty() {
			return runtime.Nil{}, nil
		}
		return s, nil
	})
	reg("first", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("first", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		if s.Empty() {
			return runtime.Nil{}, nil
		}
		return s.First(), nil
	})
	reg("rest", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("rest", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		if s.Empty() {
			return runtime.NewList(), nil
		}
		return s.Rest(), nil
	})
	reg("next", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("next", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		if s.Empty() {
			return runtime.Nil{}, nil
		}
		r := s.Rest()
		if r.Empty() {
			return runtime.Nil{}, nil
		}
		return r, nil
	})
	reg("second", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("second", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		if s.Empty() || s.Rest().Empty() {
			return runtime.Nil{}, nil
		}
		return s.Rest().First(), nil
	})
	reg("cons", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("cons", len(args))
		}
		s, err := runtime.SeqOf(args[1])
		if err != nil {
			return nil, err
		}
		return runtime.Cons(args[0], s), nil
	})
	reg("conj", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 1 {
			return nil, arityErr("conj", len(args))
		}
		acc := args[0]
		for _, x := range args[1:] {
			var err error
			acc, err = runtime.ConjOne(acc, x)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	reg("concat", func(args []runtime.Value) (runtime.Value, error) {
		var all []runtime.Value
		for _, a := range args {
			items, err := runtime.SeqToSlice(a)
			if err != nil {
				return nil, err
			}
			all = append(all, items...)
		}
		return runtime.NewList(all...), nil
	})
	reg("reverse", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("reverse", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		out := make([]runtime.Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return runtime.NewList(out...), nil
	})
	reg("count", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("count", len(args))
		}
		switch c := args[0].(type) {
		case *runtime.Vector:
			return runtime.Int(c.Count()), nil
		case *runtime.List:
			return runtime.Int(c.Count()), nil
		case *runtime.PersistentMap:
			return runtime.Int(c.Count()), nil
		case *runtime.Set:
			return runtime.Int(c.Count()), nil
		case runtime.String:
			return runtime.Int(len([]rune(string(c)))), nil
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.Int(len(items)), nil
	})
	reg("empty?", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("empty?", len(args))
		}
		s, err := runtime.SeqOf(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.Bool(s.Empty()), nil
	})
	reg("nth", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, arityErr("nth", len(args))
		}
		idx, ok := args[1].(runtime.Int)
		if !ok {
			return nil, typeErr("nth", "index must be an integer")
		}
		if v, ok := args[0].(*runtime.Vector); ok {
			if val, ok := v.Nth(int(idx)); ok {
				return val, nil
			}
		} else {
			items, err := runtime.SeqToSlice(args[0])
			if err != nil {
				return nil, err
			}
			if int(idx) >= 0 && int(idx) < len(items) {
				return items[int(idx)], nil
			}
		}
		if len(args) == 3 {
			return args[2], nil
		}
		return nil, runtime.NewException(runtime.ExType, "nth: index out of bounds", nil, zeroPos)
	})
	reg("take", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("take", len(args))
		}
		n, ok := args[0].(runtime.Int)
		if !ok {
			return nil, typeErr("take", "first argument must be an integer")
		}
		items, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		if int(n) < len(items) {
			items = items[:n]
		}
		return runtime.NewList(items...), nil
	})
	reg("drop", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("drop", len(args))
		}
		n, ok := args[0].(runtime.Int)
		if !ok {
			return nil, typeErr("drop", "first argument must be an integer")
		}
		items, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		if int(n) >= len(items) {
			return runtime.NewList(), nil
		}
		return runtime.NewList(items[n:]...), nil
	})
	reg("range", func(args []runtime.Value) (runtime.Value, error) {
		ints := make([]int64, len(args))
		for i, a := range args {
			n, ok := a.(runtime.Int)
			if !ok {
				return nil, typeErr("range", "arguments must be integers")
			}
			ints[i] = int64(n)
		}
		var start, end int64 = 0, 0
		var step int64 = 1
		switch len(ints) {
		case 1:
			end = ints[0]
		case 2:
			start, end = ints[0], ints[1]
		case 3:
			start, end, step = ints[0], ints[1], ints[2]
		default:
			return nil, arityErr("range", len(args))
		}
		var out []runtime.Value
		if step > 0 {
			for i := start; i < end; i += step {
				out = append(out, runtime.Int(i))
			}
		} else if step < 0 {
			for i := start; i > end; i += step {
				out = append(out, runtime.Int(i))
			}
		}
		return runtime.NewList(out...), nil
	})
	reg("distinct", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("distinct", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		var out []runtime.Value
		for _, it := range items {
			dup := false
			for _, seen := range out {
				if runtime.ValuesEqual(it, seen) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, it)
			}
		}
		return runtime.NewList(out...), nil
	})
	reg("into", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("into", len(args))
		}
		items, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		acc := args[0]
		for _, it := range items {
			acc, err = runtime.ConjOne(acc, it)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	reg("last", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("last", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return runtime.Nil{}, nil
		}
		return items[len(items)-1], nil
	})
	reg("butlast", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("butlast", len(args))
		}
		items, err := runtime.SeqToSlice(args[0])
		if err != nil {
			return nil, err
		}
		if len(items) <= 1 {
			return runtime.Nil{}, nil
		}
		return runtime.NewList(items[:len(items)-1]...), nil
	})
}

func registerCollectionOps(deps Deps, reg func(string, runtime.BuiltinFunc)) {
	reg("get", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, arityErr("get", len(args))
		}
		var notFound runtime.Value = runtime.Nil{}
		if len(args) == 3 {
			notFound = args[2]
		}
		switch c := args[0].(type) {
		case *runtime.PersistentMap:
			if v, ok := c.Get(args[1]); ok {
				return v, nil
			}
		case *runtime.Vector:
			if idx, ok := args[1].(runtime.Int); ok {
				if v, ok := c.Nth(int(idx)); ok {
					return v, nil
				}
			}
		case *runtime.Set:
			if c.Contains(args[1]) {
				return args[1], nil
			}
		}
		return notFound, nil
	})
	reg("assoc", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 3 || len(args)%2 == 0 {
			return nil, arityErr("assoc", len(args))
		}
		acc := args[0]
		for i := 1; i+1 < len(args); i += 2 {
			k, v := args[i], args[i+1]
			switch c := acc.(type) {
			case *runtime.PersistentMap:
				acc = c.Assoc(k, v)
			case *runtime.Vector:
				idx, ok := k.(runtime.Int)
				if !ok {
					return nil, typeErr("assoc", "vector index must be an integer")
				}
				nv, ok := c.Assoc(int(idx), v)
				if !ok {
					return nil, runtime.NewException(runtime.ExType, "assoc: index out of bounds", nil, zeroPos)
				}
				acc = nv
			case runtime.Nil:
				acc = runtime.NewMap(k, v)
			default:
				return nil, typeErr("assoc", "unsupported collection type")
			}
		}
		return acc, nil
	})
	reg("dissoc", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 1 {
			return nil, arityErr("dissoc", len(args))
		}
		m, ok := args[0].(*runtime.PersistentMap)
		if !ok {
			return nil, typeErr("dissoc", "requires a map")
		}
		for _, k := range args[1:] {
			m = m.Dissoc(k)
		}
		return m, nil
	})
	reg("contains?", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("contains?", len(args))
		}
		switch c := args[0].(type) {
		case *runtime.PersistentMap:
			_, ok := c.Get(args[1])
			return runtime.Bool(ok), nil
		case *runtime.Set:
			return runtime.Bool(c.Contains(args[1])), nil
		case *runtime.Vector:
			idx, ok := args[1].(runtime.Int)
			return runtime.Bool(ok && idx >= 0 && int(idx) < c.Count()), nil
		}
		return runtime.Bool(false), nil
	})
	reg("keys", func(args []runtime.Value) (runtime.Value, error) {
		m, ok := args[0].(*runtime.PersistentMap)
		if !ok {
			return nil, typeErr("keys", "requires a map")
		}
		return runtime.NewList(m.Keys()...), nil
	})
	reg("vals", func(args []runtime.Value) (runtime.Value, error) {
		m, ok := args[0].(*runtime.PersistentMap)
		if !ok {
			return nil, typeErr("vals", "requires a map")
		}
		return runtime.NewList(m.Vals()...), nil
	})
	reg("merge", func(args []runtime.Value) (runtime.Value, error) {
		acc := runtime.EmptyMap()
		for _, a := range args {
			m, ok := a.(*runtime.PersistentMap)
			if !ok {
				return nil, typeErr("merge", "requires maps")
			}
			for _, e := range m.Entries() {
				acc = acc.Assoc(e.Key, e.Val)
			}
		}
		return acc, nil
	})
	reg("get-in", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, arityErr("get-in", len(args))
		}
		path, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		cur := args[0]
		for _, k := range path {
			var ok bool
			cur, ok = getOne(cur, k)
			if !ok {
				if len(args) == 3 {
					return args[2], nil
				}
				return runtime.Nil{}, nil
			}
		}
		return cur, nil
	})
	reg("assoc-in", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 3 {
			return nil, arityErr("assoc-in", len(args))
		}
		path, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		return assocPath(args[0], path, args[2])
	})
	reg("update-in", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 3 {
			return nil, arityErr("update-in", len(args))
		}
		path, err := runtime.SeqToSlice(args[1])
		if err != nil {
			return nil, err
		}
		if len(path) == 0 {
			return nil, typeErr("update-in", "path must be non-empty")
		}
		cur, _ := getOne(args[0], path[0])
		for _, k := range path[1:] {
			var ok bool
			cur, ok = getOne(cur, k)
			if !ok {
				cur = runtime.Nil{}
			}
		}
		newVal, err := deps.Apply(args[2], append([]runtime.Value{cur}, args[3:]...))
		if err != nil {
			return nil, err
		}
		return assocPath(args[0], path, newVal)
	})
	reg("find", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("find", len(args))
		}
		m, ok := args[0].(*runtime.PersistentMap)
		if !ok {
			return nil, typeErr("find", "requires a map")
		}
		v, ok := m.Get(args[1])
		if !ok {
			return runtime.Nil{}, nil
		}
		return runtime.NewVector(args[1], v), nil
	})
	reg("name", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("name", len(args))
		}
		switch v := args[0].(type) {
		case *runtime.Symbol:
			return runtime.String(v.Name), nil
		case *runtime.Keyword:
			return runtime.String(v.Name), nil
		case runtime.String:
			return v, nil
		}
		return nil, typeErr("name", "requires a symbol, keyword or string")
	})
	reg("namespace", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("namespace", len(args))
		}
		var ns string
		switch v := args[0].(type) {
		case *runtime.Symbol:
			ns = v.NS
		case *runtime.Keyword:
			ns = v.NS
		default:
			return nil, typeErr("namespace", "requires a symbol or keyword")
		}
		if ns == "" {
			return runtime.Nil{}, nil
		}
		return runtime.String(ns), nil
	})
}

// getOne/assocPath back get-in/assoc-in/update-in's path-walking without
// going through Apply (no fn call is involved at each step, unlike
// update-in's final apply).
func getOne(coll, k runtime.Value) (runtime.Value, bool) {
	switch c := coll.(type) {
	case *runtime.PersistentMap:
		return c.Get(k)
	case *runtime.Vector:
		idx, ok := k.(runtime.Int)
		if !ok {
			return nil, false
		}
		return c.Nth(int(idx))
	}
	return nil, false
}

func assocPath(coll runtime.Value, path []runtime.Value, val runtime.Value) (runtime.Value, error) {
	if len(path) == 0 {
		return val, nil
	}
	k := path[0]
	child, ok := getOne(coll, k)
	if !ok {
		child = runtime.Nil{}
	}
	newChild, err := assocPath(child, path[1:], val)
	if err != nil {
		return nil, err
	}
	switch c := coll.(type) {
	case *runtime.PersistentMap:
		return c.Assoc(k, newChild), nil
	case *runtime.Vector:
		idx, ok := k.(runtime.Int)
		if !ok {
			return nil, typeErr("assoc-in", "vector index must be an integer")
		}
		nv, ok := c.Assoc(int(idx), newChild)
		if !ok {
			return nil, runtime.NewException(runtime.ExType, "assoc-in: index out of bounds", nil, zeroPos)
		}
		return nv, nil
	case runtime.Nil:
		return runtime.NewMap(k, newChild), nil
	default:
		return nil, typeErr("assoc-in", "unsupported collection type")
	}
}

// registerPrinting wires str/print/println/pr/prn through deps.Out,
// matching the teacher's Evaluator.Out io.Writer convention
// (builtins_io.go) rather than writing straight to stdout, so output is
// redirectable in tests and REPL embeddings alike.
func registerPrinting(deps Deps, reg func(string, runtime.BuiltinFunc)) {
	join := func(args []runtime.Value) string {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(runtime.Str(a))
		}
		return sb.String()
	}
	write := func(args []runtime.Value, readable, newline bool) (runtime.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			if readable {
				parts[i] = runtime.PrintValue(a)
			} else {
				parts[i] = runtime.Str(a)
			}
		}
		out := strings.Join(parts, " ")
		if newline {
			out += "\n"
		}
		if deps.Out != nil {
			io.WriteString(deps.Out, out)
		}
		return runtime.Nil{}, nil
	}
	reg("str", func(args []runtime.Value) (runtime.Value, error) {
		return runtime.String(join(args)), nil
	})
	reg("print", func(args []runtime.Value) (runtime.Value, error) { return write(args, false, false) })
	reg("println", func(args []runtime.Value) (runtime.Value, error) { return write(args, false, true) })
	reg("pr", func(args []runtime.Value) (runtime.Value, error) { return write(args, true, false) })
	reg("prn", func(args []runtime.Value) (runtime.Value, error) { return write(args, true, true) })
}

func registerMisc(deps Deps, reg func(string, runtime.BuiltinFunc)) {
	reg("identity", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("identity", len(args))
		}
		return args[0], nil
	})
	reg("deref", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr("deref", len(args))
		}
		a, ok := args[0].(*runtime.Atom)
		if !ok {
			return nil, typeErr("deref", "requires an atom")
		}
		return a.Deref(), nil
	})
	reg("reset!", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr("reset!", len(args))
		}
		a, ok := args[0].(*runtime.Atom)
		if !ok {
			return nil, typeErr("reset!", "requires an atom")
		}
		old := a.Reset(args[1])
		for _, w := range a.Watchers() {
			if _, err := deps.Apply(w.Val, []runtime.Value{w.Key, a, old, args[1]}); err != nil {
				return nil, err
			}
		}
		return args[1], nil
	})
	reg("swap!", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr("swap!", len(args))
		}
		a, ok := args[0].(*runtime.Atom)
		if !ok {
			return nil, typeErr("swap!", "requires an atom")
		}
		callArgs := append([]runtime.Value{a.Deref()}, args[2:]...)
		newVal, err := deps.Apply(args[1], callArgs)
		if err != nil {
			return nil, err
		}
		if v := a.Validator(); v != nil {
			ok, verr := deps.Apply(v, []runtime.Value{newVal})
			if verr != nil {
				return nil, verr
			}
			if !runtime.Truthy(ok) {
				return nil, typeErr("swap!", "invalid value for atom's validator")
			}
		}
		old := a.Reset(newVal)
		for _, w := range a.Watchers() {
			if _, err := deps.Apply(w.Val, []runtime.Value{w.Key, a, old, newVal}); err != nil {
				return nil, err
			}
		}
		return newVal, nil
	})
	reg("add-watch", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 3 {
			return nil, arityErr("add-watch", len(args))
		}
		a, ok := args[0].(*runtime.Atom)
		if !ok {
			return nil, typeErr("add-watch", "requires an atom")
		}
		a.AddWatch(args[1], args[2])
		return a, nil
	})
	reg("apply", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr("apply", len(args))
		}
		fixed := args[1 : len(args)-1]
		tail, err := runtime.SeqToSlice(args[len(args)-1])
		if err != nil {
			return nil, err
		}
		return deps.Apply(args[0], append(append([]runtime.Value{}, fixed...), tail...))
	})
}

// AddNum/SubNum/MulNum expose the same int/float numeric tower the `+`/
// `-`/`*` builtins use, so internal/vm's OpAdd/OpSub/OpMul fast paths
// (spec §4.5: "dedicated fast add/sub/mul/lt/le/eq ... to skip the
// generic call path") stay byte-for-byte consistent with what the
// generic call path through the `+`/`-`/`*` Vars would have computed,
// which is what makes compare mode meaningful for arithmetic-heavy code.
func AddNum(a, b runtime.Value) (runtime.Value, error) { return addNum(a, b) }
func SubNum(a, b runtime.Value) (runtime.Value, error) { return subNum(a, b) }
func MulNum(a, b runtime.Value) (runtime.Value, error) { return mulNum(a, b) }
