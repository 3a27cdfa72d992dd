package evaluator

import (
	"sort"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/runtime"
)

// evalReduce implements both 2-arg and 3-arg `reduce` eagerly: a nil Init
// node means the first element of coll seeds the accumulator and
// reduction starts from the second (spec's "init omitted" case); an empty
// coll with no Init returns nil.
func (ev *Evaluator) evalReduce(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fn, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}

	var acc runtime.Value
	if n.Init != nil {
		acc, err = ev.Eval(n.Init, env)
		if err != nil {
			return nil, err
		}
	} else {
		empty, rest, first, err := ev.seqStep(s)
		if err != nil {
			return nil, err
		}
		if empty {
			return runtime.Nil{}, nil
		}
		acc, s = first, rest
	}

	for {
		empty, rest, first, err := ev.seqStep(s)
		if err != nil {
			return nil, err
		}
		if empty {
			return acc, nil
		}
		acc, err = ev.Apply(fn, []runtime.Value{acc, first})
		if err != nil {
			return nil, err
		}
		s = rest
	}
}

// evalMap/evalFilter/evalTakeWhile/evalDropWhile/evalMapIndexed are all
// lazily generated, consistent with spec §3.1's `lazy-seq`-backed seq
// library: forcing the result walks coll one element at a time rather than
// materializing it up front.
func (ev *Evaluator) evalMap(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fn, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}
	return ev.lazyMap(fn, s), nil
}

func (ev *Evaluator) lazyMap(fn runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		v, err := ev.Apply(fn, []runtime.Value{s.First()})
		if err != nil {
			panic(lazyPanic{err})
		}
		return runtime.Cons(v, ev.lazyMap(fn, s.Rest()))
	})
}

func (ev *Evaluator) evalFilter(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	pred, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}
	return ev.lazyFilter(pred, s), nil
}

func (ev *Evaluator) lazyFilter(pred runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		cur := s
		for !cur.Empty() {
			keep, err := ev.Apply(pred, []runtime.Value{cur.First()})
			if err != nil {
				panic(lazyPanic{err})
			}
			if runtime.Truthy(keep) {
				return runtime.Cons(cur.First(), ev.lazyFilter(pred, cur.Rest()))
			}
			cur = cur.Rest()
		}
		return nil
	})
}

func (ev *Evaluator) evalTakeWhile(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	pred, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}
	return ev.lazyTakeWhile(pred, s), nil
}

func (ev *Evaluator) lazyTakeWhile(pred runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		keep, err := ev.Apply(pred, []runtime.Value{s.First()})
		if err != nil {
			panic(lazyPanic{err})
		}
		if !runtime.Truthy(keep) {
			return nil
		}
		return runtime.Cons(s.First(), ev.lazyTakeWhile(pred, s.Rest()))
	})
}

func (ev *Evaluator) evalDropWhile(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	pred, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}
	return runtime.NewLazySeq(func() runtime.Seq {
		cur := s
		for !cur.Empty() {
			drop, err := ev.Apply(pred, []runtime.Value{cur.First()})
			if err != nil {
				panic(lazyPanic{err})
			}
			if !runtime.Truthy(drop) {
				break
			}
			cur = cur.Rest()
		}
		if cur.Empty() {
			return nil
		}
		return cur
	}), nil
}

func (ev *Evaluator) evalMapIndexed(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	fn, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	s, err := ev.seqOf(collVal)
	if err != nil {
		return nil, err
	}
	return ev.lazyMapIndexed(fn, s, 0), nil
}

func (ev *Evaluator) lazyMapIndexed(fn runtime.Value, s runtime.Seq, idx int) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		v, err := ev.Apply(fn, []runtime.Value{runtime.Int(idx), s.First()})
		if err != nil {
			panic(lazyPanic{err})
		}
		return runtime.Cons(v, ev.lazyMapIndexed(fn, s.Rest(), idx+1))
	})
}

// evalSortBy is eager: it realizes coll, maps KeyFn over each element for
// the comparison, and returns a Vector (spec's sort-by has no declared
// laziness, unlike map/filter).
func (ev *Evaluator) evalSortBy(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	keyFn, err := ev.Eval(n.KeyFn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	items, err := ev.seqToSlice(collVal)
	if err != nil {
		return nil, err
	}
	keys := make([]runtime.Value, len(items))
	for i, it := range items {
		keys[i], err = ev.Apply(keyFn, []runtime.Value{it})
		if err != nil {
			return nil, err
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		less, err := compareValues(keys[idx[i]], keys[idx[j]])
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	sorted := make([]runtime.Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	return runtime.NewVector(sorted...), nil
}

// evalGroupBy is eager: it realizes coll and partitions it by KeyFn into a
// map of key -> vector of matching elements, preserving each group's
// relative order (spec's group-by is unordered across groups, ordered
// within one).
func (ev *Evaluator) evalGroupBy(n *analyzer.Node, env *Environment) (runtime.Value, error) {
	keyFn, err := ev.Eval(n.Fn, env)
	if err != nil {
		return nil, err
	}
	collVal, err := ev.Eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	items, err := ev.seqToSlice(collVal)
	if err != nil {
		return nil, err
	}
	result := runtime.EmptyMap()
	for _, it := range items {
		key, err := ev.Apply(keyFn, []runtime.Value{it})
		if err != nil {
			return nil, err
		}
		existing, ok := result.Get(key)
		var group *runtime.Vector
		if ok {
			group = existing.(*runtime.Vector)
		} else {
			group = runtime.EmptyVector()
		}
		result = result.Assoc(key, group.Conj(it))
	}
	return result, nil
}

// compareValues delegates to the shared runtime-level implementation
// (internal/vm's sort-by/comparison opcodes use runtime.CompareValues
// directly), kept as a package-level alias so existing call sites in this
// file and builtins.go don't need rewriting.
func compareValues(a, b runtime.Value) (bool, error) { return runtime.CompareValues(a, b) }
