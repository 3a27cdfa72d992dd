package vm

import (
	"sort"

	"github.com/clj-core/clj/internal/runtime"
)

// The seq/collection combinators below back OpReduce/OpMap/OpFilter/
// OpTakeWhile/OpDropWhile/OpMapIndexed/OpSortBy/OpGroupBy: each pops its
// already-evaluated fn/pred/coll operands (pushed by ordinary bytecode
// compiling the Node's sub-expressions) and performs exactly the
// combinator logic internal/evaluator/pipeline.go's eval* methods do,
// through the same runtime.SeqOf/SeqStep/SeqToSlice/CompareValues helpers
// both backends share — only the laziness closures call back into
// vm.callValue instead of Evaluator.Apply.

func (vm *VM) opReduce(fn runtime.Value, hasInit bool, init runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	var acc runtime.Value
	if hasInit {
		acc = init
	} else {
		empty, rest, first, err := runtime.SeqStep(s)
		if err != nil {
			return nil, err
		}
		if empty {
			return runtime.Nil{}, nil
		}
		acc, s = first, rest
	}
	for {
		empty, rest, first, err := runtime.SeqStep(s)
		if err != nil {
			return nil, err
		}
		if empty {
			return acc, nil
		}
		acc, err = vm.callValue(fn, []runtime.Value{acc, first})
		if err != nil {
			return nil, err
		}
		s = rest
	}
}

func (vm *VM) opMap(fn runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	return vm.lazyMap(fn, s), nil
}

func (vm *VM) lazyMap(fn runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		v, err := vm.callValue(fn, []runtime.Value{s.First()})
		if err != nil {
			panic(runtime.LazyPanic{Err: err})
		}
		return runtime.Cons(v, vm.lazyMap(fn, s.Rest()))
	})
}

func (vm *VM) opFilter(pred runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	return vm.lazyFilter(pred, s), nil
}

func (vm *VM) lazyFilter(pred runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		cur := s
		for !cur.Empty() {
			keep, err := vm.callValue(pred, []runtime.Value{cur.First()})
			if err != nil {
				panic(runtime.LazyPanic{Err: err})
			}
			if runtime.Truthy(keep) {
				return runtime.Cons(cur.First(), vm.lazyFilter(pred, cur.Rest()))
			}
			cur = cur.Rest()
		}
		return nil
	})
}

func (vm *VM) opTakeWhile(pred runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	return vm.lazyTakeWhile(pred, s), nil
}

func (vm *VM) lazyTakeWhile(pred runtime.Value, s runtime.Seq) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		keep, err := vm.callValue(pred, []runtime.Value{s.First()})
		if err != nil {
			panic(runtime.LazyPanic{Err: err})
		}
		if !runtime.Truthy(keep) {
			return nil
		}
		return runtime.Cons(s.First(), vm.lazyTakeWhile(pred, s.Rest()))
	})
}

func (vm *VM) opDropWhile(pred runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	return runtime.NewLazySeq(func() runtime.Seq {
		cur := s
		for !cur.Empty() {
			drop, err := vm.callValue(pred, []runtime.Value{cur.First()})
			if err != nil {
				panic(runtime.LazyPanic{Err: err})
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

func (vm *VM) opMapIndexed(fn runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	s, err := runtime.SeqOf(collVal)
	if err != nil {
		return nil, err
	}
	return vm.lazyMapIndexed(fn, s, 0), nil
}

func (vm *VM) lazyMapIndexed(fn runtime.Value, s runtime.Seq, idx int) *runtime.LazySeq {
	return runtime.NewLazySeq(func() runtime.Seq {
		if s.Empty() {
			return nil
		}
		v, err := vm.callValue(fn, []runtime.Value{runtime.Int(idx), s.First()})
		if err != nil {
			panic(runtime.LazyPanic{Err: err})
		}
		return runtime.Cons(v, vm.lazyMapIndexed(fn, s.Rest(), idx+1))
	})
}

func (vm *VM) opSortBy(keyFn runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	items, err := runtime.SeqToSlice(collVal)
	if err != nil {
		return nil, err
	}
	keys := make([]runtime.Value, len(items))
	for i, it := range items {
		keys[i], err = vm.callValue(keyFn, []runtime.Value{it})
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
		less, err := runtime.CompareValues(keys[idx[i]], keys[idx[j]])
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

func (vm *VM) opGroupBy(keyFn runtime.Value, collVal runtime.Value) (runtime.Value, error) {
	items, err := runtime.SeqToSlice(collVal)
	if err != nil {
		return nil, err
	}
	result := runtime.EmptyMap()
	for _, it := range items {
		key, err := vm.callValue(keyFn, []runtime.Value{it})
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
