package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

func TestCollectReclaimsUnreachableValues(t *testing.T) {
	a := heap.NewArena()

	kept := a.Alloc(runtime.NewVector(runtime.Int(1), runtime.Int(2)))
	garbage := a.Alloc(runtime.NewVector(runtime.Int(99)))

	stack := []runtime.Value{kept}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(kept))
	assert.False(t, a.Live(garbage))
	assert.Equal(t, 1, a.Stats().LiveAfter)
	assert.Equal(t, 1, a.Stats().Reclaimed)
}

func TestCollectTracesNestedCollections(t *testing.T) {
	a := heap.NewArena()

	inner := a.Alloc(runtime.NewVector(runtime.Int(1)))
	outer := a.Alloc(runtime.NewMap(runtime.InternKeyword("", "k"), inner))

	stack := []runtime.Value{outer}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(outer))
	assert.True(t, a.Live(inner), "a value reachable only through a map's entries must survive collection")
}

func TestCollectTracesVarRoots(t *testing.T) {
	a := heap.NewArena()
	env := runtime.NewEnv()

	v := env.Intern("user", "x")
	held := a.Alloc(runtime.NewList(runtime.Int(1), runtime.Int(2), runtime.Int(3)))
	v.BindRoot(held)

	garbage := a.Alloc(runtime.NewList(runtime.Int(7)))

	a.Collect(heap.EnvRoots{Env: env})

	assert.True(t, a.Live(held))
	assert.False(t, a.Live(garbage))
}

func TestPinSurvivesCollectionWithNoOtherRoot(t *testing.T) {
	a := heap.NewArena()
	temp := a.Alloc(runtime.NewVector(runtime.Int(1)))

	a.Pin(temp)
	a.Collect(heap.SliceRoots(func() []runtime.Value { return nil }))
	assert.True(t, a.Live(temp), "a built-in's pinned temporary must survive a Collect with no other root pointing at it")

	a.Unpin(temp)
	a.Collect(heap.SliceRoots(func() []runtime.Value { return nil }))
	assert.False(t, a.Live(temp))
}

func TestCollectIsReentrancySafe(t *testing.T) {
	a := heap.NewArena()
	assert.Panics(t, func() {
		a.Collect(heap.SliceRoots(func() []runtime.Value {
			a.Collect(heap.SliceRoots(func() []runtime.Value { return nil }))
			return nil
		}))
	})
}

func TestCollectTracesAtomWatchersAndValidator(t *testing.T) {
	a := heap.NewArena()

	validator := a.Alloc(runtime.NewVector(runtime.Int(1)))
	watcherKey := a.Alloc(runtime.NewVector(runtime.Int(2)))
	watcherFn := a.Alloc(runtime.NewVector(runtime.Int(3)))

	atom := runtime.NewAtom(runtime.Int(0))
	atom.SetValidator(validator)
	atom.AddWatch(watcherKey, watcherFn)
	root := a.Alloc(atom)

	stack := []runtime.Value{root}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(root))
	assert.True(t, a.Live(validator), "an atom's validator must survive collection")
	assert.True(t, a.Live(watcherKey), "an atom's watch key must survive collection")
	assert.True(t, a.Live(watcherFn), "an atom's watch function must survive collection")
}

func TestCollectDoesNotForceAnUnrealizedLazySeqRoot(t *testing.T) {
	a := heap.NewArena()
	called := false
	ls := runtime.NewLazySeq(func() runtime.Seq {
		called = true
		return runtime.NewList(runtime.Int(1))
	})
	root := a.Alloc(ls)

	stack := []runtime.Value{root}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(root))
	assert.False(t, called, "tracing an unrealized LazySeq must not force it")
	assert.False(t, ls.Realized())
}

func TestCollectDoesNotHangOnAnInfiniteLiveLazySeq(t *testing.T) {
	a := heap.NewArena()
	var self *runtime.LazySeq
	self = runtime.NewLazySeq(func() runtime.Seq {
		return runtime.Cons(runtime.Int(0), self)
	})
	root := a.Alloc(self)

	stack := []runtime.Value{root}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(root))
	assert.False(t, self.Realized())
}

func TestCollectTracesAnAlreadyRealizedLazySeqsElements(t *testing.T) {
	a := heap.NewArena()
	inner := a.Alloc(runtime.NewVector(runtime.Int(7)))
	ls := runtime.NewLazySeq(func() runtime.Seq {
		return runtime.NewList(inner)
	})
	ls.Force()
	root := a.Alloc(ls)

	stack := []runtime.Value{root}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(root))
	assert.True(t, a.Live(inner), "an element held by an already-forced LazySeq must survive collection")
}

func TestCollectDoesNotForceAConsTailThatIsAnUnrealizedLazySeq(t *testing.T) {
	a := heap.NewArena()
	called := false
	tail := runtime.NewLazySeq(func() runtime.Seq {
		called = true
		return runtime.NewList(runtime.Int(2))
	})
	cell := runtime.Cons(runtime.Int(1), tail)
	root := a.Alloc(cell)

	stack := []runtime.Value{root}
	a.Collect(heap.SliceRoots(func() []runtime.Value { return stack }))

	assert.True(t, a.Live(root))
	assert.False(t, called, "tracing a cons cell must not force an unrealized LazySeq tail")
}
