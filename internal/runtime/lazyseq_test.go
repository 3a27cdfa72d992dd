package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/runtime"
)

func TestLazySeqForcesThunkAtMostOnce(t *testing.T) {
	calls := 0
	ls := runtime.NewLazySeq(func() runtime.Seq {
		calls++
		return runtime.NewList(runtime.Int(1), runtime.Int(2))
	})

	first := ls.Force()
	second := ls.Force()

	assert.Equal(t, 1, calls, "thunk must run at most once")
	assert.Same(t, first, second, "repeated Force must return the same cached Seq")
}

func TestLazySeqForceIsIdempotentEvenIfThunkWouldDiffer(t *testing.T) {
	n := 0
	ls := runtime.NewLazySeq(func() runtime.Seq {
		n++
		return runtime.NewList(runtime.Int(n))
	})

	first := ls.Force().First()
	second := ls.Force().First()

	assert.Equal(t, first, second, "cached realization must not change on re-force")
	assert.Equal(t, runtime.Int(1), first)
}

func TestLazySeqFirstAndRestDelegateToForcedSeq(t *testing.T) {
	ls := runtime.NewLazySeq(func() runtime.Seq {
		return runtime.NewList(runtime.Int(1), runtime.Int(2), runtime.Int(3))
	})

	require.False(t, ls.Empty())
	assert.Equal(t, runtime.Int(1), ls.First())
	rest := ls.Rest()
	assert.Equal(t, runtime.Int(2), rest.First())
}

func TestLazySeqOfNilThunkResultBecomesEmpty(t *testing.T) {
	ls := runtime.NewLazySeq(func() runtime.Seq { return nil })
	assert.True(t, ls.Empty())
}

func TestConsBuildsEagerHeadWithLazyTail(t *testing.T) {
	tailForced := false
	tail := runtime.NewLazySeq(func() runtime.Seq {
		tailForced = true
		return runtime.NewList(runtime.Int(2))
	})

	c := runtime.Cons(runtime.Int(1), tail)
	assert.False(t, tailForced, "constructing a cons cell must not force its tail")
	assert.Equal(t, runtime.Int(1), c.First())

	rest := c.Rest()
	assert.False(t, tailForced, "Rest must not force the tail by itself")
	assert.Equal(t, runtime.Int(2), rest.First())
	assert.True(t, tailForced, "reading from the tail forces it")
}
