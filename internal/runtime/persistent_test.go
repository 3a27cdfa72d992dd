package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/runtime"
)

func TestMapAssocDoesNotMutateOriginal(t *testing.T) {
	m0 := runtime.NewMap(runtime.InternKeyword("", "a"), runtime.Int(1))
	m1 := m0.Assoc(runtime.InternKeyword("", "b"), runtime.Int(2))

	assert.Equal(t, 1, m0.Count())
	assert.Equal(t, 2, m1.Count())

	_, ok := m0.Get(runtime.InternKeyword("", "b"))
	assert.False(t, ok, "original map must not observe a later assoc")

	v, ok := m1.Get(runtime.InternKeyword("", "a"))
	require.True(t, ok)
	assert.Equal(t, runtime.Int(1), v)
}

func TestMapDissocDoesNotMutateOriginal(t *testing.T) {
	k := runtime.InternKeyword("", "a")
	m0 := runtime.NewMap(k, runtime.Int(1))
	m1 := m0.Dissoc(k)

	assert.Equal(t, 1, m0.Count())
	assert.Equal(t, 0, m1.Count())
	_, ok := m0.Get(k)
	assert.True(t, ok, "original map must not observe a later dissoc")
}

func TestMapAssocReplacingExistingKeyReturnsSameMapWhenValueUnchanged(t *testing.T) {
	k := runtime.InternKeyword("", "a")
	m0 := runtime.NewMap(k, runtime.Int(1))
	m1 := m0.Assoc(k, runtime.Int(1))
	assert.Same(t, m0, m1)
}

func TestVectorConjDoesNotMutateOriginal(t *testing.T) {
	v0 := runtime.NewVector(runtime.Int(1), runtime.Int(2))
	v1 := v0.Conj(runtime.Int(3))

	assert.Equal(t, 2, v0.Count())
	assert.Equal(t, 3, v1.Count())

	nth, ok := v0.Nth(2)
	assert.False(t, ok)
	assert.Nil(t, nth)
}

func TestVectorAssocDoesNotMutateOriginal(t *testing.T) {
	v0 := runtime.NewVector(runtime.Int(1), runtime.Int(2))
	v1, ok := v0.Assoc(0, runtime.Int(99))
	require.True(t, ok)

	orig, _ := v0.Nth(0)
	assert.Equal(t, runtime.Int(1), orig)
	updated, _ := v1.Nth(0)
	assert.Equal(t, runtime.Int(99), updated)
}

func TestSetConjAndDisjDoNotMutateOriginal(t *testing.T) {
	s0 := runtime.NewSet(runtime.Int(1), runtime.Int(2))
	s1 := s0.Conj(runtime.Int(3))
	s2 := s0.Disj(runtime.Int(1))

	assert.Equal(t, 2, s0.Count())
	assert.True(t, s0.Contains(runtime.Int(1)))
	assert.True(t, s0.Contains(runtime.Int(2)))
	assert.False(t, s0.Contains(runtime.Int(3)))

	assert.Equal(t, 3, s1.Count())
	assert.True(t, s1.Contains(runtime.Int(3)))

	assert.Equal(t, 1, s2.Count())
	assert.False(t, s2.Contains(runtime.Int(1)))
}

func TestListConsDoesNotMutateOriginal(t *testing.T) {
	l0 := runtime.NewList(runtime.Int(2), runtime.Int(3))
	l1 := l0.Cons(runtime.Int(1))

	assert.Equal(t, 2, l0.Count())
	assert.Equal(t, 3, l1.Count())
	assert.Equal(t, runtime.Int(2), l0.First())
	assert.Equal(t, runtime.Int(1), l1.First())
}

func TestMapIndexSurvivesAcrossAssoc(t *testing.T) {
	// Force the HAMT index to build on m0, then assoc a new key on top of
	// it; m0's index must stay correct for its own keys afterward.
	m0 := runtime.NewMap(runtime.InternKeyword("", "a"), runtime.Int(1))
	_, _ = m0.Get(runtime.InternKeyword("", "a"))
	m1 := m0.Assoc(runtime.InternKeyword("", "b"), runtime.Int(2))

	v, ok := m0.Get(runtime.InternKeyword("", "a"))
	require.True(t, ok)
	assert.Equal(t, runtime.Int(1), v)

	_, ok = m0.Get(runtime.InternKeyword("", "b"))
	assert.False(t, ok)

	v, ok = m1.Get(runtime.InternKeyword("", "b"))
	require.True(t, ok)
	assert.Equal(t, runtime.Int(2), v)
}

func TestMapWithManyKeysResolvesEveryEntry(t *testing.T) {
	m := runtime.EmptyMap()
	for i := 0; i < 200; i++ {
		m = m.Assoc(runtime.Int(i), runtime.Int(i*i))
	}
	for i := 0; i < 200; i++ {
		v, ok := m.Get(runtime.Int(i))
		require.True(t, ok, "key %d missing", i)
		assert.Equal(t, runtime.Int(i*i), v)
	}
	_, ok := m.Get(runtime.Int(9999))
	assert.False(t, ok)
}
