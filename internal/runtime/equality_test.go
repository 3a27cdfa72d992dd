package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clj-core/clj/internal/runtime"
)

func TestEqualValuesHaveEqualHashes(t *testing.T) {
	pairs := []struct {
		name string
		a, b runtime.Value
	}{
		{"ints", runtime.Int(7), runtime.Int(7)},
		{"int vs float", runtime.Int(1), runtime.Float(1.0)},
		{"keywords", runtime.InternKeyword("", "a"), runtime.InternKeyword("", "a")},
		{"nsed keywords", runtime.InternKeyword("ns", "a"), runtime.InternKeyword("ns", "a")},
		{"symbols", runtime.InternSymbol("", "x"), runtime.InternSymbol("", "x")},
		{"strings", runtime.String("hi"), runtime.String("hi")},
		{
			"vectors",
			runtime.NewVector(runtime.Int(1), runtime.Int(2)),
			runtime.NewVector(runtime.Int(1), runtime.Int(2)),
		},
		{
			"list vs vector (sequential equality)",
			runtime.NewList(runtime.Int(1), runtime.Int(2)),
			runtime.NewVector(runtime.Int(1), runtime.Int(2)),
		},
		{
			"maps regardless of insertion order",
			runtime.NewMap(runtime.InternKeyword("", "a"), runtime.Int(1), runtime.InternKeyword("", "b"), runtime.Int(2)),
			runtime.NewMap(runtime.InternKeyword("", "b"), runtime.Int(2), runtime.InternKeyword("", "a"), runtime.Int(1)),
		},
		{
			"sets regardless of insertion order",
			runtime.NewSet(runtime.Int(1), runtime.Int(2)),
			runtime.NewSet(runtime.Int(2), runtime.Int(1)),
		},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			assert.True(t, runtime.ValuesEqual(p.a, p.b), "expected %v = %v", p.a, p.b)
			assert.Equal(t, runtime.HashValue(p.a), runtime.HashValue(p.b), "= values must hash equal")
		})
	}
}

func TestNumericEqualityAcrossTags(t *testing.T) {
	assert.True(t, runtime.ValuesEqual(runtime.Int(1), runtime.Float(1.0)))
	assert.True(t, runtime.ValuesEqual(runtime.Float(1.0), runtime.Int(1)))
	assert.False(t, runtime.ValuesEqual(runtime.Int(1), runtime.Float(1.5)))
}

func TestKeywordEqualityIsByNamespaceAndName(t *testing.T) {
	assert.True(t, runtime.ValuesEqual(runtime.InternKeyword("", "a"), runtime.InternKeyword("", "a")))
	assert.False(t, runtime.ValuesEqual(runtime.InternKeyword("", "a"), runtime.InternKeyword("ns", "a")))
	assert.False(t, runtime.ValuesEqual(runtime.InternKeyword("", "a"), runtime.InternKeyword("", "b")))
}

func TestUnequalValuesOfDifferentKinds(t *testing.T) {
	assert.False(t, runtime.ValuesEqual(runtime.InternKeyword("", "a"), runtime.String("a")))
	assert.False(t, runtime.ValuesEqual(runtime.Int(1), runtime.Bool(true)))
	assert.False(t, runtime.ValuesEqual(runtime.Nil{}, runtime.Bool(false)))
}

func TestInternedSymbolsAndKeywordsArePointerIdentical(t *testing.T) {
	assert.Same(t, runtime.InternSymbol("ns", "x"), runtime.InternSymbol("ns", "x"))
	assert.Same(t, runtime.InternKeyword("ns", "x"), runtime.InternKeyword("ns", "x"))
}
