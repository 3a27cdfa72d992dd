package corelib_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/corelib"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// builtinTable registers every core builtin into a plain map, the same
// way both backends register them into a namespace's Vars, without
// needing a full Evaluator/VM to exercise the pure ones directly.
func builtinTable(t *testing.T, out *bytes.Buffer) map[string]runtime.BuiltinFunc {
	t.Helper()
	table := map[string]runtime.BuiltinFunc{}
	reg := func(name string, fn runtime.BuiltinFunc) { table[name] = fn }
	corelib.RegisterCore(reg, corelib.Deps{
		Arena: heap.NewArena(),
		Out:   out,
		Apply: func(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
			b, ok := fn.(*runtime.Builtin)
			require.True(t, ok, "test Apply only supports invoking other builtins")
			return b.Fn(args)
		},
	})
	return table
}

func call(t *testing.T, table map[string]runtime.BuiltinFunc, name string, args ...runtime.Value) runtime.Value {
	t.Helper()
	fn, ok := table[name]
	require.True(t, ok, "builtin %q not registered", name)
	v, err := fn(args)
	require.NoError(t, err)
	return v
}

func TestArithmeticBuiltins(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	assert.Equal(t, runtime.Int(5), call(t, table, "+", runtime.Int(2), runtime.Int(3)))
	assert.Equal(t, runtime.Int(6), call(t, table, "*", runtime.Int(2), runtime.Int(3)))
	assert.Equal(t, runtime.Float(2.5), call(t, table, "+", runtime.Float(1.0), runtime.Float(1.5)))
}

func TestDivideByZeroReturnsArithmeticException(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	fn := table["/"]
	_, err := fn([]runtime.Value{runtime.Int(1), runtime.Int(0)})
	require.Error(t, err)
	exc, ok := err.(*runtime.Exception)
	require.True(t, ok)
	assert.Equal(t, runtime.ExArithmetic, exc.Kind)
}

func TestComparisonBuiltins(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	assert.Equal(t, runtime.Bool(true), call(t, table, "<", runtime.Int(1), runtime.Int(2)))
	assert.Equal(t, runtime.Bool(false), call(t, table, "<", runtime.Int(2), runtime.Int(1)))
	assert.Equal(t, runtime.Bool(true), call(t, table, "=", runtime.Int(1), runtime.Float(1.0)))
}

func TestPredicateBuiltins(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	assert.Equal(t, runtime.Bool(true), call(t, table, "nil?", runtime.Nil{}))
	assert.Equal(t, runtime.Bool(false), call(t, table, "nil?", runtime.Int(0)))
	assert.Equal(t, runtime.Bool(true), call(t, table, "number?", runtime.Int(1)))
}

func TestConstructorBuiltinsMatchAnalyzerFolding(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	v := call(t, table, "vector", runtime.Int(1), runtime.Int(2))
	vec, ok := v.(*runtime.Vector)
	require.True(t, ok)
	assert.Equal(t, 2, vec.Count())
}

func TestSeqOpsFirstRestCount(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	coll := runtime.NewVector(runtime.Int(1), runtime.Int(2), runtime.Int(3))
	assert.Equal(t, runtime.Int(1), call(t, table, "first", coll))
	assert.Equal(t, runtime.Int(3), call(t, table, "count", coll))
}

func TestAtomAndDerefAndSwap(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	a := call(t, table, "atom", runtime.Int(0))
	atom, ok := a.(*runtime.Atom)
	require.True(t, ok)

	inc := table["inc"]
	v := call(t, table, "swap!", atom, &runtime.Builtin{Name: "inc", Fn: inc})
	assert.Equal(t, runtime.Int(1), v)
	assert.Equal(t, runtime.Int(1), call(t, table, "deref", atom))
}

func TestResetBangPassesOldAndNewValuesToWatchers(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	a := call(t, table, "atom", runtime.Int(1))

	var gotOld, gotNew runtime.Value
	watch := &runtime.Builtin{Name: "watch", Fn: func(args []runtime.Value) (runtime.Value, error) {
		gotOld, gotNew = args[2], args[3]
		return runtime.Nil{}, nil
	}}
	call(t, table, "add-watch", a, runtime.InternKeyword("", "k"), watch)
	call(t, table, "reset!", a, runtime.Int(2))

	assert.Equal(t, runtime.Int(1), gotOld, "reset! must report the atom's prior value as old, not the new value twice")
	assert.Equal(t, runtime.Int(2), gotNew)
}

func TestExInfoAndExData(t *testing.T) {
	table := builtinTable(t, &bytes.Buffer{})
	data := runtime.NewMap(runtime.InternKeyword("", "code"), runtime.Int(7))
	exVal := call(t, table, "ex-info", runtime.String("bad"), data)
	exc, ok := exVal.(*runtime.Exception)
	require.True(t, ok)
	assert.Equal(t, "bad", exc.Message)

	back := call(t, table, "ex-data", exc)
	m, ok := back.(*runtime.PersistentMap)
	require.True(t, ok)
	v, found := m.Get(runtime.InternKeyword("", "code"))
	require.True(t, found)
	assert.Equal(t, runtime.Int(7), v)
}

func TestPrintlnWritesToDeps(t *testing.T) {
	var out bytes.Buffer
	table := builtinTable(t, &out)
	call(t, table, "println", runtime.String("hi"))
	assert.Contains(t, out.String(), "hi")
}
