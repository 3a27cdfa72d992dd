package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/evaluator"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/reader"
	"github.com/clj-core/clj/internal/runtime"
	"github.com/clj-core/clj/internal/vm"
)

func runAll(t *testing.T, src string) (runtime.Value, error) {
	t.Helper()
	forms, rerr := reader.New(src, "test").ReadAll()
	require.Nil(t, rerr, "unexpected read error: %v", rerr)

	machine := vm.New(runtime.NewEnv(), heap.NewArena())
	var last runtime.Value
	var err error
	for _, f := range forms {
		last, err = machine.RunTop(f)
		if err != nil {
			return nil, err
		}
	}
	return last, nil
}

func TestVMArithmeticAndLet(t *testing.T) {
	v, err := runAll(t, "(let [x 2 y 3] (+ (* x y) 1))")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(7), v)
}

func TestVMClosureCapturesUpvalues(t *testing.T) {
	v, err := runAll(t, "(def make-adder (fn [n] (fn [x] (+ x n)))) ((make-adder 10) 5)")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(15), v)
}

func TestVMRecurIsBoundedForLargeCounts(t *testing.T) {
	v, err := runAll(t, "(loop [i 0] (if (< i 200000) (recur (inc i)) i))")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(200000), v)
}

func TestVMTryCatchBindsThrownValue(t *testing.T) {
	v, err := runAll(t, `(try (throw (ex-info "boom" {:code 1})) (catch Exception e (:code (ex-data e))))`)
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(1), v)
}

func TestVMFnRecurDoesNotGrowStackAcrossManyIterations(t *testing.T) {
	v, err := runAll(t, `
(defn count-to [n acc]
  (if (< acc n) (recur n (inc acc)) acc))
(count-to 100000 0)
`)
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(100000), v)
}

func TestVMDivideByZeroIsArithmeticException(t *testing.T) {
	_, err := runAll(t, "(/ 1 0)")
	require.Error(t, err)
	exc, ok := err.(*runtime.Exception)
	require.True(t, ok)
	assert.Equal(t, runtime.ExArithmetic, exc.Kind)
}

func TestVMDerefAndSwap(t *testing.T) {
	v, err := runAll(t, "(def counter (atom 0)) (swap! counter inc) (swap! counter inc) @counter")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(2), v)
}

func TestDisassembleListsConstantAndCallOpcodes(t *testing.T) {
	f, rerr := reader.New("(inc 1)", "test").ReadOne()
	require.Nil(t, rerr)

	ev := evaluator.New(runtime.NewEnv(), heap.NewArena())
	node, err := ev.Analyzer.AnalyzeTop(f)
	require.NoError(t, err)

	chunk, err := vm.NewCompiler().CompileTop(node, "test")
	require.NoError(t, err)

	out := vm.Disassemble(chunk, "top")
	assert.Contains(t, out, "== top ==")
	assert.Contains(t, out, "CONST")
	assert.Contains(t, out, "CALL")
}

func TestDisassembleUsesFastArithmeticOpcodeForPlusCall(t *testing.T) {
	f, rerr := reader.New("(+ 1 2)", "test").ReadOne()
	require.Nil(t, rerr)

	ev := evaluator.New(runtime.NewEnv(), heap.NewArena())
	node, err := ev.Analyzer.AnalyzeTop(f)
	require.NoError(t, err)

	chunk, err := vm.NewCompiler().CompileTop(node, "test")
	require.NoError(t, err)

	out := vm.Disassemble(chunk, "top")
	assert.Contains(t, out, "ADD")
	assert.NotContains(t, out, "CALL")
}
