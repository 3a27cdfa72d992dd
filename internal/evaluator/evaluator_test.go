package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/evaluator"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/reader"
	"github.com/clj-core/clj/internal/runtime"
)

// evalAll evaluates every form in src under a fresh Evaluator, returning
// the last form's result.
func evalAll(t *testing.T, src string) (runtime.Value, error) {
	t.Helper()
	forms, rerr := reader.New(src, "test").ReadAll()
	require.Nil(t, rerr, "unexpected read error: %v", rerr)

	ev := evaluator.New(runtime.NewEnv(), heap.NewArena())
	var last runtime.Value
	var err error
	for _, f := range forms {
		last, err = ev.EvalTop(f)
		if err != nil {
			return nil, err
		}
	}
	return last, nil
}

func TestEvalArithmeticAndLet(t *testing.T) {
	v, err := evalAll(t, "(let [x 2 y 3] (+ (* x y) 1))")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(7), v)
}

func TestEvalDefAndReferenceAcrossTopLevelForms(t *testing.T) {
	v, err := evalAll(t, "(def answer 42) (+ answer 1)")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(43), v)
}

func TestEvalClosureCapturesEnclosingBindings(t *testing.T) {
	v, err := evalAll(t, "(def make-adder (fn [n] (fn [x] (+ x n)))) ((make-adder 10) 5)")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(15), v)
}

func TestEvalLoopRecurIsBoundedForLargeCounts(t *testing.T) {
	v, err := evalAll(t, "(loop [i 0] (if (< i 200000) (recur (inc i)) i))")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(200000), v)
}

func TestEvalUncaughtThrowSurfacesAsException(t *testing.T) {
	_, err := evalAll(t, `(throw (ex-info "boom" {:code 1}))`)
	require.Error(t, err)
	exc, ok := err.(*runtime.Exception)
	require.True(t, ok, "expected *runtime.Exception, got %T", err)
	assert.Equal(t, "boom", exc.Message)
}

func TestEvalTryCatchBindsThrownValue(t *testing.T) {
	v, err := evalAll(t, `(try (throw (ex-info "boom" {:code 1})) (catch Exception e (:code (ex-data e))))`)
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(1), v)
}

func TestEvalTryFinallyRunsOnNormalCompletion(t *testing.T) {
	v, err := evalAll(t, `(def log (atom [])) (try (swap! log conj 1) (finally (swap! log conj 2))) (deref log)`)
	require.NoError(t, err)
	vec, ok := v.(*runtime.Vector)
	require.True(t, ok)
	assert.Equal(t, 2, vec.Count())
}

func TestEvalDivideByZeroIsArithmeticException(t *testing.T) {
	_, err := evalAll(t, "(/ 1 0)")
	require.Error(t, err)
	exc, ok := err.(*runtime.Exception)
	require.True(t, ok)
	assert.Equal(t, runtime.ExArithmetic, exc.Kind)
}

func TestEvalCallingArityMismatchIsArityException(t *testing.T) {
	_, err := evalAll(t, "((fn [x y] (+ x y)) 1)")
	require.Error(t, err)
	exc, ok := err.(*runtime.Exception)
	require.True(t, ok)
	assert.Equal(t, runtime.ExArity, exc.Kind)
}

func TestEvalAtomSwapIsVisibleAfterward(t *testing.T) {
	v, err := evalAll(t, "(def counter (atom 0)) (swap! counter inc) (swap! counter inc) (deref counter)")
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(2), v)
}
