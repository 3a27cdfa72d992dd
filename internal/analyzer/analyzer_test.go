package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/evaluator"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/reader"
	"github.com/clj-core/clj/internal/runtime"
)

// newAnalyzer builds an Analyzer with MacroInvoker wired through a fresh
// Evaluator, the same way cmd/clj's --dump-bytecode path does, so macros
// that call ordinary functions during expansion analyze correctly.
func newAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	ev := evaluator.New(runtime.NewEnv(), heap.NewArena())
	return ev.Analyzer
}

func analyzeSrc(t *testing.T, a *analyzer.Analyzer, src string) (*analyzer.Node, error) {
	t.Helper()
	f, rerr := reader.New(src, "test").ReadOne()
	require.Nil(t, rerr, "unexpected read error: %v", rerr)
	return a.AnalyzeTop(f)
}

func TestAnalyzeConstants(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "42")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KConstant, n.Kind)
	assert.Equal(t, runtime.Int(42), n.Const)
}

func TestAnalyzeUnresolvedSymbolIsAnAnalyzeError(t *testing.T) {
	a := newAnalyzer(t)
	_, err := analyzeSrc(t, a, "undefined-thing")
	require.Error(t, err)
	aerr, ok := err.(*errs.AnalyzeError)
	require.True(t, ok, "expected *errs.AnalyzeError, got %T", err)
	assert.Equal(t, errs.UnresolvedSymbol, aerr.Kind)
}

func TestAnalyzeIf(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "(if true 1 2)")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KIf, n.Kind)
}

func TestAnalyzeLet(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "(let [x 1 y 2] (+ x y))")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KLet, n.Kind)
	require.Len(t, n.Bindings, 2)
	assert.Equal(t, "x", n.Bindings[0].Name)
	assert.Equal(t, "y", n.Bindings[1].Name)
}

func TestAnalyzeFnWithMultipleArities(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "(fn ([x] x) ([x y] (+ x y)))")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KFn, n.Kind)
	require.Len(t, n.Arities, 2)
	assert.Equal(t, []string{"x"}, n.Arities[0].Params)
	assert.Equal(t, []string{"x", "y"}, n.Arities[1].Params)
}

func TestAnalyzeRecurOutsideLoopOrFnIsMisplaced(t *testing.T) {
	a := newAnalyzer(t)
	_, err := analyzeSrc(t, a, "(recur 1)")
	require.Error(t, err)
	aerr, ok := err.(*errs.AnalyzeError)
	require.True(t, ok)
	assert.Equal(t, errs.MisplacedRecur, aerr.Kind)
}

func TestAnalyzeRecurInLoopTailPositionIsFine(t *testing.T) {
	a := newAnalyzer(t)
	_, err := analyzeSrc(t, a, "(loop [i 0] (if (< i 10) (recur (inc i)) i))")
	require.NoError(t, err)
}

func TestAnalyzeDef(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "(def answer 42)")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KDef, n.Kind)
}

func TestAnalyzeQuoteDoesNotResolveInnerSymbols(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "'(this-is-not-defined-anywhere 1 2)")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KQuote, n.Kind)
}

func TestAnalyzeVectorLiteralOfConstantsFoldsToAConstant(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "[1 2 3]")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KConstant, n.Kind)
	v, ok := n.Const.(*runtime.Vector)
	require.True(t, ok)
	assert.Equal(t, 3, v.Count())
}

func TestAnalyzeVectorLiteralWithNonConstantLowersToConstructorCall(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, "(let [x 1] [x 2])")
	require.NoError(t, err)
	assert.Equal(t, analyzer.KLet, n.Kind)
	require.Len(t, n.Body, 1)
	assert.Equal(t, analyzer.KCall, n.Body[0].Kind)
}

func TestAnalyzeTryWithCatch(t *testing.T) {
	a := newAnalyzer(t)
	n, err := analyzeSrc(t, a, `(try (throw "boom") (catch Exception e e))`)
	require.NoError(t, err)
	assert.Equal(t, analyzer.KTry, n.Kind)
	require.Len(t, n.Catches, 1)
	assert.Equal(t, "e", n.Catches[0].Binding)
}

func TestReanalyzingMacroExpansionReachesFixedPoint(t *testing.T) {
	a := newAnalyzer(t)
	_, err := analyzeSrc(t, a, "(when true 1 2 3)")
	require.NoError(t, err, "when must expand through to a fully analyzable if/do form")
}
