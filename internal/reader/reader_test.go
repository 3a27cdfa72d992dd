package reader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/reader"
)

func readAll(t *testing.T, src string) []*ast.Form {
	forms, err := reader.New(src, "test").ReadAll()
	require.Nil(t, err, "unexpected read error: %v", err)
	return forms
}

func TestReadAtoms(t *testing.T) {
	forms := readAll(t, `nil true false 42 3.14 "hi" \a :kw :ns/kw sym ns/sym`)
	require.Len(t, forms, 10)

	assert.Equal(t, ast.KindNil, forms[0].Kind)
	assert.Equal(t, ast.KindBool, forms[1].Kind)
	assert.True(t, forms[1].Bool)
	assert.Equal(t, ast.KindBool, forms[2].Kind)
	assert.False(t, forms[2].Bool)
	assert.Equal(t, ast.KindInt, forms[3].Kind)
	assert.EqualValues(t, 42, forms[3].Int)
	assert.Equal(t, ast.KindFloat, forms[4].Kind)
	assert.InDelta(t, 3.14, forms[4].Float, 1e-9)
	assert.Equal(t, ast.KindString, forms[5].Kind)
	assert.Equal(t, "hi", forms[5].Str)
	assert.Equal(t, ast.KindChar, forms[6].Kind)
	assert.Equal(t, 'a', forms[6].Char)
	assert.Equal(t, ast.KindKeyword, forms[7].Kind)
	assert.Equal(t, "kw", forms[7].Str)
	assert.Equal(t, ast.KindKeyword, forms[8].Kind)
	assert.Equal(t, "ns", forms[8].NS)
	assert.Equal(t, "kw", forms[8].Str)
	assert.Equal(t, ast.KindSymbol, forms[9].Kind)
	assert.Equal(t, "sym", forms[9].Str)
}

func TestReadCollections(t *testing.T) {
	forms := readAll(t, `(1 2 3) [1 2] #{1 2} {:a 1 :b 2}`)
	require.Len(t, forms, 4)

	assert.Equal(t, ast.KindList, forms[0].Kind)
	assert.Len(t, forms[0].Items, 3)
	assert.Equal(t, ast.KindVector, forms[1].Kind)
	assert.Len(t, forms[1].Items, 2)
	assert.Equal(t, ast.KindSet, forms[2].Kind)
	assert.Len(t, forms[2].Items, 2)
	assert.Equal(t, ast.KindMap, forms[3].Kind)
	assert.Len(t, forms[3].Items, 4)
}

func TestOddMapFormsIsAReadError(t *testing.T) {
	_, err := reader.New(`{:a 1 :b}`, "test").ReadAll()
	require.NotNil(t, err)
	assert.Equal(t, errs.OddMapForms, err.Kind)
}

func TestUnmatchedDelimiterIsAReadError(t *testing.T) {
	_, err := reader.New(`(1 2`, "test").ReadAll()
	require.NotNil(t, err)
	assert.Equal(t, errs.UnmatchedDelim, err.Kind)
}

func TestReaderMacrosExpandBeforeAnalysis(t *testing.T) {
	forms := readAll(t, "'x `x ~x ~@x ^:foo x")
	require.Len(t, forms, 5)
	assert.Equal(t, "quote", forms[0].Items[0].Str)
	assert.Equal(t, "quasiquote", forms[1].Items[0].Str)
	assert.Equal(t, "unquote", forms[2].Items[0].Str)
	assert.Equal(t, "unquote-splicing", forms[3].Items[0].Str)
	require.NotNil(t, forms[4].Meta)
}

func TestFnLiteralExpandsPercentParams(t *testing.T) {
	forms := readAll(t, `#(+ %1 %2)`)
	require.Len(t, forms, 1)
	f := forms[0]
	assert.Equal(t, ast.KindList, f.Kind)
	assert.Equal(t, "fn", f.Items[0].Str)
	params := f.Items[1]
	assert.Equal(t, ast.KindVector, params.Kind)
	require.Len(t, params.Items, 2)
	assert.Equal(t, "%1", params.Items[0].Str)
	assert.Equal(t, "%2", params.Items[1].Str)
}

func TestReaderLimitMaxDepth(t *testing.T) {
	src := "(((((1)))))"
	_, err := reader.NewWithLimits(src, "test", reader.Limits{MaxDepth: 2, MaxForms: 1000}).ReadAll()
	require.NotNil(t, err)
	assert.Equal(t, errs.ReaderLimit, err.Kind)
}

func TestReaderLimitMaxForms(t *testing.T) {
	src := "(1 2 3 4 5)"
	_, err := reader.NewWithLimits(src, "test", reader.Limits{MaxDepth: 512, MaxForms: 2}).ReadAll()
	require.NotNil(t, err)
	assert.Equal(t, errs.ReaderLimit, err.Kind)
}

func TestDerefShorthandExpandsToDerefCall(t *testing.T) {
	forms := readAll(t, "@a")
	require.Len(t, forms, 1)
	assert.Equal(t, ast.KindList, forms[0].Kind)
	require.Len(t, forms[0].Items, 2)
	assert.Equal(t, "deref", forms[0].Items[0].Str)
	assert.Equal(t, "a", forms[0].Items[1].Str)
}

func TestEmptyInputReadsNoForms(t *testing.T) {
	forms := readAll(t, "   ; just a comment\n")
	assert.Empty(t, forms)
}
