package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
)

var zeroPos = errs.Position{}

func TestKindStringNamesEveryVariant(t *testing.T) {
	kinds := []ast.Kind{
		ast.KindNil, ast.KindBool, ast.KindInt, ast.KindFloat, ast.KindChar,
		ast.KindString, ast.KindSymbol, ast.KindKeyword, ast.KindList,
		ast.KindVector, ast.KindMap, ast.KindSet,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEqual(t, "?", s, "kind %d has no name", k)
		assert.False(t, seen[s], "duplicate Kind.String() %q", s)
		seen[s] = true
	}
}

func TestKindStringUnknownFallsBackToQuestionMark(t *testing.T) {
	assert.Equal(t, "?", ast.Kind(255).String())
}

func TestIsSymbolNamedMatchesUnqualifiedSymbolOnly(t *testing.T) {
	assert.True(t, ast.Sym("", "foo", zeroPos).IsSymbolNamed("foo"))
	assert.False(t, ast.Sym("ns", "foo", zeroPos).IsSymbolNamed("foo"))
	assert.False(t, ast.Sym("", "bar", zeroPos).IsSymbolNamed("foo"))
	assert.False(t, ast.Int(1, zeroPos).IsSymbolNamed("foo"))
	var nilForm *ast.Form
	assert.False(t, nilForm.IsSymbolNamed("foo"))
}

func TestHeadReturnsFirstListItemOrNil(t *testing.T) {
	sym := ast.Sym("", "foo", zeroPos)
	list := ast.List([]*ast.Form{sym, ast.Int(1, zeroPos)}, zeroPos)
	assert.Same(t, sym, list.Head())

	assert.Nil(t, ast.List(nil, zeroPos).Head())
	assert.Nil(t, ast.Vector([]*ast.Form{sym}, zeroPos).Head())
	var nilForm *ast.Form
	assert.Nil(t, nilForm.Head())
}

func TestQualifiedNameJoinsNamespaceAndName(t *testing.T) {
	assert.Equal(t, "foo", ast.Sym("", "foo", zeroPos).QualifiedName())
	assert.Equal(t, "ns/foo", ast.Sym("ns", "foo", zeroPos).QualifiedName())
	assert.Equal(t, "kw", ast.Kw("", "kw", zeroPos).QualifiedName())
	assert.Equal(t, "ns/kw", ast.Kw("ns", "kw", zeroPos).QualifiedName())
}
