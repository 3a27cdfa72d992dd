// Package ast defines Form, the syntax-level tree produced by the reader
// (internal/reader) and consumed by the analyzer (internal/analyzer). Forms
// are ephemeral: once analyzed into a Node they are discarded.
package ast

import "github.com/clj-core/clj/internal/errs"

// Kind tags a Form's payload. Like internal/analyzer.Node, a Form is a
// single struct with a Kind discriminator, but with far fewer fields: the
// reader only ever needs to carry "what kind of literal/collection is
// this", not the per-construct fields special forms acquire as Nodes.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindSymbol
	KindKeyword
	KindList
	KindVector
	KindMap
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindKeyword:
		return "keyword"
	case KindList:
		return "list"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	default:
		return "?"
	}
}

// Form is a node of the syntax tree produced by the reader. Every Form
// carries its source position for error reporting further down the
// pipeline.
type Form struct {
	Kind Kind
	Pos  errs.Position

	Bool   bool
	Int    int64
	Float  float64
	Char   rune
	Str    string // string literal contents, or symbol/keyword name
	NS     string // namespace part of a qualified symbol/keyword, may be ""

	// Meta holds reader-attached metadata (from ^{...} or ^:kw sugar),
	// nil when absent. Kept as a Form (typically KindMap) rather than a
	// fully-resolved Value. The reader attaches it; the analyzer does not
	// read it, so metadata has no effect on the Var a `def` installs.
	Meta *Form

	// Items holds children for KindList/KindVector/KindSet, and for
	// KindMap holds a flattened [k0 v0 k1 v1 ...] sequence.
	Items []*Form
}

func Nil(pos errs.Position) *Form   { return &Form{Kind: KindNil, Pos: pos} }
func Bool(v bool, pos errs.Position) *Form {
	return &Form{Kind: KindBool, Bool: v, Pos: pos}
}
func Int(v int64, pos errs.Position) *Form {
	return &Form{Kind: KindInt, Int: v, Pos: pos}
}
func Float(v float64, pos errs.Position) *Form {
	return &Form{Kind: KindFloat, Float: v, Pos: pos}
}
func Char(v rune, pos errs.Position) *Form {
	return &Form{Kind: KindChar, Char: v, Pos: pos}
}
func Str(v string, pos errs.Position) *Form {
	return &Form{Kind: KindString, Str: v, Pos: pos}
}
func Sym(ns, name string, pos errs.Position) *Form {
	return &Form{Kind: KindSymbol, NS: ns, Str: name, Pos: pos}
}
func Kw(ns, name string, pos errs.Position) *Form {
	return &Form{Kind: KindKeyword, NS: ns, Str: name, Pos: pos}
}
func List(items []*Form, pos errs.Position) *Form {
	return &Form{Kind: KindList, Items: items, Pos: pos}
}
func Vector(items []*Form, pos errs.Position) *Form {
	return &Form{Kind: KindVector, Items: items, Pos: pos}
}
func MapForm(flatKV []*Form, pos errs.Position) *Form {
	return &Form{Kind: KindMap, Items: flatKV, Pos: pos}
}
func SetForm(items []*Form, pos errs.Position) *Form {
	return &Form{Kind: KindSet, Items: items, Pos: pos}
}

// IsSymbolNamed reports whether f is an unqualified symbol with the given
// name; used pervasively by the analyzer to recognize special-form heads.
func (f *Form) IsSymbolNamed(name string) bool {
	return f != nil && f.Kind == KindSymbol && f.NS == "" && f.Str == name
}

// Head returns the first element of a list Form, or nil if f is not a
// non-empty list.
func (f *Form) Head() *Form {
	if f == nil || f.Kind != KindList || len(f.Items) == 0 {
		return nil
	}
	return f.Items[0]
}

// QualifiedName renders NS/Str, or just Str when NS is empty.
func (f *Form) QualifiedName() string {
	if f.NS == "" {
		return f.Str
	}
	return f.NS + "/" + f.Str
}
