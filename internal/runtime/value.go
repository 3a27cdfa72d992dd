// Package runtime owns the runtime Value model (§3.1), the persistent
// collections built on it, atoms, multimethod/protocol dispatch tables, and
// the process-wide Environment (namespaces and Vars, §3.4). It is imported
// by both internal/analyzer (a constant Node wraps a Value) and
// internal/evaluator (the tree-walking Eval consumes Values), which keeps
// those two packages from needing to import each other. Grounded on
// internal/evaluator/object.go's Object interface and one-struct-per-tag
// layout, and on internal/evaluator/environment.go's chained lexical scope.
package runtime

import "github.com/clj-core/clj/internal/errs"

// ValueType tags a Value's variant, mirroring spec §3.1's table. Grounded on
// the teacher's ObjectType string-constant block.
type ValueType string

const (
	TypeNil        ValueType = "Nil"
	TypeBool       ValueType = "Bool"
	TypeInt        ValueType = "Int"
	TypeFloat      ValueType = "Float"
	TypeChar       ValueType = "Char"
	TypeString     ValueType = "String"
	TypeSymbol     ValueType = "Symbol"
	TypeKeyword    ValueType = "Keyword"
	TypeList       ValueType = "List"
	TypeVector     ValueType = "Vector"
	TypeMap        ValueType = "Map"
	TypeSet        ValueType = "Set"
	TypeFn         ValueType = "Fn"
	TypePartialFn  ValueType = "PartialFn"
	TypeCompFn     ValueType = "CompFn"
	TypeMultiFn    ValueType = "MultiFn"
	TypeProtocol   ValueType = "Protocol"
	TypeProtocolFn ValueType = "ProtocolFn"
	TypeAtom       ValueType = "Atom"
	TypeLazySeq    ValueType = "LazySeq"
	TypeVar        ValueType = "Var"
	TypeException  ValueType = "Exception"
)

// Value is the tagged sum every piece of the core passes around. Every
// heap-resident variant is allocated through internal/heap's arena (§4.2);
// this interface only fixes the observable contract, not the allocation
// strategy.
type Value interface {
	Type() ValueType
	// Print renders the value in the canonical (non-pretty) printer format
	// of spec §6: for every value but fn/atom/opaque handles, re-reading
	// the result yields an equal value.
	Print() string
	// Hash must agree with Equal: a = b implies hash(a) = hash(b) (spec §3.1).
	Hash() uint32
}

// Truthy implements spec §3.1's truthiness rule: only nil and false are
// falsey.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	switch vv := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(vv)
	default:
		return true
	}
}

// Seqable is implemented by every Value that can be walked as a sequence:
// lists, vectors, sets, realized maps (as k/v pairs), lazy sequences, and
// nil (an empty seq). First/Rest drive both the evaluator's and the VM's
// iteration and the printer's round-trip; `nil` satisfies the interface so
// that `(seq nil)` is simply `nil`.
type Seqable interface {
	Value
	Seq() Seq
}

// Seq is a forced cons cell: either empty (First/Rest both return nil-ish
// zero values and Empty() is true) or a head plus a (possibly still lazy)
// tail.
type Seq interface {
	Value
	Empty() bool
	First() Value
	Rest() Seq
}

// Pos is implemented by the subset of runtime values that carry their own
// source position independent of their defining Node (currently only
// Exception, for the "innermost throw point" spec §7 requires).
type Pos interface {
	Position() errs.Position
}
