// Package analyzer lowers a Form (internal/ast) into a Node tree the
// evaluator walks directly and the compiler (internal/vm) compiles from —
// spec §3.3/§4.3. Grounded on internal/ast's one-struct-per-kind layout,
// mirrored onto Node the same way: a single tagged struct with a Kind
// discriminant, rather than one Go type per variant, so the many spots
// that only care about a Node's Pos or that recurse generically over
// "the sub-nodes" don't need a type switch of their own.
package analyzer

import (
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

type Kind int

const (
	KConstant Kind = iota
	KVarRef
	KLocalRef
	KIf
	KDo
	KLet  // also covers `loop` via IsLoop
	KRecur
	KFn
	KLetFn
	KCall
	KDef
	KQuote
	KThrow
	KTry
	KApply
	KPartial
	KComp
	KReduce
	KMap
	KFilter
	KTakeWhile
	KDropWhile
	KMapIndexed
	KSortBy
	KGroupBy
	KSwap
	KDefMulti
	KDefMethod
	KDefProtocol
	KExtendType
	KLazySeq
)

// Binding is one (name, init) pair of a `let`/`loop`, or one (name,
// fn_node) pair of a `letfn` (spec §3.3). Slot is the analyzer-assigned
// lexical slot (see Scope); neither backend reads it: both resolve locals
// by Name.
type Binding struct {
	Name string
	Slot int
	Init *Node
}

// FnArity is one arity of a `fn` Node: parameter names (already
// destructuring-lowered into the body by the time analysis is done),
// a variadic flag, and the arity's body.
type FnArity struct {
	Params   []string
	Slots    []int
	Variadic bool
	Body     *Node
}

// CatchClause is one `catch` arm of a `try` Node.
type CatchClause struct {
	ExClass string // class symbol as written; not consulted: the first catch clause handles any exception
	Binding string
	Slot    int
	Body    []*Node
}

// ProtoMethod is one method signature of a `defprotocol` Node.
type ProtoMethod struct {
	Name  string
	Arity int
}

// ProtoExtension is one `(ProtoName method-impls...)` clause of an
// `extend_type` Node.
type ProtoExtension struct {
	Protocol string
	Methods  map[string]*Node // method name -> fn Node
}

// Node is the executable tree the evaluator walks and the compiler
// compiles, one struct covering every variant in spec §3.3. Every Node
// carries its source Pos, per the spec's blanket requirement.
type Node struct {
	Kind Kind
	Pos  errs.Position

	// constant
	Const runtime.Value

	// var_ref
	Var *runtime.Var

	// local_ref, and the bound name in def/defmulti/defmethod/fn/letfn
	Name string
	Slot int

	// if
	Test, Then, Else *Node

	// do, try-body
	Stmts []*Node

	// let / loop
	Bindings []Binding
	IsLoop   bool
	Body     []*Node

	// recur
	RecurArgs []*Node

	// fn
	FnName  string
	Arities []FnArity

	// letfn
	LetFnBindings []Binding

	// call, apply, partial, comp, reduce/map/filter/..., swap
	Fn   *Node
	Args []*Node

	// def
	Init    *Node
	IsMacro bool

	// quote: the literal Value the quoted form denotes, computed once at
	// analysis time (spec §3.3 `quote(value)`).
	QuoteVal runtime.Value

	// throw
	Expr *Node

	// try
	TryBody []*Node
	Catches []CatchClause
	Finally []*Node

	// apply
	SeqTail *Node

	// reduce/map/filter/take-while/drop-while/map-indexed/sort-by/group-by
	Pred  *Node
	Coll  *Node
	KeyFn *Node

	// swap
	Atom *Node

	// defmulti
	DispatchFn *Node

	// defmethod
	DispatchVal *Node
	MethodFn    *Node

	// defprotocol
	ProtoName string
	Sigs      []ProtoMethod

	// extend_type
	TypeName   string
	Extensions []ProtoExtension

	// lazy_seq
	Thunk *Node
}

func (n *Node) Position() errs.Position { return n.Pos }
