package vm

import (
	"fmt"

	"github.com/clj-core/clj/internal/runtime"
)

// capture describes, for one arity's compiled body, where to read one
// captured value from the *enclosing* frame at the moment the surrounding
// OpClosure executes: either a local slot of that frame, or one of that
// frame's own already-resolved upvalues. Because this language has no
// local mutation (no `set!`), a closure only ever needs the captured
// value's snapshot at creation time — there is no need for the teacher's
// open/closed upvalue cells, which exist there to let a closure observe
// a later mutation of the variable it captured.
type capture struct {
	fromLocal bool
	index     int
}

// arityTemplate is one arity of a compiled `fn`: fixed at compile time,
// shared by every Closure instantiated from the same `fn` Node (e.g. one
// created per loop iteration that encloses a local).
type arityTemplate struct {
	params    []string
	variadic  bool
	numLocals int
	chunk     *Chunk
	captures  []capture
}

// closureTemplate is the compile-time constant an OpClosure instruction
// references; OpClosure resolves its captures against the current frame
// and produces a fresh *Closure value.
type closureTemplate struct {
	name    string
	arities []arityTemplate
}

// RuntimeArity is one instantiated arity of a *Closure: the template's
// Chunk plus this particular instantiation's captured values.
type RuntimeArity struct {
	Params    []string
	Variadic  bool
	NumLocals int
	Chunk     *Chunk
	Upvalues  []runtime.Value
}

// Closure is the VM backend's callable Value for user-defined functions —
// the counterpart of internal/evaluator's runtime.Fn, but holding compiled
// Chunks instead of an opaque *analyzer.Node and a flat captured-value
// slice instead of an Environment reference. Builtins, PartialFn, CompFn,
// MultiFn, ProtocolFn and Keyword remain shared runtime.Value types both
// backends call through identically (see internal/vm/callvalue.go).
type Closure struct {
	Name    string
	Arities []RuntimeArity
}

func (c *Closure) Type() runtime.ValueType { return runtime.TypeFn }
func (c *Closure) Print() string {
	if c.Name == "" {
		return "#<fn>"
	}
	return fmt.Sprintf("#<fn %s>", c.Name)
}
func (c *Closure) Hash() uint32 { return runtime.HashValue(runtime.String(fmt.Sprintf("closure:%p", c))) }

// SelectArity mirrors runtime.Fn.SelectArity: an exact match wins, else
// the single variadic arity (if any) whose fixed-param count fits argc.
func (c *Closure) SelectArity(argc int) (RuntimeArity, bool) {
	for _, a := range c.Arities {
		if !a.Variadic && len(a.Params) == argc {
			return a, true
		}
	}
	for _, a := range c.Arities {
		if a.Variadic && len(a.Params)-1 <= argc {
			return a, true
		}
	}
	return RuntimeArity{}, false
}

// protoTemplate backs defprotocol/extend-type compilation: the signature
// list or extension-clause list is fixed at compile time, independent of
// any particular instantiation.
type protoTemplate struct {
	// defprotocol
	protoName string
	sigs      []protoSig

	// extend-type
	typeName string
	ext      []protoExtClause
}

type protoSig struct {
	name  string
	arity int
}

type protoExtClause struct {
	protocol string
	methods  []string // method names, in the order their fn bodies are pushed on the stack
}
