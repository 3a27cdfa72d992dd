package vm

import (
	"fmt"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// localVar is one compile-time local binding: a name and the frame-
// relative slot the compiler assigned it. Like internal/analyzer.Scope,
// which starts a fresh slotCounter for each fn arity, funcScope allocates
// its own slots per function, since that is the addressing space a VM
// Frame's locals actually live in.
type localVar struct {
	name string
	slot int
}

// recurTarget is one enclosing loop/fn-arity a `recur` Node may jump back
// to: the bytecode offset its body starts at, the frame slot its bound
// names begin at, and how many values `recur` must supply. Pushed at a
// function arity's own body and at every `IsLoop` Node.Kind == KLet — but
// deliberately NOT at a plain (non-loop) `let`, so recur stays transparent
// through ordinary lexical nesting exactly as it is for the tree-walker
// (internal/evaluator/eval.go's evalLet only traps a recurSignal when
// n.IsLoop).
type recurTarget struct {
	startPC  int
	slotBase int
	arity    int
}

// funcScope is the compiler's state for one function arity (or the top-
// level form, treated as a zero-arg arity). Grounded on
// internal/vm/compiler.go's Local/Upvalue/FunctionType/enclosing shape,
// generalized since this language has no mutable locals: captures are
// values snapshotted at closure-creation time, never cells.
type funcScope struct {
	enclosing *funcScope
	chunk     *Chunk
	fnName    string // "" for an anonymous fn or the top level

	locals    []localVar
	nextSlot  int
	maxSlot   int
	upvalues  []capture
	upvalNames []string // parallel to upvalues, for de-duplicating resolution

	recurStack []recurTarget
}

func newFuncScope(enclosing *funcScope, chunk *Chunk, fnName string) *funcScope {
	return &funcScope{enclosing: enclosing, chunk: chunk, fnName: fnName}
}

func (fs *funcScope) addLocal(name string) int {
	slot := fs.nextSlot
	fs.nextSlot++
	if fs.nextSlot > fs.maxSlot {
		fs.maxSlot = fs.nextSlot
	}
	fs.locals = append(fs.locals, localVar{name: name, slot: slot})
	return slot
}

// dropLocals truncates the local list back to n entries, used when a
// let/loop scope's bindings go out of lexical scope at the end of its
// body; nextSlot is left alone deliberately (the compiler never reuses a
// slot number within one function, trading a few dead stack cells for
// simplicity in a first bytecode backend).
func (fs *funcScope) dropLocals(n int) {
	fs.locals = fs.locals[:n]
}

// resolveLocal finds name among this funcScope's own bindings, most
// recent first (shadowing).
func (fs *funcScope) resolveLocal(name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i].slot, true
		}
	}
	return 0, false
}

// addUpvalue records that this funcScope's closure must capture index/
// fromLocal from its immediately enclosing frame, returning the (possibly
// newly-created) upvalue index future OpGetUpvalue references use.
func (fs *funcScope) addUpvalue(name string, c capture) int {
	for i, n := range fs.upvalNames {
		if n == name {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, c)
	fs.upvalNames = append(fs.upvalNames, name)
	return len(fs.upvalues) - 1
}

// resolveUpvalue finds name in an enclosing funcScope, recursively
// flattening through any number of intervening closures (the standard
// clox "upvalue chain" technique), grounded on
// internal/vm/compiler_scope.go's resolveUpvalue.
func (fs *funcScope) resolveUpvalue(name string) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := fs.enclosing.resolveLocal(name); ok {
		return fs.addUpvalue(name, capture{fromLocal: true, index: slot}), true
	}
	if idx, ok := fs.enclosing.resolveUpvalue(name); ok {
		return fs.addUpvalue(name, capture{fromLocal: false, index: idx}), true
	}
	return 0, false
}

// Compiler lowers a sequence of top-level analyzer.Node trees to Chunks,
// one Chunk per top-level form (spec §4.5: "The compiler lowers Node to a
// sequence of fixed-width instructions over a per-function Chunk").
type Compiler struct {
	fs *funcScope
}

func NewCompiler() *Compiler { return &Compiler{} }

// CompileTop compiles one top-level Node into its own Chunk, treating the
// top level as a zero-local, zero-upvalue implicit function body — the
// same shape `load` replays one Chunk per Form read from a file.
func (c *Compiler) CompileTop(n *analyzer.Node, file string) (*Chunk, error) {
	chunk := NewChunk(file)
	c.fs = newFuncScope(nil, chunk, "")
	if err := c.compileNode(n); err != nil {
		return nil, err
	}
	c.emit(n.Pos, OpReturn)
	return chunk, nil
}

func (c *Compiler) emit(pos errs.Position, op Opcode) {
	c.fs.chunk.WriteOp(op, pos.Line)
}

func (c *Compiler) emitU16(pos errs.Position, v int) {
	c.fs.chunk.WriteU16(v, pos.Line)
}

func (c *Compiler) emitByte(pos errs.Position, b byte) {
	c.fs.chunk.Write(b, pos.Line)
}

// emitJump writes op followed by a placeholder u16 offset, returning the
// offset of the placeholder for patchJump to fill in later.
func (c *Compiler) emitJump(pos errs.Position, op Opcode) int {
	c.emit(pos, op)
	at := c.fs.chunk.Len()
	c.emitU16(pos, 0xffff)
	return at
}

func (c *Compiler) patchJump(at int) {
	target := c.fs.chunk.Len()
	c.fs.chunk.PatchU16(at, target)
}

func (c *Compiler) constIndex(v runtime.Value) int {
	return c.fs.chunk.AddConstant(v)
}

func compileError(pos errs.Position, format string, args ...interface{}) error {
	return errs.NewAnalyzeError(errs.BadSpecialForm, pos, fmt.Sprintf(format, args...))
}
