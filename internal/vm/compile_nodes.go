package vm

import (
	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// fastBuiltins names the core arithmetic/comparison Vars the compiler
// recognizes at compile time to emit a dedicated opcode instead of the
// generic OpCall path (spec §4.5: "dedicated fast `add`/`sub`/`mul`/`lt`/
// `le`/`eq` ... to skip the generic call path"). Only exact 2-arg calls to
// one of these, resolved against clj.core at compile time, qualify; the
// opcode itself still falls back to the generic numeric tower if either
// operand is not a plain number so the fast path is never unsound, only
// an optimization.
var fastBuiltins = map[string]Opcode{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"<":  OpLt,
	"<=": OpLe,
	"=":  OpEq,
}

func (c *Compiler) compileNode(n *analyzer.Node) error {
	switch n.Kind {
	case analyzer.KConstant:
		c.emit(n.Pos, OpConst)
		c.emitU16(n.Pos, c.constIndex(n.Const))
		return nil
	case analyzer.KQuote:
		c.emit(n.Pos, OpConst)
		c.emitU16(n.Pos, c.constIndex(n.QuoteVal))
		return nil
	case analyzer.KVarRef:
		c.emit(n.Pos, OpVarGet)
		c.emitU16(n.Pos, c.constIndex(n.Var))
		return nil
	case analyzer.KLocalRef:
		return c.compileNameRef(n.Pos, n.Name)
	case analyzer.KIf:
		return c.compileIf(n)
	case analyzer.KDo:
		return c.compileBody(n.Stmts)
	case analyzer.KLet:
		return c.compileLet(n)
	case analyzer.KRecur:
		return c.compileRecur(n)
	case analyzer.KFn:
		return c.compileFn(n)
	case analyzer.KLetFn:
		return c.compileLetFn(n)
	case analyzer.KCall:
		return c.compileCall(n)
	case analyzer.KDef:
		return c.compileDef(n)
	case analyzer.KThrow:
		if err := c.compileNode(n.Expr); err != nil {
			return err
		}
		c.emit(n.Pos, OpThrow)
		return nil
	case analyzer.KTry:
		return c.compileTry(n)
	case analyzer.KApply:
		return c.compileApply(n)
	case analyzer.KPartial:
		if err := c.compileFnThenArgs(n.Fn, n.Args); err != nil {
			return err
		}
		c.emit(n.Pos, OpPartial)
		c.emitU16(n.Pos, len(n.Args))
		return nil
	case analyzer.KComp:
		for _, a := range n.Args {
			if err := c.compileNode(a); err != nil {
				return err
			}
		}
		c.emit(n.Pos, OpComp)
		c.emitU16(n.Pos, len(n.Args))
		return nil
	case analyzer.KSwap:
		if err := c.compileNode(n.Atom); err != nil {
			return err
		}
		if err := c.compileFnThenArgs(n.Fn, n.Args); err != nil {
			return err
		}
		c.emit(n.Pos, OpSwapAtom)
		c.emitU16(n.Pos, len(n.Args))
		return nil
	case analyzer.KReduce:
		return c.compileReduce(n)
	case analyzer.KMap:
		return c.compileFnColl(n, OpMap)
	case analyzer.KFilter:
		return c.compileFnColl(n, OpFilter)
	case analyzer.KTakeWhile:
		return c.compileFnColl(n, OpTakeWhile)
	case analyzer.KDropWhile:
		return c.compileFnColl(n, OpDropWhile)
	case analyzer.KMapIndexed:
		return c.compileFnColl(n, OpMapIndexed)
	case analyzer.KSortBy:
		if err := c.compileNode(n.KeyFn); err != nil {
			return err
		}
		if err := c.compileNode(n.Coll); err != nil {
			return err
		}
		c.emit(n.Pos, OpSortBy)
		return nil
	case analyzer.KGroupBy:
		return c.compileFnColl(n, OpGroupBy)
	case analyzer.KDefMulti:
		if err := c.compileNode(n.DispatchFn); err != nil {
			return err
		}
		c.emit(n.Pos, OpDefMulti)
		c.emitU16(n.Pos, c.constIndex(runtime.String(n.Name)))
		return nil
	case analyzer.KDefMethod:
		if err := c.compileNode(n.DispatchVal); err != nil {
			return err
		}
		if err := c.compileNode(n.MethodFn); err != nil {
			return err
		}
		c.emit(n.Pos, OpDefMethod)
		c.emitU16(n.Pos, c.constIndex(runtime.String(n.Name)))
		return nil
	case analyzer.KDefProtocol:
		return c.compileDefProtocol(n)
	case analyzer.KExtendType:
		return c.compileExtendType(n)
	case analyzer.KLazySeq:
		return c.compileLazySeq(n)
	default:
		return compileError(n.Pos, "vm compiler: unhandled node kind %d", n.Kind)
	}
}

// compileBody compiles a `do`-style statement list: every statement but
// the last is compiled then discarded with OpPop, the last is left on the
// stack as the body's result (empty body pushes OpNil).
func (c *Compiler) compileBody(stmts []*analyzer.Node) error {
	if len(stmts) == 0 {
		c.emit(errs.Position{}, OpNil)
		return nil
	}
	for i, s := range stmts {
		if err := c.compileNode(s); err != nil {
			return err
		}
		if i != len(stmts)-1 {
			c.emit(s.Pos, OpPop)
		}
	}
	return nil
}

func (c *Compiler) compileIf(n *analyzer.Node) error {
	if err := c.compileNode(n.Test); err != nil {
		return err
	}
	elseJump := c.emitJump(n.Pos, OpJumpIfFalse)
	if err := c.compileNode(n.Then); err != nil {
		return err
	}
	endJump := c.emitJump(n.Pos, OpJump)
	c.patchJump(elseJump)
	if n.Else == nil {
		c.emit(n.Pos, OpNil)
	} else if err := c.compileNode(n.Else); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

// compileNameRef resolves name against the current function's own
// locals, then against enclosing functions (recorded as an upvalue chain),
// then falls through to the current function's own name (OpGetSelf,
// supporting named self-recursive fn without any Environment-style pre-
// binding), and finally reports a compiler bug — by the time the VM
// compiles a Node, the analyzer has already rejected any name that
// resolves to neither a local nor a Var.
func (c *Compiler) compileNameRef(pos errs.Position, name string) error {
	if slot, ok := c.fs.resolveLocal(name); ok {
		c.emit(pos, OpLoadLocal)
		c.emitU16(pos, slot)
		return nil
	}
	if idx, ok := c.fs.resolveUpvalue(name); ok {
		c.emit(pos, OpGetUpvalue)
		c.emitU16(pos, idx)
		return nil
	}
	if c.fs.fnName != "" && c.fs.fnName == name {
		c.emit(pos, OpGetSelf)
		return nil
	}
	return compileError(pos, "vm compiler: unresolved local %q", name)
}

func (c *Compiler) compileLet(n *analyzer.Node) error {
	startLocals := len(c.fs.locals)
	for _, b := range n.Bindings {
		if err := c.compileNode(b.Init); err != nil {
			return err
		}
		c.fs.addLocal(b.Name)
	}
	var target recurTarget
	if n.IsLoop {
		target = recurTarget{startPC: c.fs.chunk.Len(), slotBase: c.fs.locals[startLocals].slot, arity: len(n.Bindings)}
		c.fs.recurStack = append(c.fs.recurStack, target)
	}
	if err := c.compileBody(n.Body); err != nil {
		return err
	}
	if n.IsLoop {
		c.fs.recurStack = c.fs.recurStack[:len(c.fs.recurStack)-1]
	}
	c.emit(n.Pos, OpPopBelow)
	c.emitU16(n.Pos, len(n.Bindings))
	c.fs.dropLocals(startLocals)
	return nil
}

func (c *Compiler) compileRecur(n *analyzer.Node) error {
	if len(c.fs.recurStack) == 0 {
		return compileError(n.Pos, "vm compiler: recur outside loop/fn")
	}
	target := c.fs.recurStack[len(c.fs.recurStack)-1]
	if len(n.RecurArgs) != target.arity {
		return compileError(n.Pos, "recur argument count does not match loop/fn arity")
	}
	for _, a := range n.RecurArgs {
		if err := c.compileNode(a); err != nil {
			return err
		}
	}
	c.emit(n.Pos, OpRecur)
	c.emitByte(n.Pos, byte(len(n.RecurArgs)))
	c.emitU16(n.Pos, target.startPC)
	c.emitU16(n.Pos, target.slotBase)
	return nil
}

// compileFn compiles every arity of a `fn` literal into its own Chunk,
// bundles them as a closureTemplate constant, and emits OpClosure to
// instantiate it against the current frame's locals/upvalues at runtime.
func (c *Compiler) compileFn(n *analyzer.Node) error {
	tmpl := &closureTemplate{name: n.FnName}
	for _, a := range n.Arities {
		at, err := c.compileArity(n.FnName, a.Params, a.Variadic, a.Body, n.Pos)
		if err != nil {
			return err
		}
		tmpl.arities = append(tmpl.arities, at)
	}
	idx := c.fs.chunk.AddTemplate(tmpl)
	c.emit(n.Pos, OpClosure)
	c.emitU16(n.Pos, idx)
	return nil
}

// compileArity compiles one (params, body) pair in a fresh funcScope
// nested under the current one, so unresolved names fall through to
// upvalue capture against the enclosing function exactly as
// internal/analyzer.Scope's chain (which keeps outerScope visible while
// handing parseFnArityForm a fresh slotCounter) does for the tree-walker.
func (c *Compiler) compileArity(fnName string, params []string, variadic bool, body *analyzer.Node, pos errs.Position) (arityTemplate, error) {
	chunk := NewChunk(c.fs.chunk.File)
	inner := newFuncScope(c.fs, chunk, fnName)
	prevFs := c.fs
	c.fs = inner
	for _, p := range params {
		inner.addLocal(p)
	}
	inner.recurStack = append(inner.recurStack, recurTarget{startPC: 0, slotBase: 0, arity: len(params)})
	if err := c.compileNode(body); err != nil {
		c.fs = prevFs
		return arityTemplate{}, err
	}
	c.emit(pos, OpReturn)
	c.fs = prevFs
	return arityTemplate{
		params:    params,
		variadic:  variadic,
		numLocals: inner.maxSlot,
		chunk:     chunk,
		captures:  inner.upvalues,
	}, nil
}

// compileLetFn pre-allocates a local slot per binding (so mutually
// recursive fn literals can refer to one another as upvalues of their own
// shared enclosing frame, the bytecode counterpart of evalLetFn's single
// shared pre-bound Environment frame), then compiles each fn literal and
// stores it.
func (c *Compiler) compileLetFn(n *analyzer.Node) error {
	startLocals := len(c.fs.locals)
	slots := make([]int, len(n.LetFnBindings))
	// Reserve one stack slot per binding with a placeholder nil *before*
	// compiling any closure, so a closure capturing a sibling's slot as an
	// upvalue resolves against a slot that already physically exists on
	// the stack — mirroring evalLetFn's "pre-bind all names in one shared
	// frame before building any fn literal" ordering.
	for i, b := range n.LetFnBindings {
		c.emit(b.Init.Pos, OpNil)
		slots[i] = c.fs.addLocal(b.Name)
	}
	for i, b := range n.LetFnBindings {
		if err := c.compileFn(b.Init); err != nil {
			return err
		}
		c.emit(b.Init.Pos, OpSetLocal)
		c.emitU16(b.Init.Pos, slots[i])
	}
	if err := c.compileBody(n.Body); err != nil {
		return err
	}
	c.emit(n.Pos, OpPopBelow)
	c.emitU16(n.Pos, len(n.LetFnBindings))
	c.fs.dropLocals(startLocals)
	return nil
}

func (c *Compiler) compileCall(n *analyzer.Node) error {
	if n.Fn.Kind == analyzer.KVarRef && len(n.Args) == 2 && n.Fn.Var != nil {
		v := n.Fn.Var
		if op, isFast := fastBuiltins[v.Name]; isFast && v.Namespace == runtime.CoreNamespace {
			if err := c.compileNode(n.Args[0]); err != nil {
				return err
			}
			if err := c.compileNode(n.Args[1]); err != nil {
				return err
			}
			c.emit(n.Pos, op)
			return nil
		}
	}
	if err := c.compileNode(n.Fn); err != nil {
		return err
	}
	for _, a := range n.Args {
		if err := c.compileNode(a); err != nil {
			return err
		}
	}
	c.emit(n.Pos, OpCall)
	c.emitByte(n.Pos, byte(len(n.Args)))
	return nil
}

func (c *Compiler) compileDef(n *analyzer.Node) error {
	if n.Init != nil {
		if err := c.compileNode(n.Init); err != nil {
			return err
		}
	} else {
		c.emit(n.Pos, OpNil)
	}
	c.emit(n.Pos, OpDef)
	c.emitU16(n.Pos, c.constIndex(runtime.String(n.Name)))
	if n.IsMacro {
		c.emit(n.Pos, OpMarkMacro)
	}
	return nil
}

func (c *Compiler) compileFnThenArgs(fn *analyzer.Node, args []*analyzer.Node) error {
	if err := c.compileNode(fn); err != nil {
		return err
	}
	for _, a := range args {
		if err := c.compileNode(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileApply(n *analyzer.Node) error {
	if err := c.compileFnThenArgs(n.Fn, n.Args); err != nil {
		return err
	}
	if err := c.compileNode(n.SeqTail); err != nil {
		return err
	}
	c.emit(n.Pos, OpApplyForm)
	c.emitU16(n.Pos, len(n.Args))
	return nil
}

// compileFnColl compiles the shared (fn/pred, coll) shape of
// map/filter/take-while/drop-while/map-indexed/group-by.
func (c *Compiler) compileFnColl(n *analyzer.Node, op Opcode) error {
	if err := c.compileNode(n.Fn); err != nil {
		return err
	}
	if err := c.compileNode(n.Coll); err != nil {
		return err
	}
	c.emit(n.Pos, op)
	return nil
}

func (c *Compiler) compileReduce(n *analyzer.Node) error {
	if err := c.compileNode(n.Fn); err != nil {
		return err
	}
	hasInit := n.Init != nil
	if hasInit {
		if err := c.compileNode(n.Init); err != nil {
			return err
		}
	}
	if err := c.compileNode(n.Coll); err != nil {
		return err
	}
	c.emit(n.Pos, OpReduce)
	if hasInit {
		c.emitByte(n.Pos, 1)
	} else {
		c.emitByte(n.Pos, 0)
	}
	return nil
}

func (c *Compiler) compileLazySeq(n *analyzer.Node) error {
	tmpl := &closureTemplate{name: "lazy-seq"}
	at, err := c.compileArity("", nil, false, n.Thunk, n.Pos)
	if err != nil {
		return err
	}
	tmpl.arities = []arityTemplate{at}
	idx := c.fs.chunk.AddTemplate(tmpl)
	c.emit(n.Pos, OpMakeLazy)
	c.emitU16(n.Pos, idx)
	return nil
}

// compileTry emits: push a handler, run the body, pop the handler, then
// jump *past* the catch block straight to finally so the normal path runs
// Finally too (spec: "Finally" always runs); a thrown value lands at
// catchPC instead, falls through into the same finally code, and an
// uncaught throw re-raises after Finally via OpThrow. Grounded on the
// spec's explicit "try pushes a handler record (target pc for catch,
// bindings depth, pc for finally) ... schedules the finally."
func (c *Compiler) compileTry(n *analyzer.Node) error {
	catchJump := c.emitJump(n.Pos, OpTryPush)
	finallyPlaceholder := c.fs.chunk.Len()
	c.emitU16(n.Pos, 0xffff)
	afterPlaceholder := c.fs.chunk.Len()
	c.emitU16(n.Pos, 0xffff)

	if err := c.compileBody(n.TryBody); err != nil {
		return err
	}
	c.emit(n.Pos, OpTryPop)
	skipCatchJump := c.emitJump(n.Pos, OpJump)

	if len(n.Catches) > 0 {
		c.patchJump(catchJump)
		clause := n.Catches[0]
		startLocals := len(c.fs.locals)
		c.fs.addLocal(clause.Binding)
		if err := c.compileBody(clause.Body); err != nil {
			return err
		}
		c.emit(n.Pos, OpPopBelow)
		c.emitU16(n.Pos, 1)
		c.fs.dropLocals(startLocals)
	} else if len(n.Finally) == 0 {
		c.patchJump(catchJump)
		c.emit(n.Pos, OpThrow)
	}
	// With no catch but a finally, the catch target stays noTarget so
	// dispatchException runs the finally and then re-raises.
	c.patchJump(skipCatchJump)

	finallyPC := 0xffff
	if len(n.Finally) > 0 {
		finallyPC = c.fs.chunk.Len()
		if err := c.compileBody(n.Finally); err != nil {
			return err
		}
		c.emit(n.Pos, OpPop)
	}
	c.fs.chunk.PatchU16(finallyPlaceholder, finallyPC)
	c.fs.chunk.PatchU16(afterPlaceholder, c.fs.chunk.Len())
	return nil
}

func (c *Compiler) compileDefProtocol(n *analyzer.Node) error {
	p := &protoTemplate{protoName: n.ProtoName}
	for _, s := range n.Sigs {
		p.sigs = append(p.sigs, protoSig{name: s.Name, arity: s.Arity})
	}
	idx := c.fs.chunk.AddProto(p)
	c.emit(n.Pos, OpDefProto)
	c.emitU16(n.Pos, idx)
	return nil
}

func (c *Compiler) compileExtendType(n *analyzer.Node) error {
	p := &protoTemplate{typeName: n.TypeName}
	var methodFns []*analyzer.Node
	for _, ext := range n.Extensions {
		clause := protoExtClause{protocol: ext.Protocol}
		for name, fnNode := range ext.Methods {
			clause.methods = append(clause.methods, name)
			methodFns = append(methodFns, fnNode)
		}
		p.ext = append(p.ext, clause)
	}
	for _, fnNode := range methodFns {
		if err := c.compileNode(fnNode); err != nil {
			return err
		}
	}
	idx := c.fs.chunk.AddProto(p)
	c.emit(n.Pos, OpExtendType)
	c.emitU16(n.Pos, idx)
	return nil
}
