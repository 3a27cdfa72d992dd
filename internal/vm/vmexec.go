package vm

import (
	"strconv"

	"github.com/clj-core/clj/internal/corelib"
	"github.com/clj-core/clj/internal/runtime"
)

// step executes exactly one instruction of the frame at index fi, grounded
// on internal/vm/vm_exec.go's switch-dispatched executeOneOp. done reports
// whether this was an OpReturn that popped fi's frame (result holds the
// returned value); the caller (run) re-fetches the active frame afresh on
// every iteration rather than this function holding a *Frame across any
// opcode that might itself grow vm.frames (a nested call), since that
// growth can reallocate the backing array and invalidate a stale pointer.
func (vm *VM) step(fi int) (result runtime.Value, done bool, err error) {
	frame := &vm.frames[fi]
	opStart := frame.ip
	op := Opcode(frame.chunk.Code[frame.ip])
	frame.ip++

	readU16 := func() int {
		v := frame.chunk.ReadU16(frame.ip)
		frame.ip += 2
		return v
	}
	readByte := func() int {
		b := int(frame.chunk.Code[frame.ip])
		frame.ip++
		return b
	}
	switch op {
	case OpConst:
		idx := readU16()
		vm.push(frame.chunk.Constants[idx])
		return nil, false, nil
	case OpNil:
		vm.push(runtime.Nil{})
		return nil, false, nil
	case OpTrue:
		vm.push(runtime.Bool(true))
		return nil, false, nil
	case OpFalse:
		vm.push(runtime.Bool(false))
		return nil, false, nil
	case OpPop:
		vm.pop()
		return nil, false, nil
	case OpPopBelow:
		n := readU16()
		top := vm.pop()
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(top)
		return nil, false, nil
	case OpLoadLocal:
		slot := readU16()
		vm.push(vm.stack[frame.base+slot])
		return nil, false, nil
	case OpSetLocal:
		slot := readU16()
		vm.stack[frame.base+slot] = vm.pop()
		return nil, false, nil
	case OpGetUpvalue:
		idx := readU16()
		vm.push(frame.upvalues[idx])
		return nil, false, nil
	case OpGetSelf:
		vm.push(frame.closure)
		return nil, false, nil

	case OpJump:
		// compiler.go's patchJump bakes in an absolute target PC (chunk.Len()
		// at patch time), not a relative distance, so the operand is used
		// directly here.
		target := readU16()
		frame.ip = target
		return nil, false, nil
	case OpJumpIfFalse:
		target := readU16()
		if !runtime.Truthy(vm.pop()) {
			frame.ip = target
		}
		return nil, false, nil
	case OpRecur:
		argc := readByte()
		startPC := readU16()
		slotBase := readU16()
		args := vm.popN(argc)
		for i, a := range args {
			vm.stack[frame.base+slotBase+i] = a
		}
		frame.ip = startPC
		vm.safepoint()
		return nil, false, nil

	case OpCall, OpTailCall:
		argc := readByte()
		args := vm.popN(argc)
		fn := vm.pop()
		res, cerr := vm.callValue(fn, args)
		if cerr != nil {
			return nil, false, cerr
		}
		vm.push(res)
		return nil, false, nil

	case OpReturn:
		// retVal travels back to the call site as callValue/runArity's
		// ordinary Go return value (calls are Go-recursive: OpCall's own
		// handler pushes the result onto the *caller's* frame), so nothing
		// needs pushing back onto the now-truncated shared stack here.
		retVal := vm.pop()
		vm.stack = vm.stack[:frame.base]
		vm.frames = vm.frames[:fi]
		return retVal, true, nil

	case OpThrow:
		v := vm.pop()
		if exc, ok := v.(*runtime.Exception); ok {
			return nil, false, exc
		}
		exc := runtime.NewException(runtime.ExUser, runtime.PrintValue(v), nil, currentPos(frame.chunk, opStart))
		exc.Payload = v
		return nil, false, exc

	case OpTryPush:
		catchPC := readU16()
		finallyPC := readU16()
		afterPC := readU16()
		vm.handlers = append(vm.handlers, tryHandler{
			catchPC: catchPC, finallyPC: finallyPC, afterPC: afterPC,
			frameIdx: fi, sp: len(vm.stack),
		})
		return nil, false, nil
	case OpTryPop:
		if len(vm.handlers) > 0 {
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
		}
		return nil, false, nil

	case OpDef:
		nameIdx := readU16()
		name := string(frame.chunk.Constants[nameIdx].(runtime.String))
		init := vm.pop()
		v := vm.Env.Intern("", name)
		v.BindRoot(init)
		vm.push(v)
		return nil, false, nil
	case OpMarkMacro:
		if len(vm.stack) > 0 {
			if v, ok := vm.stack[len(vm.stack)-1].(*runtime.Var); ok {
				v.IsMacro = true
			}
		}
		return nil, false, nil
	case OpVarGet:
		idx := readU16()
		v := frame.chunk.Constants[idx].(*runtime.Var)
		if !v.HasRoot() {
			return nil, false, runtime.NewException(runtime.ExUnresolvedVar,
				"unbound var: "+v.Namespace+"/"+v.Name, nil, currentPos(frame.chunk, opStart))
		}
		vm.push(v.Get())
		return nil, false, nil

	case OpClosure:
		idx := readU16()
		tmpl := frame.chunk.Templates[idx]
		vm.push(vm.instantiate(frame, tmpl))
		return nil, false, nil
	case OpMakeLazy:
		idx := readU16()
		tmpl := frame.chunk.Templates[idx]
		closure := vm.instantiate(frame, tmpl)
		thunk := func() runtime.Seq {
			v, cerr := vm.callValue(closure, nil)
			if cerr != nil {
				panic(runtime.LazyPanic{Err: cerr})
			}
			if v == nil {
				return nil
			}
			s, serr := runtime.SeqOf(v)
			if serr != nil {
				panic(runtime.LazyPanic{Err: serr})
			}
			return s
		}
		ls := runtime.NewLazySeq(thunk)
		if vm.Arena != nil {
			vm.Arena.Alloc(ls)
		}
		vm.push(ls)
		return nil, false, nil

	case OpAdd, OpSub, OpMul:
		b := vm.pop()
		a := vm.pop()
		var res runtime.Value
		var aerr error
		switch op {
		case OpAdd:
			res, aerr = corelib.AddNum(a, b)
		case OpSub:
			res, aerr = corelib.SubNum(a, b)
		case OpMul:
			res, aerr = corelib.MulNum(a, b)
		}
		if aerr != nil {
			return nil, false, aerr
		}
		vm.push(res)
		return nil, false, nil
	case OpLt:
		b := vm.pop()
		a := vm.pop()
		less, cerr := runtime.CompareValues(a, b)
		if cerr != nil {
			return nil, false, cerr
		}
		vm.push(runtime.Bool(less))
		return nil, false, nil
	case OpLe:
		b := vm.pop()
		a := vm.pop()
		gt, cerr := runtime.CompareValues(b, a)
		if cerr != nil {
			return nil, false, cerr
		}
		vm.push(runtime.Bool(!gt))
		return nil, false, nil
	case OpEq:
		b := vm.pop()
		a := vm.pop()
		vm.push(runtime.Bool(runtime.ValuesEqual(a, b)))
		return nil, false, nil

	case OpApplyForm:
		argc := readU16()
		tailVal := vm.pop()
		args := vm.popN(argc)
		fn := vm.pop()
		tail, serr := runtime.SeqToSlice(tailVal)
		if serr != nil {
			return nil, false, serr
		}
		res, cerr := vm.callValue(fn, append(args, tail...))
		if cerr != nil {
			return nil, false, cerr
		}
		vm.push(res)
		return nil, false, nil

	case OpPartial:
		argc := readU16()
		args := vm.popN(argc)
		fn := vm.pop()
		pf := &runtime.PartialFn{Fn: fn, Args: args}
		if vm.Arena != nil {
			vm.Arena.Alloc(pf)
		}
		vm.push(pf)
		return nil, false, nil
	case OpComp:
		n := readU16()
		fns := vm.popN(n)
		cf := &runtime.CompFn{Fns: fns}
		if vm.Arena != nil {
			vm.Arena.Alloc(cf)
		}
		vm.push(cf)
		return nil, false, nil

	case OpSwapAtom:
		argc := readU16()
		extra := vm.popN(argc)
		fn := vm.pop()
		atomVal := vm.pop()
		atom, ok := atomVal.(*runtime.Atom)
		if !ok {
			return nil, false, runtime.NewException(runtime.ExType, "swap! requires an atom", nil, currentPos(frame.chunk, opStart))
		}
		newVal, cerr := vm.callValue(fn, append([]runtime.Value{atom.Deref()}, extra...))
		if cerr != nil {
			return nil, false, cerr
		}
		if validator := atom.Validator(); validator != nil {
			ok, verr := vm.callValue(validator, []runtime.Value{newVal})
			if verr != nil {
				return nil, false, verr
			}
			if !runtime.Truthy(ok) {
				return nil, false, runtime.NewException(runtime.ExType, "invalid value for atom's validator", nil, currentPos(frame.chunk, opStart))
			}
		}
		old := atom.Reset(newVal)
		for _, w := range atom.Watchers() {
			if _, werr := vm.callValue(w.Val, []runtime.Value{w.Key, atom, old, newVal}); werr != nil {
				return nil, false, werr
			}
		}
		vm.push(newVal)
		return nil, false, nil

	case OpReduce:
		hasInit := readByte() != 0
		coll := vm.pop()
		var init runtime.Value
		if hasInit {
			init = vm.pop()
		}
		fn := vm.pop()
		res, rerr := vm.opReduce(fn, hasInit, init, coll)
		if rerr != nil {
			return nil, false, rerr
		}
		vm.push(res)
		return nil, false, nil
	case OpMap:
		coll := vm.pop()
		fn := vm.pop()
		res, merr := vm.opMap(fn, coll)
		if merr != nil {
			return nil, false, merr
		}
		vm.push(res)
		return nil, false, nil
	case OpFilter:
		coll := vm.pop()
		fn := vm.pop()
		res, ferr := vm.opFilter(fn, coll)
		if ferr != nil {
			return nil, false, ferr
		}
		vm.push(res)
		return nil, false, nil
	case OpTakeWhile:
		coll := vm.pop()
		fn := vm.pop()
		res, terr := vm.opTakeWhile(fn, coll)
		if terr != nil {
			return nil, false, terr
		}
		vm.push(res)
		return nil, false, nil
	case OpDropWhile:
		coll := vm.pop()
		fn := vm.pop()
		res, derr := vm.opDropWhile(fn, coll)
		if derr != nil {
			return nil, false, derr
		}
		vm.push(res)
		return nil, false, nil
	case OpMapIndexed:
		coll := vm.pop()
		fn := vm.pop()
		res, merr := vm.opMapIndexed(fn, coll)
		if merr != nil {
			return nil, false, merr
		}
		vm.push(res)
		return nil, false, nil
	case OpSortBy:
		coll := vm.pop()
		keyFn := vm.pop()
		res, serr := vm.opSortBy(keyFn, coll)
		if serr != nil {
			return nil, false, serr
		}
		vm.push(res)
		return nil, false, nil
	case OpGroupBy:
		coll := vm.pop()
		keyFn := vm.pop()
		res, gerr := vm.opGroupBy(keyFn, coll)
		if gerr != nil {
			return nil, false, gerr
		}
		vm.push(res)
		return nil, false, nil

	case OpDefMulti:
		nameIdx := readU16()
		name := string(frame.chunk.Constants[nameIdx].(runtime.String))
		dispatchFn := vm.pop()
		v := vm.Env.Intern("", name)
		v.BindRoot(runtime.NewMultiFn(name, dispatchFn))
		vm.push(v)
		return nil, false, nil
	case OpDefMethod:
		nameIdx := readU16()
		name := string(frame.chunk.Constants[nameIdx].(runtime.String))
		methodFn := vm.pop()
		dispatchVal := vm.pop()
		v, ok := vm.Env.Resolve("", name)
		if !ok || !v.HasRoot() {
			return nil, false, runtime.NewException(runtime.ExType, "defmethod on undefined multimethod: "+name, nil, currentPos(frame.chunk, opStart))
		}
		mf, ok := v.Get().(*runtime.MultiFn)
		if !ok {
			return nil, false, runtime.NewException(runtime.ExType, name+" is not a multimethod", nil, currentPos(frame.chunk, opStart))
		}
		mf.AddMethod(dispatchVal, methodFn)
		vm.push(v)
		return nil, false, nil

	case OpDefProto:
		idx := readU16()
		tmpl := frame.chunk.Protos[idx]
		proto := &runtime.Protocol{Name: tmpl.protoName}
		for _, s := range tmpl.sigs {
			proto.Methods = append(proto.Methods, s.name)
		}
		vm.Env.Protocols.Declare(proto)
		for _, s := range tmpl.sigs {
			v := vm.Env.Intern("", s.name)
			v.BindRoot(&runtime.ProtocolFn{ProtoName: tmpl.protoName, MethodName: s.name})
		}
		vm.push(runtime.Nil{})
		return nil, false, nil
	case OpExtendType:
		idx := readU16()
		tmpl := frame.chunk.Protos[idx]
		total := 0
		for _, clause := range tmpl.ext {
			total += len(clause.methods)
		}
		fns := vm.popN(total)
		typ := runtime.ValueType(tmpl.typeName)
		fi2 := 0
		for _, clause := range tmpl.ext {
			for _, methodName := range clause.methods {
				vm.Env.Protocols.Extend(clause.protocol, typ, methodName, fns[fi2])
				fi2++
			}
		}
		vm.push(runtime.Nil{})
		return nil, false, nil

	default:
		return nil, false, runtime.NewException(runtime.ExType, "vm: unhandled opcode "+strconv.Itoa(int(op)), nil, currentPos(frame.chunk, opStart))
	}
}

// instantiate builds a *Closure from tmpl, resolving every arity's captures
// against the currently executing frame — a local capture reads the
// frame's own operand-stack slot, a transitive (non-local) capture forwards
// straight from the frame's own upvalues, exactly mirroring
// funcScope.resolveUpvalue's two capture.fromLocal cases at compile time.
func (vm *VM) instantiate(frame *Frame, tmpl *closureTemplate) *Closure {
	closure := &Closure{Name: tmpl.name}
	for _, at := range tmpl.arities {
		ups := make([]runtime.Value, len(at.captures))
		for i, c := range at.captures {
			if c.fromLocal {
				ups[i] = vm.stack[frame.base+c.index]
			} else {
				ups[i] = frame.upvalues[c.index]
			}
		}
		closure.Arities = append(closure.Arities, RuntimeArity{
			Params: at.params, Variadic: at.variadic, NumLocals: at.numLocals,
			Chunk: at.chunk, Upvalues: ups,
		})
	}
	if vm.Arena != nil {
		vm.Arena.Alloc(closure)
	}
	return closure
}
