// Package vm implements spec §4.5's second backend in full: alongside
// opcodes.go/chunk.go/compiler.go/compile_nodes.go/closure.go/callvalue.go/
// pipeline.go, this file is the framed-stack executor itself. Grounded on
// internal/vm/vm.go's CallFrame/VM shape and internal/vm/vm_exec.go's
// switch-dispatched executeOneOp loop, generalized from that VM's static-
// type call convention to this language's dynamic arity dispatch and
// recur/loop trampoline, and simplified by dropping the teacher's
// module/trait/debugger machinery this language has no use for.
package vm

import (
	"errors"
	"io"
	"os"

	"github.com/clj-core/clj/internal/analyzer"
	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// errUnwound is a sentinel a nested run() call returns when dispatchException
// has already resolved a thrown error against a handler that belongs to an
// ancestor call (an outer, still-executing Go call to run(), reached through
// ordinary Go recursion via callClosure/runArity). Every intermediate run()
// call between the one that caught the error and the one that owns the
// resumed frame must propagate errUnwound untouched — which happens for
// free, since it is just an ordinary Go error threaded through the usual
// `if err != nil { return nil, err }` chain every opcode handler already
// uses — until the run() whose own base frame is the resumed frame notices
// and resumes its loop instead of propagating further.
var errUnwound = errors.New("vm: unwound to outer handler")

// noTarget marks an absent catchPC/finallyPC/afterPC operand.
const noTarget = 0xffff

// gcEveryNAllocs mirrors internal/evaluator/evaluator.go's safe-point
// cadence exactly, so neither backend collects meaningfully more or less
// often than the other under compare mode.
const gcEveryNAllocs = 4096

// Frame is one active call's bookkeeping: the Closure and Chunk it is
// executing (nil Closure at the top level, which has no enclosing
// Closure of its own), the program counter, and the base index into the
// VM's shared operand stack where this call's locals begin (spec §4.5:
// "A call frame references its chunk, its program counter, the base
// index into the shared operand stack, and its set of captured closure
// values").
type Frame struct {
	closure  *Closure
	upvalues []runtime.Value
	chunk    *Chunk
	ip       int
	base     int
}

type tryHandler struct {
	catchPC, finallyPC, afterPC int
	frameIdx                    int
	sp                          int
}

// VM is one REPL/file session's bytecode execution state, the compiled-
// backend counterpart of internal/evaluator.Evaluator.
type VM struct {
	Env      *runtime.Env
	Analyzer *analyzer.Analyzer
	Arena    *heap.Arena
	Out      io.Writer

	stack  []runtime.Value
	frames []Frame

	handlers []tryHandler

	// pendingRethrow/pendingRethrowAt implement "an uncaught throw still
	// runs the enclosing Finally before it keeps propagating": when a
	// throw finds a handler with no catch but a finally, the VM jumps into
	// the finally code with the original error parked here and the PC at
	// which that finally's compiled code ends; reaching that PC re-enters
	// exception dispatch with the parked error instead of falling through
	// to whatever lexically follows the try.
	pendingRethrow   error
	pendingRethrowAt int
	pendingRethrowFI int

	lastGCAlloc int
}

// New builds a VM over env, wiring its own Analyzer the same way
// internal/evaluator.New does (spec §4.3 step 6's Invoke hook), and
// registers the shared core builtin library.
func New(env *runtime.Env, arena *heap.Arena) *VM {
	vm := &VM{Env: env, Arena: arena, Out: os.Stdout}
	an := analyzer.New(env)
	an.Invoke = func(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return vm.callValue(fn, args)
	}
	vm.Analyzer = an
	registerCoreOnVM(vm)
	return vm
}

// RunTop analyzes, compiles and executes one top-level Form — the VM
// backend's counterpart of Evaluator.EvalTop, and the unit internal/backend
// drives compare mode over.
func (vm *VM) RunTop(f *ast.Form) (runtime.Value, error) {
	node, err := vm.Analyzer.AnalyzeTop(f)
	if err != nil {
		return nil, err
	}
	chunk, err := NewCompiler().CompileTop(node, f.Pos.File)
	if err != nil {
		return nil, err
	}
	return vm.runChunk(chunk, nil)
}

// runChunk executes a top-level form's chunk as a fresh zero-argument
// call; an OpClosure-instantiated arity's own Chunk is driven by runArity
// instead.
func (vm *VM) runChunk(chunk *Chunk, upvalues []runtime.Value) (runtime.Value, error) {
	base := len(vm.stack)
	vm.frames = append(vm.frames, Frame{chunk: chunk, base: base, upvalues: upvalues})
	return vm.run()
}

// runArity calls one resolved RuntimeArity with args already evaluated,
// binding fixed params positionally and, for a variadic arity, collecting
// the tail into a List bound to the last param slot — identical contract
// to internal/evaluator/call.go's bindParams.
func (vm *VM) runArity(f *Closure, arity RuntimeArity, args []runtime.Value) (runtime.Value, error) {
	base := len(vm.stack)
	fixed := len(arity.Params)
	if arity.Variadic {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		vm.push(args[i])
	}
	if arity.Variadic {
		var rest []runtime.Value
		if len(args) > fixed {
			rest = args[fixed:]
		}
		vm.push(runtime.NewList(rest...))
	}
	for i := len(arity.Params); i < arity.NumLocals; i++ {
		vm.push(runtime.Nil{})
	}
	vm.frames = append(vm.frames, Frame{closure: f, upvalues: arity.Upvalues, chunk: arity.Chunk, base: base})
	return vm.run()
}

func (vm *VM) push(v runtime.Value) { vm.stack = append(vm.stack, v) }
func (vm *VM) pop() runtime.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}
func (vm *VM) popN(n int) []runtime.Value {
	out := make([]runtime.Value, n)
	copy(out, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return out
}

// safepoint mirrors Evaluator.safepoint's cadence; the VM offers a
// collection only at a loop back-edge/recur (OpRecur), substituting the VM's own
// operand stack and per-frame locals for the tree-walker's Environment
// chain (spec §4.2's second and third root categories).
func (vm *VM) safepoint() {
	if vm.Arena == nil {
		return
	}
	threshold := gcEveryNAllocs
	if vm.Arena.Threshold > 0 {
		threshold = vm.Arena.Threshold
	}
	if vm.Arena.Stats().Allocations-vm.lastGCAlloc < threshold {
		return
	}
	vm.Arena.Collect(
		heap.EnvRoots{Env: vm.Env},
		heap.SliceRoots(func() []runtime.Value { return vm.stack }),
		heap.FrameRoots(func() [][]runtime.Value {
			out := make([][]runtime.Value, len(vm.frames))
			for i, f := range vm.frames {
				out[i] = f.upvalues
			}
			return out
		}),
	)
	vm.lastGCAlloc = vm.Arena.Stats().Allocations
}

// run drives instructions for the topmost frame until it returns (popping
// back to whatever frame called runChunk/runArity) or a Go error/VM-level
// exception propagates out uncaught.
func (vm *VM) run() (runtime.Value, error) {
	baseFrameIdx := len(vm.frames) - 1
	for {
		fi := len(vm.frames) - 1
		frame := &vm.frames[fi]
		if vm.pendingRethrow != nil && fi == vm.pendingRethrowFI && frame.ip == vm.pendingRethrowAt {
			err := vm.pendingRethrow
			vm.pendingRethrow = nil
			if !vm.dispatchException(err) {
				return nil, err
			}
			if len(vm.frames)-1 != baseFrameIdx {
				return nil, errUnwound
			}
			continue
		}
		if frame.ip >= len(frame.chunk.Code) {
			// fell off the end without an explicit OpReturn (top-level
			// forms whose compiler always appends one; defensive only)
			var result runtime.Value = runtime.Nil{}
			if len(vm.stack) > frame.base {
				result = vm.stack[len(vm.stack)-1]
			}
			vm.stack = vm.stack[:frame.base]
			vm.frames = vm.frames[:fi]
			return result, nil
		}
		result, done, err := vm.step(fi)
		if err != nil {
			if err == errUnwound {
				if len(vm.frames)-1 == baseFrameIdx {
					continue
				}
				return nil, errUnwound
			}
			if !vm.dispatchException(err) {
				return nil, err
			}
			if len(vm.frames)-1 != baseFrameIdx {
				return nil, errUnwound
			}
			continue
		}
		if done {
			return result, nil
		}
	}
}

// dispatchException pops the innermost handler (if any) and resumes
// execution there, truncating vm.frames/vm.stack back to that handler's
// depth; returns false when nothing catches, letting the caller propagate
// err as a Go error up to the driver (spec §7: "Uncaught throw surfaces
// from run"). The resumed frame may belong to an ancestor run() call
// reached by ordinary Go recursion rather than the run() invocation that
// observed err — see errUnwound's doc comment for how control gets back
// there.
func (vm *VM) dispatchException(err error) bool {
	if len(vm.handlers) == 0 {
		return false
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	vm.frames = vm.frames[:h.frameIdx+1]
	vm.stack = vm.stack[:h.sp]

	frame := &vm.frames[h.frameIdx]
	if h.catchPC != noTarget {
		var excVal runtime.Value
		if exc, ok := err.(*runtime.Exception); ok {
			excVal = exc.CatchValue()
		} else {
			excVal = runtime.NewException(runtime.ExUser, err.Error(), nil, errs.Position{})
		}
		vm.push(excVal)
		frame.ip = h.catchPC
		return true
	}
	if h.finallyPC != noTarget {
		vm.pendingRethrow = err
		vm.pendingRethrowAt = h.afterPC
		vm.pendingRethrowFI = h.frameIdx
		frame.ip = h.finallyPC
		return true
	}
	return false
}

func currentPos(chunk *Chunk, ip int) errs.Position {
	if ip >= 0 && ip < len(chunk.Lines) {
		return errs.Position{File: chunk.File, Line: chunk.Lines[ip]}
	}
	return errs.Position{File: chunk.File}
}
