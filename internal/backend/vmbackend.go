package backend

import (
	"io"
	"os"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
	"github.com/clj-core/clj/internal/vm"
)

// VMBackend wraps internal/vm.VM, grounded on
// internal/backend/vmbackend.go's identically-named wrapper; simplified to
// this module's single Chunk-per-form compile/run cycle (no separate
// loader/pending-imports step — a top-level Form compiles and runs in one
// vm.RunTop call).
type VMBackend struct {
	machine *vm.VM
}

// NewVM builds a VM backend over env/arena.
func NewVM(env *runtime.Env, arena *heap.Arena, out io.Writer) *VMBackend {
	machine := vm.New(env, arena)
	if out != nil {
		machine.Out = out
	}
	return &VMBackend{machine: machine}
}

func (b *VMBackend) RunTop(f *ast.Form) (runtime.Value, error) {
	return b.machine.RunTop(f)
}

func (b *VMBackend) Name() string { return "vm" }

// VM exposes the wrapped machine for callers that need it directly.
func (b *VMBackend) VM() *vm.VM { return b.machine }

// NewVMStdout is a convenience constructor writing print output straight
// to the process's own stdout.
func NewVMStdout(env *runtime.Env, arena *heap.Arena) *VMBackend {
	return NewVM(env, arena, os.Stdout)
}
