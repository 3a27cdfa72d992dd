package vm

import (
	"github.com/clj-core/clj/internal/corelib"
	"github.com/clj-core/clj/internal/runtime"
)

// registerCoreOnVM interns the same core builtin library
// internal/evaluator/builtins.go registers, substituting this VM's own
// callValue as the Apply hook corelib's higher-order builtins (map,
// apply, swap! and friends reached through a builtin rather than a
// dedicated opcode) call back through.
func registerCoreOnVM(vm *VM) {
	reg := func(name string, fn runtime.BuiltinFunc) {
		v := vm.Env.Intern(runtime.CoreNamespace, name)
		v.BindRoot(&runtime.Builtin{Name: name, Fn: fn})
	}
	corelib.RegisterCore(reg, corelib.Deps{
		Arena: vm.Arena,
		Out:   vm.Out,
		Apply: vm.callValue,
	})
}
