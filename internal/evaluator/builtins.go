package evaluator

import (
	"github.com/clj-core/clj/internal/corelib"
	"github.com/clj-core/clj/internal/runtime"
)

// RegisterCore interns every built-in Var the core namespace provides
// (SPEC_FULL's ambient builtin surface): the handful analyzeCollection
// lowers non-constant literals to (`vector`, `hash-set`, `hash-map`), the
// seq/collection library the builtinMacros table expands into, and the
// arithmetic/comparison/printing primitives every program needs. The
// actual builtin implementations live in internal/corelib so internal/vm
// can register the same table without importing this package; RegisterCore
// here only supplies the interning closure and this Evaluator's Deps.
// Grounded on the teacher's builtins_std.go registration pattern: one flat
// table of (name, BuiltinFunc) pairs interned into a fixed namespace at
// startup.
func RegisterCore(ev *Evaluator) {
	reg := func(name string, fn runtime.BuiltinFunc) {
		v := ev.Env.Intern(runtime.CoreNamespace, name)
		v.BindRoot(&runtime.Builtin{Name: name, Fn: fn})
	}
	corelib.RegisterCore(reg, corelib.Deps{
		Arena: ev.Arena,
		Out:   ev.Out,
		Apply: ev.Apply,
	})
}
