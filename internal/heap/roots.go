package heap

import "github.com/clj-core/clj/internal/runtime"

// EnvRoots adapts a *runtime.Env into a RootProvider over every Var's root
// value and dynamic binding stack (spec §4.2's first root category). The
// Vars and Namespaces themselves are process-lifetime infrastructure, not
// traced as values (see runtime.Var's doc comment); only what they point
// at is a root.
type EnvRoots struct {
	Env *runtime.Env
}

func (r EnvRoots) Roots(out []runtime.Value) []runtime.Value {
	for _, ns := range r.Env.AllNamespaces() {
		for _, v := range ns.AllVars() {
			if v.HasRoot() {
				out = append(out, v.RootValue())
			}
			out = append(out, v.BindingStack()...)
		}
	}
	return out
}

// SliceRoots adapts a flat slice of live Values — the evaluator's current
// binding stack, or the VM's operand stack — into a RootProvider (spec
// §4.2's second and third root categories). Callers pass a function
// rather than a snapshot slice so Collect always sees the stack's current
// contents even if it grew or shrank between calls.
type SliceRoots func() []runtime.Value

func (r SliceRoots) Roots(out []runtime.Value) []runtime.Value {
	return append(out, r()...)
}

// FrameRoots adapts the VM's call-frame stack (spec §4.2's "VM's ...
// call frames" root category): each frame contributes its locals slice
// and its captured closure, both of which may hold the only remaining
// reference to a Value once the frame's originating function has itself
// become unreachable.
type FrameRoots func() [][]runtime.Value

func (r FrameRoots) Roots(out []runtime.Value) []runtime.Value {
	for _, frame := range r() {
		out = append(out, frame...)
	}
	return out
}
