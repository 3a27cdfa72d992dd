package runtime

import "fmt"

// Var is a named, mutable indirection cell owned by a Namespace (spec §3.4,
// GLOSSARY). Vars are long-lived infrastructure: they and the Namespace map
// holding them are never traced as Values even though a Var's root value is
// itself a GC root (spec §4.2/§9). Grounded on
// internal/symbols/symbol_table_core.go's Symbol struct (name + metadata
// flags), generalized from a compile-time symbol-table entry into a
// runtime mutable cell since this language has no separate
// compile-time/runtime symbol-table split.
type Var struct {
	Namespace string
	Name      string
	root      Value
	hasRoot   bool

	Doc      string
	ArgLists Value // printable form, e.g. a vector of parameter vectors
	IsMacro  bool
	IsPrivate bool
	IsDynamic bool

	// bindingStack holds dynamic (thread-local in a concurrent host;
	// call-stack-local here, since the core is single-threaded per spec §5)
	// rebindings pushed by `binding`, used only when IsDynamic.
	bindingStack []Value

	watchers *PersistentMap
}

func NewVar(ns, name string) *Var {
	return &Var{Namespace: ns, Name: name, watchers: EmptyMap()}
}

func (v *Var) Type() ValueType { return TypeVar }
func (v *Var) Print() string   { return fmt.Sprintf("#'%s/%s", v.Namespace, v.Name) }
func (v *Var) Hash() uint32    { return hashString("var:" + v.Namespace + "/" + v.Name) }

func (v *Var) HasRoot() bool { return v.hasRoot }

// RootValue and BindingStack expose a Var's GC-reachable payload to
// internal/heap's root tracer (spec §4.2: "Vars (their root value and
// dynamic binding stacks)" are roots), without handing out the mutable
// fields themselves.
func (v *Var) RootValue() Value        { return v.root }
func (v *Var) BindingStack() []Value   { return v.bindingStack }

// Get returns the currently visible value: the top of the dynamic binding
// stack if one is pushed, otherwise the root.
func (v *Var) Get() Value {
	if len(v.bindingStack) > 0 {
		return v.bindingStack[len(v.bindingStack)-1]
	}
	return v.root
}

// BindRoot installs the Var's root value (`def`'s effect).
func (v *Var) BindRoot(val Value) {
	old := v.root
	v.root = val
	v.hasRoot = true
	v.notifyWatchers(old, val)
}

func (v *Var) notifyWatchers(old, new Value) {
	_ = old
	_ = new
	// Watcher invocation requires calling back into the evaluator, which
	// cannot be imported here without a cycle. Var watchers added with
	// AddWatch are not invoked: neither backend calls them after BindRoot.
}

func (v *Var) Watchers() []mapEntry { return v.watchers.Entries() }
func (v *Var) AddWatch(key, fn Value) {
	v.watchers = v.watchers.Assoc(key, fn)
}
func (v *Var) RemoveWatch(key Value) {
	v.watchers = v.watchers.Dissoc(key)
}

// PushBinding/PopBinding implement `binding`'s dynamic scope for a
// :dynamic Var; misuse on a non-dynamic Var is the caller's (analyzer's)
// responsibility to reject.
func (v *Var) PushBinding(val Value) { v.bindingStack = append(v.bindingStack, val) }
func (v *Var) PopBinding() {
	if len(v.bindingStack) > 0 {
		v.bindingStack = v.bindingStack[:len(v.bindingStack)-1]
	}
}
