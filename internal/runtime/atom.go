package runtime

import "fmt"

// Atom is a boxed mutable cell with watchers and an optional validator
// (spec §4.7). Grounded on internal/evaluator/environment.go's guarded
// single-slot mutation (Environment.Set/Update), generalized into its own
// Value variant since an atom, unlike an Environment slot, is itself
// first-class and referenceable.
//
// The core is single-threaded (spec §5): swap! is not retried under
// contention, but callers must still not assume pointer stability across
// an update, since the new value may be a freshly allocated persistent
// structure.
type Atom struct {
	val       Value
	watchers  *PersistentMap // key -> watch fn
	validator Value          // fn or nil
}

func NewAtom(v Value) *Atom {
	return &Atom{val: v, watchers: EmptyMap()}
}

func (a *Atom) Type() ValueType { return TypeAtom }
func (a *Atom) Print() string   { return fmt.Sprintf("#<atom %s>", PrintValue(a.val)) }
func (a *Atom) Hash() uint32    { return hashString(fmt.Sprintf("atom:%p", a)) }

func (a *Atom) Deref() Value { return a.val }

// SetValidator installs a predicate run on every future update; an update
// whose candidate value fails the validator is rejected by the caller
// before Swap/Reset is invoked (the validator itself is evaluated by the
// evaluator/VM, which own function invocation; Atom only stores it).
func (a *Atom) Validator() Value     { return a.validator }
func (a *Atom) SetValidator(f Value) { a.validator = f }

// Reset installs newVal unconditionally; the caller is responsible for
// having already run the validator and for invoking watchers afterward
// (spec §4.7: watchers run "around successful swaps").
func (a *Atom) Reset(newVal Value) (old Value) {
	old = a.val
	a.val = newVal
	return old
}

func (a *Atom) AddWatch(key, fn Value) {
	a.watchers = a.watchers.Assoc(key, fn)
}

func (a *Atom) RemoveWatch(key Value) {
	a.watchers = a.watchers.Dissoc(key)
}

func (a *Atom) Watchers() []mapEntry { return a.watchers.Entries() }
