package runtime

import "fmt"

// MultiFn implements spec §4.6's multimethod: a dispatch function plus a
// method table from dispatch-value (compared by `=`) to implementation
// function, with an optional `:default` fallback. Grounded on
// internal/symbols/symbol_table_dispatch.go's dispatch-table-keyed-by-
// discriminant pattern, repurposed from trait/instance resolution (done at
// analysis time, statically) to multimethod resolution (done at call time,
// dynamically, since this language has no static type system to resolve
// dispatch ahead of time).
type MultiFn struct {
	Name       string
	DispatchFn Value
	methods    *PersistentMap // dispatch-value -> fn
	Default    Value          // fn bound to :default, or nil
}

const DefaultDispatchKeyword = "default"

func NewMultiFn(name string, dispatchFn Value) *MultiFn {
	return &MultiFn{Name: name, DispatchFn: dispatchFn, methods: EmptyMap()}
}

func (m *MultiFn) Type() ValueType { return TypeMultiFn }
func (m *MultiFn) Print() string   { return fmt.Sprintf("#<multifn %s>", m.Name) }
func (m *MultiFn) Hash() uint32    { return hashString("multifn:" + m.Name) }

// Methods exposes the dispatch-value -> fn table for internal/heap's
// tracer; the table itself is an ordinary persistent Map, traced like any
// other.
func (m *MultiFn) Methods() *PersistentMap { return m.methods }

// AddMethod installs (dispatchVal -> fn). A dispatchVal equal to
// :default (spec §4.6) is tracked separately so lookup can prefer an exact
// match and fall back explicitly.
func (m *MultiFn) AddMethod(dispatchVal, fn Value) {
	if kw, ok := dispatchVal.(*Keyword); ok && kw.NS == "" && kw.Name == DefaultDispatchKeyword {
		m.Default = fn
		return
	}
	m.methods = m.methods.Assoc(dispatchVal, fn)
}

// Lookup finds the method for a dispatch value, or the default, or
// (nil, false) if neither exists — spec's no_matching_method case.
func (m *MultiFn) Lookup(dispatchVal Value) (Value, bool) {
	if fn, ok := m.methods.Get(dispatchVal); ok {
		return fn, true
	}
	if m.Default != nil {
		return m.Default, true
	}
	return nil, false
}
