package runtime

import "strings"

const CoreNamespace = "clj.core"

// Env maps namespace name -> Namespace, tracks the current namespace, and
// implements spec §3.4's resolve rule. Grounded on
// internal/evaluator/environment.go's outer-chained Environment, but Env is
// the *global*, process-lifetime half of the environment story (namespaces
// and Vars); the evaluator's lexical binding stack (local_ref slots) is a
// separate, short-lived structure per spec §3.4's lifecycle split.
type Env struct {
	namespaces map[string]*Namespace
	current    string
	Protocols  *ProtocolRegistry
}

func NewEnv() *Env {
	e := &Env{namespaces: map[string]*Namespace{}, current: "user", Protocols: NewProtocolRegistry()}
	e.namespaces[CoreNamespace] = NewNamespace(CoreNamespace)
	e.namespaces["user"] = NewNamespace("user")
	return e
}

func (e *Env) CurrentNamespace() *Namespace {
	return e.namespaces[e.current]
}

func (e *Env) CurrentNamespaceName() string { return e.current }

func (e *Env) SetCurrentNamespace(name string) {
	e.EnsureNamespace(name)
	e.current = name
}

func (e *Env) EnsureNamespace(name string) *Namespace {
	if ns, ok := e.namespaces[name]; ok {
		return ns
	}
	ns := NewNamespace(name)
	e.namespaces[name] = ns
	return ns
}

func (e *Env) Namespace(name string) (*Namespace, bool) {
	ns, ok := e.namespaces[name]
	return ns, ok
}

// AllNamespaces exposes the full namespace table so internal/heap's root
// tracer can walk every interned Var (spec §4.2's "Vars" root category)
// without Env needing to know anything about the heap package.
func (e *Env) AllNamespaces() map[string]*Namespace { return e.namespaces }

// Resolve implements spec §3.4: a qualified symbol hits its named
// namespace directly; an unqualified symbol searches the current
// namespace, then its referred vars, then the implicit core namespace.
func (e *Env) Resolve(ns, name string) (*Var, bool) {
	if ns != "" {
		target, ok := e.namespaces[ns]
		if !ok {
			return nil, false
		}
		return target.Lookup(name)
	}
	cur := e.CurrentNamespace()
	if v, ok := cur.Lookup(name); ok {
		return v, true
	}
	if v, ok := cur.LookupReferred(name); ok {
		return v, true
	}
	if core, ok := e.namespaces[CoreNamespace]; ok {
		if v, ok := core.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Intern interns name in the current namespace (or the named one).
func (e *Env) Intern(ns, name string) *Var {
	if ns == "" {
		ns = e.current
	}
	return e.EnsureNamespace(ns).Intern(name)
}

// ParseQualified splits "ns/name" into (ns, name); returns ("", s) when s
// has no namespace part.
func ParseQualified(s string) (string, string) {
	idx := strings.IndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return "", s
	}
	return s[:idx], s[idx+1:]
}
