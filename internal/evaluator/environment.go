package evaluator

import "github.com/clj-core/clj/internal/runtime"

// Environment is the evaluator's lexical binding stack: a chain of frames
// keyed by name, one frame per `let`/`loop`/`fn` call/`letfn`/`catch`
// entered (spec §3.4's lexical half of the Environment; internal/runtime.Env
// is the other, global half — namespaces and Vars). Grounded on
// internal/evaluator/environment.go's parent-chained scope, kept
// name-keyed rather than slot-indexed: internal/analyzer.Scope already
// assigns slots, but those exist for shadowing disambiguation and as raw
// material for internal/vm's own register allocation, not as this
// tree-walker's addressing scheme.
type Environment struct {
	parent *Environment
	vars   map[string]runtime.Value
}

// NewEnvironment creates a child frame of parent (nil for a call's
// outermost frame, i.e. the captured closure's own root).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{parent: parent, vars: map[string]runtime.Value{}}
}

// Get resolves name by walking outward, matching Scope.lookup's shape.
func (e *Environment) Get(name string) (runtime.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define binds name in this frame (never a parent's), used both for
// ordinary let/fn-param bindings and for a named fn literal's self-binding.
func (e *Environment) Define(name string, v runtime.Value) {
	e.vars[name] = v
}

// frameValues flattens this frame and every parent's bindings into one
// slice, used to build a heap.RootProvider over the live call stack
// without internal/heap needing to know Environment's shape.
func (e *Environment) frameValues() []runtime.Value {
	var out []runtime.Value
	for cur := e; cur != nil; cur = cur.parent {
		for _, v := range cur.vars {
			out = append(out, v)
		}
	}
	return out
}
